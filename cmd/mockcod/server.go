package main

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/thomas/codform-terminal/internal/order"
	"github.com/thomas/codform-terminal/internal/storefront"
)

//go:embed testdata/*
var testdataFS embed.FS

const maxBody = 1 << 20

type shopFixture struct {
	Currency  string                           `yaml:"currency"`
	Countries map[string]string                `yaml:"countries"`
	Provinces map[string][]storefront.Province `yaml:"provinces"`
	Config    map[string]any                   `yaml:"config"`
}

type configResponse struct {
	Success   bool                             `json:"success"`
	Error     string                           `json:"error,omitempty"`
	Currency  string                           `json:"currency,omitempty"`
	Config    any                              `json:"config"`
	Provinces map[string][]storefront.Province `json:"provinces,omitempty"`
	Countries map[string]string                `json:"countries,omitempty"`
}

type server struct {
	shops    map[string]shopFixture
	products json.RawMessage
	catalog  []storefront.Product
	carts    map[string]json.RawMessage
	whatsapp string
	latency  time.Duration
	logger   *log.Logger

	orders atomic.Int64
}

func newServer(fsys fs.FS, whatsapp string, logger *log.Logger) (*server, error) {
	s := &server{whatsapp: whatsapp, logger: logger}

	data, err := fs.ReadFile(fsys, "testdata/shops.yaml")
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &s.shops); err != nil {
		return nil, fmt.Errorf("parsing shops.yaml: %w", err)
	}

	if s.products, err = fs.ReadFile(fsys, "testdata/products.json"); err != nil {
		return nil, err
	}
	var listing struct {
		Products []storefront.Product `json:"products"`
	}
	if err := json.Unmarshal(s.products, &listing); err != nil {
		return nil, fmt.Errorf("parsing products.json: %w", err)
	}
	s.catalog = listing.Products

	data, err = fs.ReadFile(fsys, "testdata/carts.json")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.carts); err != nil {
		return nil, fmt.Errorf("parsing carts.json: %w", err)
	}

	return s, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("POST /api/create-order", s.handleCreateOrder)
	mux.HandleFunc("POST /api/track-open", s.handleTrackOpen)
	mux.HandleFunc("GET /cart.js", s.handleCart)
	mux.HandleFunc("GET /products.json", s.handleProducts)
	return s.withLatency(mux)
}

func (s *server) withLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "shop", r.Header.Get("X-Shop-Domain"))
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	fixture, ok := s.shops[shop]
	if !ok {
		// Unknown shops still get a usable form.
		writeJSON(w, http.StatusNotFound, configResponse{
			Error:  "shop not found",
			Config: order.DefaultConfig(),
		})
		return
	}

	writeJSON(w, http.StatusOK, configResponse{
		Success:   true,
		Currency:  fixture.Currency,
		Config:    fixture.Config,
		Provinces: fixture.Provinces,
		Countries: fixture.Countries,
	})
}

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.OrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := checkOrder(&req); err != nil {
		s.logger.Warn("rejected order", "shop", req.Shop, "err", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	n := s.orders.Add(1)
	s.logger.Info("order created",
		"number", n,
		"shop", req.Shop,
		"session", req.SessionID,
		"items", len(req.Items),
		"total", order.FormatMoney(req.Total.Decimal, req.Currency))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    storefront.OrderResult{WhatsAppLink: s.whatsAppLink(n, &req)},
	})
}

func checkOrder(req *order.OrderRequest) error {
	switch {
	case len(req.Items) == 0:
		return errors.New("order has no items")
	case strings.TrimSpace(req.Customer.Name) == "":
		return errors.New("customer name is required")
	case !order.ValidPhone(req.Customer.Phone):
		return errors.New("customer phone is invalid")
	case strings.TrimSpace(req.Customer.Address) == "" && req.ShippingMethod != nil && *req.ShippingMethod != order.ShippingPickup:
		return errors.New("customer address is required")
	}
	return nil
}

func (s *server) whatsAppLink(n int64, req *order.OrderRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola, soy %s. Quiero confirmar mi pedido #%d:\n", req.Customer.Name, 1000+n)
	for _, it := range req.Items {
		fmt.Fprintf(&b, "- %d x %s\n", it.Quantity, it.Title)
	}
	fmt.Fprintf(&b, "Total: %s", order.FormatMoney(req.Total.Decimal, req.Currency))
	return "https://wa.me/" + s.whatsapp + "?text=" + url.QueryEscape(b.String())
}

func (s *server) handleTrackOpen(w http.ResponseWriter, r *http.Request) {
	var ev storefront.OpenEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.logger.Info("form opened", "shop", ev.Shop, "mode", ev.Mode, "product", ev.ProductID, "utm_source", ev.UTMSource)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *server) handleCart(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie("cart")
	if err != nil {
		writeError(w, http.StatusBadRequest, "cart cookie required")
		return
	}
	cart, ok := s.carts[c.Value]
	if !ok {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(cart)
}

func (s *server) handleProducts(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.products)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
