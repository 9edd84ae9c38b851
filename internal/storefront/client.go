// Package storefront talks to the COD form backend and the shop's public
// storefront endpoints.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker/v2"

	"github.com/thomas/codform-terminal/internal/metrics"
	"github.com/thomas/codform-terminal/internal/order"
)

const maxResponseBytes = 1 << 20

// Client is a storefront API client bound to one shop. Copies made with
// ForShop share the HTTP client and the circuit breaker.
type Client struct {
	baseURL    string
	shop       string
	httpClient *http.Client
	logger     *log.Logger
	metrics    *metrics.Metrics

	maxFailures uint32
	openTimeout time.Duration
	breaker     *gobreaker.CircuitBreaker[*response]
}

type response struct {
	status int
	body   []byte
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithShop sets the shop domain sent with every request.
func WithShop(shop string) ClientOption {
	return func(c *Client) {
		c.shop = shop
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics records request latency and breaker state.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreaker configures the circuit breaker: it opens after maxFailures
// consecutive failures and probes again after openTimeout.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) ClientOption {
	return func(c *Client) {
		c.maxFailures = maxFailures
		c.openTimeout = openTimeout
	}
}

// NewClient creates a new storefront API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:      log.Default(),
		maxFailures: 5,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "storefront",
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			c.metrics.BreakerChanged(name, to)
		},
	})
	c.metrics.BreakerChanged("storefront", gobreaker.StateClosed)

	return c
}

// ForShop returns a copy of c bound to shop.
func (c *Client) ForShop(shop string) *Client {
	cp := *c
	cp.shop = shop
	return &cp
}

// Shop returns the shop domain the client is bound to.
func (c *Client) Shop() string { return c.shop }

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State { return c.breaker.State() }

// FetchBootstrap loads the shop's form configuration, provinces and
// countries. It always returns a usable bootstrap: on failure the error is
// returned together with the envelope's fallback config or the defaults.
func (c *Client) FetchBootstrap(ctx context.Context) (*Bootstrap, error) {
	bs := DefaultBootstrap(c.shop)

	query := url.Values{}
	query.Set("shop", c.shop)
	req, err := c.newRequest(ctx, http.MethodGet, "/api/config", query, nil)
	if err != nil {
		c.metrics.ConfigFetched("fallback")
		return bs, err
	}

	var env bootstrapEnvelope
	err = c.do(req, "config", &env)

	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.body) > 0 {
		_ = json.Unmarshal(apiErr.body, &env)
	}

	bs.Currency = env.Currency
	bs.Provinces = env.Provinces
	bs.Countries = env.Countries

	hasConfig := len(env.Config) > 0 && string(env.Config) != "null"
	if hasConfig {
		cfg, perr := order.ParseConfig(env.Config)
		bs.Config = cfg
		if err == nil && perr != nil {
			err = perr
		}
	}

	switch {
	case err != nil:
	case env.Error != "" || (env.Success != nil && !*env.Success):
		err = &APIError{Status: http.StatusOK, Message: env.Error}
	case !hasConfig:
		err = ErrMissingConfig
	}

	if err != nil {
		c.metrics.ConfigFetched("fallback")
		return bs, fmt.Errorf("fetching config for %s: %w", c.shop, err)
	}
	c.metrics.ConfigFetched("ok")
	return bs, nil
}

// CreateOrder posts the order and returns the WhatsApp link. Every failure
// wraps ErrOrderFailed.
func (c *Client) CreateOrder(ctx context.Context, r *order.OrderRequest) (*OrderResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/create-order", nil, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}

	var resp createOrderResponse
	if err := c.do(req, "create-order", &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.body) > 0 {
			if json.Unmarshal(apiErr.body, &resp) == nil && resp.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrOrderFailed, resp.Error)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unsuccessful response"
		}
		return nil, fmt.Errorf("%w: %s", ErrOrderFailed, msg)
	}
	if resp.Data.WhatsAppLink == "" {
		return nil, fmt.Errorf("%w: response has no whatsapp link", ErrOrderFailed)
	}

	return &resp.Data, nil
}

// TrackOpen sends the form-open beacon. Failures are logged and dropped,
// and do not count against the circuit breaker.
func (c *Client) TrackOpen(ctx context.Context, ev OpenEvent) {
	if ev.Shop == "" {
		ev.Shop = c.shop
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/track-open", nil, ev)
	if err != nil {
		c.logger.Debug("track-open request", "err", err)
		return
	}

	resp, err := c.roundTrip(req)
	if err == nil && (resp.status < 200 || resp.status >= 300) {
		err = &APIError{Status: resp.status}
	}
	if err != nil {
		c.logger.Debug("track-open failed", "shop", ev.Shop, "err", err)
	}
}

// GetCart reads a cart by token and returns its lines and currency.
func (c *Client) GetCart(ctx context.Context, token string) ([]order.CartItem, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, "", errors.New("cart token is required")
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/cart.js", nil, nil)
	if err != nil {
		return nil, "", err
	}
	req.AddCookie(&http.Cookie{Name: "cart", Value: token})

	var cart Cart
	if err := c.do(req, "cart", &cart); err != nil {
		return nil, "", fmt.Errorf("fetching cart: %w", err)
	}

	return cart.OrderItems(), cart.Currency, nil
}

// ListProducts returns the shop's catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	query := url.Values{}
	query.Set("limit", "50")
	req, err := c.newRequest(ctx, http.MethodGet, "/products.json", query, nil)
	if err != nil {
		return nil, err
	}

	var resp productsResponse
	if err := c.do(req, "products", &resp); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return resp.Products, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.shop != "" {
		req.Header.Set("X-Shop-Domain", c.shop)
	}
	return req, nil
}

// do executes req through the circuit breaker and decodes a 2xx body into
// result. Transport errors and 5xx responses count as breaker failures.
func (c *Client) do(req *http.Request, endpoint string, result any) error {
	start := time.Now()
	defer c.metrics.ObserveRequest(endpoint, start)

	resp, err := c.breaker.Execute(func() (*response, error) {
		resp, err := c.roundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.status >= http.StatusInternalServerError {
			return nil, &APIError{Status: resp.status, Message: errorMessage(resp.body), body: resp.body}
		}
		return resp, nil
	})
	if err != nil {
		return err
	}

	if resp.status < 200 || resp.status >= 300 {
		return &APIError{Status: resp.status, Message: errorMessage(resp.body), body: resp.body}
	}

	if result != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) roundTrip(req *http.Request) (*response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

const maxErrorMessage = 200

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		n := maxErrorMessage
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return msg
}
