package tui

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/thomas/codform-terminal/internal/logger"
	"github.com/thomas/codform-terminal/internal/order"
	"github.com/thomas/codform-terminal/internal/storefront"
)

const testLink = "https://wa.me/18095551234?text=Pedido"

var testProducts = []storefront.Product{
	{ID: 1, Title: "Crema hidratante", Variants: []storefront.Variant{{ID: 11, Price: "750.00", Available: true}}},
	{ID: 2, Title: "Jabón natural", Variants: []storefront.Variant{{ID: 21, Price: "300.00", Available: true}}},
}

type testServer struct {
	*httptest.Server
	orders  atomic.Int32
	opens   atomic.Int32
	lastReq atomic.Pointer[order.OrderRequest]
}

// setupTestModel creates a model with a mock storefront for testing.
func setupTestModel(t *testing.T, cfg *order.MerchantConfig, args []string, opts ...Option) (Model, *testServer) {
	t.Helper()

	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/products.json":
			json.NewEncoder(w).Encode(map[string]any{"products": testProducts})
		case "/cart.js":
			w.Write([]byte(`{"currency": "DOP", "items": [
				{"product_id": 1, "variant_id": 11, "title": "Crema hidratante", "price": 75000, "quantity": 2},
				{"product_id": 2, "variant_id": 21, "title": "Jabón natural", "price": 30000, "quantity": 1}
			]}`))
		case "/api/track-open":
			ts.opens.Add(1)
			w.Write([]byte(`{"success": true}`))
		case "/api/create-order":
			ts.orders.Add(1)
			var req order.OrderRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decoding order: %v", err)
			}
			ts.lastReq.Store(&req)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]string{"whatsappLink": testLink},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	if cfg == nil {
		cfg = order.DefaultConfig()
	}
	bs := &storefront.Bootstrap{Shop: "demo.myshopify.com", Currency: "DOP", Config: cfg}
	session := NewSession("demo.myshopify.com", "agente", bs, args)
	client := storefront.NewClient(ts.URL, storefront.WithShop("demo.myshopify.com"), storefront.WithLogger(logger.Discard()))

	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	model := NewModel(client, session, opts...)

	next, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model), ts
}

// runCmd executes cmd, flattening batches, and returns the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// openFirstProduct loads the catalog and opens an order for the first product.
func openFirstProduct(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, productsLoadedMsg{products: testProducts})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.GetViewState() != ViewSummary {
		t.Fatalf("expected summary view, got %v", m.GetViewState())
	}
	return m
}

func fillValidCustomer(m Model) {
	*m.values.text[order.FieldName] = "Ana Pérez"
	*m.values.text[order.FieldPhone] = "809-555-1234"
	*m.values.text[order.FieldAddress] = "Calle El Sol 12"
}

func TestNewModel(t *testing.T) {
	m, _ := setupTestModel(t, nil, nil)

	if m.GetViewState() != ViewCatalog {
		t.Errorf("expected initial view state to be Catalog, got %v", m.GetViewState())
	}
	if !m.loadingProducts {
		t.Error("expected products to be loading")
	}
	if m.Builder() != nil {
		t.Error("expected no open order initially")
	}
}

func TestInitLoadsProducts(t *testing.T) {
	m, _ := setupTestModel(t, nil, nil)

	var loaded *productsLoadedMsg
	for _, msg := range runCmd(m.Init()) {
		if p, ok := msg.(productsLoadedMsg); ok {
			loaded = &p
		}
	}
	if loaded == nil {
		t.Fatal("expected products to be loaded")
	}
	if len(loaded.products) != 2 {
		t.Errorf("expected 2 products, got %d", len(loaded.products))
	}
}

func TestOpenProductOrder(t *testing.T) {
	m, ts := setupTestModel(t, nil, []string{"https://tienda.example/crema?utm_source=tiktok"})

	m, _ = update(t, m, productsLoadedMsg{products: testProducts})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.GetViewState() != ViewSummary {
		t.Fatalf("expected summary view, got %v", m.GetViewState())
	}

	b := m.Builder()
	if qty, ok := b.Quantity(); !ok || qty != 1 {
		t.Errorf("expected single-item quantity 1, got %d (%v)", qty, ok)
	}
	if !b.Total().Equal(decimal.NewFromInt(750)) {
		t.Errorf("expected total 750, got %s", b.Total())
	}
	if b.Attribution().Source != "tiktok" {
		t.Errorf("expected session attribution, got %+v", b.Attribution())
	}

	runCmd(cmd)
	if ts.opens.Load() != 1 {
		t.Errorf("expected one open beacon, got %d", ts.opens.Load())
	}
}

func TestSummaryQuantityKeys(t *testing.T) {
	m, _ := setupTestModel(t, nil, nil)
	m = openFirstProduct(t, m)

	m, _ = update(t, m, keyRunes("+"))
	m, _ = update(t, m, keyRunes("+"))
	m, _ = update(t, m, keyRunes("-"))

	if qty, _ := m.Builder().Quantity(); qty != 2 {
		t.Errorf("expected quantity 2, got %d", qty)
	}
	if !m.Builder().Total().Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected total 1500, got %s", m.Builder().Total())
	}

	for i := 0; i < 5; i++ {
		m, _ = update(t, m, keyRunes("-"))
	}
	if qty, _ := m.Builder().Quantity(); qty != order.MinQuantity {
		t.Errorf("expected quantity clamped to %d, got %d", order.MinQuantity, qty)
	}
}

func TestSummaryShippingSelection(t *testing.T) {
	cfg := order.DefaultConfig()
	cfg.EnableShipping = true
	cfg.CustomShippingRates = []order.ShippingRate{
		{Name: "Estándar", Price: order.ParseNumber("100")},
		{Name: "Express", Price: order.ParseNumber("250")},
	}

	m, _ := setupTestModel(t, cfg, nil)
	m = openFirstProduct(t, m)

	if got := m.Builder().ShippingMethod(); got != order.RateID(0) {
		t.Fatalf("expected first rate selected, got %q", got)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if got := m.Builder().ShippingMethod(); got != order.RateID(1) {
		t.Errorf("expected second rate selected, got %q", got)
	}
	if !m.Builder().Total().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected total 1000, got %s", m.Builder().Total())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.shippingIdx != 1 {
		t.Errorf("expected cursor to stay on last option, got %d", m.shippingIdx)
	}

	if !strings.Contains(m.View(), "Express") {
		t.Error("expected shipping options in summary view")
	}
}

func TestFreeShippingForcedByQuantity(t *testing.T) {
	cfg := order.DefaultConfig()
	cfg.EnableShipping = true
	cfg.CustomShippingRates = []order.ShippingRate{{Name: "Estándar", Price: order.ParseNumber("150")}}
	cfg.FreeShippingEnabled = true
	cfg.FreeShippingThreshold = order.ParseNumber("1500")

	m, _ := setupTestModel(t, cfg, nil)
	m = openFirstProduct(t, m)

	if !strings.Contains(m.View(), "Te faltan") {
		t.Error("expected free shipping progress in summary")
	}

	m, _ = update(t, m, keyRunes("+"))
	if got := m.Builder().ShippingMethod(); got != order.ShippingFree {
		t.Errorf("expected free shipping forced, got %q", got)
	}
	if m.Builder().ShippingOptions()[m.shippingIdx].ID != order.ShippingFree {
		t.Error("expected cursor to follow the forced method")
	}

	m, _ = update(t, m, keyRunes("-"))
	if got := m.Builder().ShippingMethod(); got != order.RateID(0) {
		t.Errorf("expected fallback to paid rate, got %q", got)
	}
}

func TestEnterOpensFormAndEscReturns(t *testing.T) {
	m, _ := setupTestModel(t, nil, nil)
	m = openFirstProduct(t, m)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.GetViewState() != ViewForm || m.form == nil {
		t.Fatalf("expected form view, got %v", m.GetViewState())
	}

	*m.values.text[order.FieldName] = "Ana"
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.GetViewState() != ViewSummary {
		t.Errorf("expected summary after esc, got %v", m.GetViewState())
	}
	if *m.values.text[order.FieldName] != "Ana" {
		t.Error("expected typed values to survive leaving the form")
	}
}

func TestSubmitInvalidShowsFieldErrors(t *testing.T) {
	m, ts := setupTestModel(t, nil, nil)
	m = openFirstProduct(t, m)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	*m.values.text[order.FieldEmail] = "no-es-correo"
	next, cmd := m.submit()
	m = next.(Model)

	if cmd != nil {
		t.Error("expected no request for an invalid form")
	}
	if m.GetViewState() != ViewSummary {
		t.Fatalf("expected summary view, got %v", m.GetViewState())
	}
	for _, field := range []string{order.FieldName, order.FieldPhone, order.FieldAddress, order.FieldEmail} {
		if _, ok := m.fieldErrors[field]; !ok {
			t.Errorf("expected error for %s", field)
		}
	}
	if m.Builder().Status() != order.StatusOpen {
		t.Errorf("expected builder to stay open, got %v", m.Builder().Status())
	}
	if !strings.Contains(m.View(), order.MsgRequired) {
		t.Error("expected field errors in summary view")
	}
	if ts.orders.Load() != 0 {
		t.Error("expected no order to be posted")
	}

	// Errors are carried into the rebuilt form
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.GetViewState() != ViewForm {
		t.Errorf("expected form to reopen, got %v", m.GetViewState())
	}
}

func TestSubmitLimitErrorShowsBanner(t *testing.T) {
	cfg := order.DefaultConfig()
	cfg.EnableMinOrder = true
	cfg.MinOrderAmount = order.ParseNumber("1000")

	m, _ := setupTestModel(t, cfg, nil)
	m = openFirstProduct(t, m)
	fillValidCustomer(m)

	next, _ := m.submit()
	m = next.(Model)

	if !strings.Contains(m.banner, "RD$1,000.00") {
		t.Errorf("expected minimum order banner, got %q", m.banner)
	}
}

func TestSubmitValidCreatesOrder(t *testing.T) {
	var clip bytes.Buffer
	m, ts := setupTestModel(t, nil, nil, WithClipboard(&clip))
	m = openFirstProduct(t, m)
	fillValidCustomer(m)

	next, cmd := m.submit()
	m = next.(Model)

	if m.GetViewState() != ViewSubmitting {
		t.Fatalf("expected submitting view, got %v", m.GetViewState())
	}
	if m.Builder().Status() != order.StatusSubmitting {
		t.Errorf("expected builder to be submitting, got %v", m.Builder().Status())
	}

	var created tea.Msg
	for _, msg := range runCmd(cmd) {
		if _, ok := msg.(orderCreatedMsg); ok {
			created = msg
		}
	}
	if created == nil {
		t.Fatal("expected order to be created")
	}

	req := ts.lastReq.Load()
	if req == nil || req.Customer.Name != "Ana Pérez" || req.Shop != "demo.myshopify.com" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Currency != "DOP" || !req.Total.Equal(decimal.NewFromInt(750)) {
		t.Errorf("unexpected totals: %s %s", req.Currency, req.Total.String())
	}

	m, cmd = update(t, m, created)
	if m.GetViewState() != ViewConfirmation {
		t.Fatalf("expected confirmation view, got %v", m.GetViewState())
	}
	if m.Builder().Status() != order.StatusSuccess {
		t.Errorf("expected builder success, got %v", m.Builder().Status())
	}
	if cmd == nil {
		t.Error("expected auto-redirect timer")
	}
	if !strings.Contains(m.View(), testLink) {
		t.Error("expected WhatsApp link in confirmation view")
	}

	// Timer expiry copies the link
	m, cmd = update(t, m, redirectMsg{orderID: m.Builder().SessionID()})
	for _, msg := range runCmd(cmd) {
		m, _ = update(t, m, msg)
	}
	if !m.copied {
		t.Error("expected link to be copied")
	}
	if !strings.Contains(clip.String(), base64.StdEncoding.EncodeToString([]byte(testLink))) {
		t.Errorf("expected OSC 52 sequence, got %q", clip.String())
	}

	// Enter starts over
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.GetViewState() != ViewCatalog || m.Builder() != nil {
		t.Error("expected a fresh catalog after confirmation")
	}
}

func TestStaleRedirectIgnored(t *testing.T) {
	var clip bytes.Buffer
	m, _ := setupTestModel(t, nil, nil, WithClipboard(&clip))
	m = openFirstProduct(t, m)
	fillValidCustomer(m)

	next, _ := m.submit()
	m = next.(Model)
	m, _ = update(t, m, orderCreatedMsg{result: &storefront.OrderResult{WhatsAppLink: testLink}})

	_, cmd := update(t, m, redirectMsg{orderID: "otro-pedido"})
	if cmd != nil {
		t.Error("expected redirect for another order to be ignored")
	}
}

func TestAutoRedirectDisabled(t *testing.T) {
	cfg := order.DefaultConfig()
	off := false
	cfg.AutoRedirectWhatsApp = &off

	m, _ := setupTestModel(t, cfg, nil)
	m = openFirstProduct(t, m)
	fillValidCustomer(m)

	next, _ := m.submit()
	m = next.(Model)
	_, cmd := update(t, m, orderCreatedMsg{result: &storefront.OrderResult{WhatsAppLink: testLink}})
	if cmd != nil {
		t.Error("expected no redirect timer when auto redirect is off")
	}
}

func TestOrderFailureKeepsValues(t *testing.T) {
	m, _ := setupTestModel(t, nil, nil)
	m = openFirstProduct(t, m)
	fillValidCustomer(m)

	next, _ := m.submit()
	m = next.(Model)
	m, _ = update(t, m, orderFailedMsg{err: storefront.ErrOrderFailed})

	if m.GetViewState() != ViewSummary {
		t.Fatalf("expected summary view, got %v", m.GetViewState())
	}
	if m.banner != MsgOrderFailed {
		t.Errorf("expected generic failure banner, got %q", m.banner)
	}
	if m.Builder().Status() != order.StatusOpen {
		t.Errorf("expected builder reopened, got %v", m.Builder().Status())
	}
	if *m.values.text[order.FieldName] != "Ana Pérez" || m.Builder().Customer().Name != "Ana Pérez" {
		t.Error("expected values to be preserved")
	}

	// Submission is possible again
	next, _ = m.submit()
	m = next.(Model)
	if m.GetViewState() != ViewSubmitting {
		t.Errorf("expected retry to submit, got %v", m.GetViewState())
	}
}

func TestEscDiscardsOrder(t *testing.T) {
	m, _ := setupTestModel(t, nil, nil)
	m = openFirstProduct(t, m)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.GetViewState() != ViewCatalog {
		t.Errorf("expected catalog view, got %v", m.GetViewState())
	}
	if m.Builder() != nil {
		t.Error("expected order to be discarded")
	}
}

func TestCartMode(t *testing.T) {
	m, _ := setupTestModel(t, nil, []string{"cart", "tok123"})

	if m.GetViewState() != ViewCartToken || !m.loadingCart {
		t.Fatalf("expected cart loading, got view %v", m.GetViewState())
	}

	var loaded tea.Msg
	for _, msg := range runCmd(m.Init()) {
		if _, ok := msg.(cartLoadedMsg); ok {
			loaded = msg
		}
	}
	if loaded == nil {
		t.Fatal("expected cart to load")
	}

	m, _ = update(t, m, loaded)
	if m.GetViewState() != ViewSummary {
		t.Fatalf("expected summary view, got %v", m.GetViewState())
	}

	b := m.Builder()
	if _, ok := b.Quantity(); ok {
		t.Error("expected no quantity selector in cart mode")
	}
	if !b.Subtotal().Equal(decimal.NewFromInt(1800)) {
		t.Errorf("expected subtotal 1800, got %s", b.Subtotal())
	}

	m, _ = update(t, m, keyRunes("+"))
	if !m.Builder().Subtotal().Equal(decimal.NewFromInt(1800)) {
		t.Error("expected quantity keys to be ignored in cart mode")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.GetViewState() != ViewCartToken {
		t.Errorf("expected to return to cart input, got %v", m.GetViewState())
	}
}

func TestCartTokenPrompt(t *testing.T) {
	m, _ := setupTestModel(t, nil, []string{"cart"})

	if m.loadingCart {
		t.Fatal("expected token prompt without a token")
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.loadingCart {
		t.Error("expected empty token to be ignored")
	}

	m, _ = update(t, m, keyRunes("tok123"))
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.loadingCart || cmd == nil {
		t.Error("expected cart load to start")
	}
}
