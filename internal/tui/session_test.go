package tui

import (
	"testing"

	"github.com/thomas/codform-terminal/internal/order"
	"github.com/thomas/codform-terminal/internal/storefront"
)

func TestNewSessionArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		mode     Mode
		token    string
		campaign string
	}{
		{"no args", nil, ModeProduct, "", ""},
		{"landing page", []string{"https://tienda.example/?utm_campaign=navidad"}, ModeProduct, "", "navidad"},
		{"query only", []string{"?utm_campaign=verano"}, ModeProduct, "", "verano"},
		{"cart", []string{"cart"}, ModeCart, "", ""},
		{"cart with token", []string{"cart", "tok123"}, ModeCart, "tok123", ""},
		{"cart with landing", []string{"CART", "https://tienda.example/cart?utm_campaign=x"}, ModeCart, "", "x"},
		{"cart not first", []string{"https://tienda.example/", "cart"}, ModeProduct, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("demo.myshopify.com", "ana", nil, tt.args)
			if s.Mode != tt.mode {
				t.Errorf("expected mode %q, got %q", tt.mode, s.Mode)
			}
			if s.CartToken != tt.token {
				t.Errorf("expected token %q, got %q", tt.token, s.CartToken)
			}
			if s.Attribution.Campaign != tt.campaign {
				t.Errorf("expected campaign %q, got %q", tt.campaign, s.Attribution.Campaign)
			}
			if s.ID == "" {
				t.Error("expected a session id")
			}
		})
	}
}

func TestSessionOpenOrder(t *testing.T) {
	cfg := order.DefaultConfig()
	cfg.DefaultCountry = "MX"
	bs := &storefront.Bootstrap{
		Currency:  "MXN",
		Config:    cfg,
		Provinces: map[string][]storefront.Province{"MX": {{Value: "JAL", Label: "Jalisco"}}},
	}
	s := NewSession("demo.myshopify.com", "ana", bs, []string{"?utm_source=ig"})

	b, err := s.OpenOrder([]order.CartItem{{ID: "1", Title: "Crema"}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Currency() != "MXN" {
		t.Errorf("expected shop currency, got %q", b.Currency())
	}
	if b.Customer().Country != "MX" {
		t.Errorf("expected MX customer country, got %q", b.Customer().Country)
	}
	if b.Shop() != "demo.myshopify.com" {
		t.Errorf("unexpected shop %q", b.Shop())
	}
	if len(s.Provinces()) != 1 {
		t.Errorf("expected provinces for MX, got %v", s.Provinces())
	}

	ev := s.OpenEvent(b)
	if ev.ProductID != "1" || ev.UTMSource != "ig" || ev.SessionID != b.SessionID() {
		t.Errorf("unexpected open event: %+v", ev)
	}

	if _, err := s.OpenOrder(nil, ""); err == nil {
		t.Error("expected error for an empty order")
	}
}
