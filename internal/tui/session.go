package tui

import (
	"strings"

	"github.com/google/uuid"

	"github.com/thomas/codform-terminal/internal/order"
	"github.com/thomas/codform-terminal/internal/storefront"
)

// Mode selects how a session chooses what is ordered.
type Mode string

const (
	// ModeProduct orders a single catalog product.
	ModeProduct Mode = "product"
	// ModeCart orders the lines of an existing storefront cart.
	ModeCart Mode = "cart"
)

// Session is the per-SSH-session context shared by every form opened in it.
type Session struct {
	ID          string
	Shop        string
	User        string
	Mode        Mode
	CartToken   string
	Bootstrap   *storefront.Bootstrap
	Attribution order.Attribution
}

// NewSession creates a session for shop. args is the SSH command line:
// an optional "cart [token]" prefix and an optional landing page URL whose
// UTM parameters attribute every order placed in the session.
func NewSession(shop, user string, bs *storefront.Bootstrap, args []string) *Session {
	if bs == nil {
		bs = storefront.DefaultBootstrap(shop)
	}
	s := &Session{
		ID:        uuid.NewString(),
		Shop:      shop,
		User:      user,
		Mode:      ModeProduct,
		Bootstrap: bs,
	}

	for i := 0; i < len(args); i++ {
		arg := strings.TrimSpace(args[i])
		switch {
		case arg == "":
		case strings.EqualFold(arg, string(ModeCart)) && i == 0:
			s.Mode = ModeCart
			if i+1 < len(args) && !looksLikeURL(args[i+1]) {
				i++
				s.CartToken = strings.TrimSpace(args[i])
			}
		case looksLikeURL(arg):
			s.Attribution = order.ParseAttribution(arg)
		}
	}

	return s
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "?")
}

// Config returns the shop's merchant configuration.
func (s *Session) Config() *order.MerchantConfig {
	if s.Bootstrap == nil || s.Bootstrap.Config == nil {
		return order.DefaultConfig()
	}
	return s.Bootstrap.Config
}

// Country is the country customers of this session are assumed to be in.
func (s *Session) Country() string {
	return s.Config().DefaultCountry
}

// Provinces returns the province options for the session country.
func (s *Session) Provinces() []storefront.Province {
	return s.Bootstrap.ProvincesFor(s.Country())
}

// OpenOrder creates the builder for a newly opened form. An empty currency
// falls back to the shop currency.
func (s *Session) OpenOrder(items []order.CartItem, currency string) (*order.Builder, error) {
	if currency == "" {
		currency = s.Bootstrap.Currency
	}

	opts := []order.Option{
		order.WithShop(s.Shop),
		order.WithAttribution(s.Attribution),
		order.WithCountry(s.Country()),
	}
	if s.Mode == ModeCart {
		opts = append(opts, order.WithCartMode())
	}

	return order.New(s.Config(), items, currency, opts...)
}

// OpenEvent describes a form opened for b.
func (s *Session) OpenEvent(b *order.Builder) storefront.OpenEvent {
	ev := storefront.OpenEvent{
		Shop:        s.Shop,
		SessionID:   b.SessionID(),
		Mode:        string(s.Mode),
		UTMSource:   s.Attribution.Source,
		UTMMedium:   s.Attribution.Medium,
		UTMCampaign: s.Attribution.Campaign,
		LandingPage: s.Attribution.LandingPage,
	}
	if items := b.Items(); s.Mode == ModeProduct && len(items) > 0 {
		ev.ProductID = items[0].ID
	}
	return ev
}
