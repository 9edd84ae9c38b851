package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thomas/codform-terminal/internal/order"
)

// ErrOrderFailed wraps every order creation failure, whether the request
// never reached the server or the server refused it.
var ErrOrderFailed = errors.New("order could not be created")

// ErrMissingConfig is returned by FetchBootstrap when the response carries
// no configuration.
var ErrMissingConfig = errors.New("response has no config")

// APIError is a non-2xx response or an error envelope.
type APIError struct {
	Status  int
	Message string

	body []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront API error (status %d)", e.Status)
	}
	return fmt.Sprintf("storefront API error (status %d): %s", e.Status, e.Message)
}

// Province is an option of the province select.
type Province struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Bootstrap is everything a session needs to open forms for a shop.
type Bootstrap struct {
	Shop      string
	Currency  string
	Config    *order.MerchantConfig
	Provinces map[string][]Province
	Countries map[string]string
}

// DefaultBootstrap is used when a shop's configuration cannot be loaded.
func DefaultBootstrap(shop string) *Bootstrap {
	return &Bootstrap{Shop: shop, Config: order.DefaultConfig()}
}

// ProvincesFor returns the provinces of country, if known.
func (b *Bootstrap) ProvincesFor(country string) []Province {
	if b == nil {
		return nil
	}
	return b.Provinces[strings.ToUpper(country)]
}

// CountryName returns the display name of code, or code itself.
func (b *Bootstrap) CountryName(code string) string {
	if b != nil {
		if name, ok := b.Countries[strings.ToUpper(code)]; ok {
			return name
		}
	}
	return code
}

type bootstrapEnvelope struct {
	Success   *bool                 `json:"success,omitempty"`
	Error     string                `json:"error,omitempty"`
	Currency  string                `json:"currency,omitempty"`
	Config    json.RawMessage       `json:"config"`
	Provinces map[string][]Province `json:"provinces"`
	Countries map[string]string     `json:"countries"`
}

// OrderResult is a created order.
type OrderResult struct {
	WhatsAppLink string `json:"whatsappLink"`
}

type createOrderResponse struct {
	Success bool        `json:"success"`
	Data    OrderResult `json:"data"`
	Error   string      `json:"error"`
}

// OpenEvent is the telemetry beacon sent when a form is opened.
type OpenEvent struct {
	Shop        string `json:"shop"`
	SessionID   string `json:"sessionId"`
	Mode        string `json:"mode"`
	ProductID   string `json:"productId,omitempty"`
	UTMSource   string `json:"utmSource,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	LandingPage string `json:"landingPage,omitempty"`
}

// Product is a catalog product from /products.json.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Handle   string    `json:"handle"`
	BodyHTML string    `json:"body_html"`
	Variants []Variant `json:"variants"`
	Images   []Image   `json:"images"`
}

// Variant is a purchasable variant of a product.
type Variant struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

// Image is a product image.
type Image struct {
	Src string `json:"src"`
}

// DefaultVariant returns the first available variant, or the first one.
func (p Product) DefaultVariant() (Variant, bool) {
	for _, v := range p.Variants {
		if v.Available {
			return v, true
		}
	}
	if len(p.Variants) > 0 {
		return p.Variants[0], true
	}
	return Variant{}, false
}

// Price returns the price of the default variant. Unparseable prices are 0.
func (p Product) Price() decimal.Decimal {
	v, ok := p.DefaultVariant()
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.Price))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CartItem turns the product's default variant into a single order line.
func (p Product) CartItem() order.CartItem {
	item := order.CartItem{
		ID:       strconv.FormatInt(p.ID, 10),
		Title:    p.Title,
		Price:    p.Price(),
		Quantity: 1,
	}
	if v, ok := p.DefaultVariant(); ok {
		item.VariantID = strconv.FormatInt(v.ID, 10)
		if v.Title != "" && v.Title != "Default Title" {
			item.Title = p.Title + " - " + v.Title
		}
	}
	if len(p.Images) > 0 {
		item.Image = p.Images[0].Src
	}
	return item
}

type productsResponse struct {
	Products []Product `json:"products"`
}

// Cart is the /cart.js document. Prices are in minor units.
type Cart struct {
	Token     string     `json:"token"`
	Currency  string     `json:"currency"`
	ItemCount int        `json:"item_count"`
	Items     []CartLine `json:"items"`
}

// CartLine is a line of a cart.
type CartLine struct {
	ProductID    int64  `json:"product_id"`
	VariantID    int64  `json:"variant_id"`
	Title        string `json:"title"`
	ProductTitle string `json:"product_title"`
	Price        int64  `json:"price"`
	Quantity     int    `json:"quantity"`
	Image        string `json:"image"`
}

// OrderItems converts the cart lines to order lines.
func (c *Cart) OrderItems() []order.CartItem {
	items := make([]order.CartItem, 0, len(c.Items))
	for _, l := range c.Items {
		title := l.Title
		if title == "" {
			title = l.ProductTitle
		}
		items = append(items, order.CartItem{
			ID:        strconv.FormatInt(l.ProductID, 10),
			VariantID: strconv.FormatInt(l.VariantID, 10),
			Title:     title,
			Price:     decimal.New(l.Price, -2),
			Image:     l.Image,
			Quantity:  l.Quantity,
		})
	}
	return items
}
