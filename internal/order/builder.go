// Package order implements the COD order builder: pricing, shipping policy,
// form layout and validation for a single open order form.
package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Quantity bounds in single-item mode.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Status is the submission state of a Builder.
type Status int

const (
	StatusOpen Status = iota
	StatusSubmitting
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusSubmitting:
		return "SUBMITTING"
	case StatusSuccess:
		return "SUCCESS"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var (
	// ErrEmptyCart is returned when a builder is created without items.
	ErrEmptyCart = errors.New("order: cart has no items")
	// ErrSubmissionInFlight is returned when a submission is already running.
	ErrSubmissionInFlight = errors.New("order: submission already in progress")
	// ErrAlreadySubmitted is returned once the order has been created.
	ErrAlreadySubmitted = errors.New("order: already submitted")
)

// Builder holds the state of one open order form. A Builder is not safe
// for concurrent use.
type Builder struct {
	cfg         *MerchantConfig
	items       []CartItem
	currency    string
	shop        string
	sessionID   string
	country     string
	attribution Attribution
	cartMode    bool

	quantity       *int
	shippingMethod string
	subtotal       decimal.Decimal
	shipping       decimal.Decimal
	codFee         decimal.Decimal
	total          decimal.Decimal

	customer      Customer
	custom        map[string]string
	termsAccepted bool
	status        Status
}

// Option configures a Builder.
type Option func(*Builder)

// WithShop sets the shop domain sent with the order.
func WithShop(shop string) Option {
	return func(b *Builder) {
		b.shop = strings.TrimSpace(shop)
	}
}

// WithAttribution records the UTM values captured when the session started.
func WithAttribution(a Attribution) Option {
	return func(b *Builder) {
		b.attribution = a
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(b *Builder) {
		if id != "" {
			b.sessionID = id
		}
	}
}

// WithCountry overrides the configured default country.
func WithCountry(code string) Option {
	return func(b *Builder) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			b.country = code
		}
	}
}

// WithCartMode keeps the cart quantities as given even for a single line.
func WithCartMode() Option {
	return func(b *Builder) {
		b.cartMode = true
	}
}

// New opens an order form for items. A single item puts the builder in
// single-item mode, where the quantity is chosen on the form; otherwise, or
// with WithCartMode, the cart quantities are used as given. A nil cfg uses
// DefaultConfig. The builder works on a normalized copy of cfg.
func New(cfg *MerchantConfig, items []CartItem, currency string, opts ...Option) (*Builder, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.normalized()
	}

	b := &Builder{
		cfg:       cfg,
		items:     append([]CartItem(nil), items...),
		currency:  NormalizeCurrency(currency),
		sessionID: uuid.NewString(),
		country:   cfg.DefaultCountry,
		custom:    make(map[string]string),
		status:    StatusOpen,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.customer.Country = b.country

	if len(b.items) == 1 && !b.cartMode {
		q := MinQuantity
		b.quantity = &q
	} else {
		for i := range b.items {
			if b.items[i].Quantity < 1 {
				b.items[i].Quantity = 1
			}
		}
	}

	b.subtotal = subtotalOf(b.items, b.quantity)
	b.shippingMethod = defaultShippingMethod(cfg.ShippingOptions(b.subtotal))
	b.recompute()
	return b, nil
}

// recompute derives subtotal, fee, shipping and total from the current
// selection. Qualifying for free shipping forces it; losing qualification
// falls back to the first other option offered.
func (b *Builder) recompute() {
	b.subtotal = subtotalOf(b.items, b.quantity)
	b.codFee = b.cfg.CODFee(b.subtotal)

	opts := b.cfg.ShippingOptions(b.subtotal)
	switch {
	case b.cfg.QualifiesForFreeShipping(b.subtotal):
		b.shippingMethod = ShippingFree
		b.shipping = decimal.Zero
	case b.shippingMethod == ShippingFree:
		if o, ok := fallbackShippingMethod(opts); ok {
			b.shippingMethod = o.ID
			b.shipping = o.Price
		} else {
			b.shippingMethod = ""
			b.shipping = decimal.Zero
		}
	default:
		b.applyShipping(opts)
	}

	b.total = b.subtotal.Add(b.shipping).Add(b.codFee)
}

// applyShipping prices the current method, dropping it if no longer offered.
func (b *Builder) applyShipping(opts []ShippingOption) {
	if b.shippingMethod == "" {
		b.shipping = decimal.Zero
		return
	}
	o, ok := findOption(opts, b.shippingMethod)
	if !ok {
		b.shippingMethod = ""
		b.shipping = decimal.Zero
		return
	}
	b.shipping = o.Price
}

// IsSingleItem reports whether the quantity is chosen on the form.
func (b *Builder) IsSingleItem() bool {
	return b.quantity != nil
}

// SetQuantity sets the single-item quantity, clamped to [1, 99]. It is a
// no-op in cart mode.
func (b *Builder) SetQuantity(n int) {
	if b.quantity == nil {
		return
	}
	n = lo.Clamp(n, MinQuantity, MaxQuantity)
	b.quantity = &n
	b.recompute()
}

// IncrementQuantity adds one to the quantity.
func (b *Builder) IncrementQuantity() {
	if b.quantity != nil {
		b.SetQuantity(*b.quantity + 1)
	}
}

// DecrementQuantity removes one from the quantity.
func (b *Builder) DecrementQuantity() {
	if b.quantity != nil {
		b.SetQuantity(*b.quantity - 1)
	}
}

// SelectShippingMethod selects an offered shipping option. Identifiers that
// are not currently offered are ignored and false is returned.
func (b *Builder) SelectShippingMethod(id string) bool {
	o, ok := findOption(b.ShippingOptions(), id)
	if !ok {
		return false
	}
	b.shippingMethod = o.ID
	b.shipping = o.Price
	b.total = b.subtotal.Add(b.shipping).Add(b.codFee)
	return true
}

// SetCustomerField sets a builtin customer field. Unknown identifiers are
// ignored.
func (b *Builder) SetCustomerField(id, value string) bool {
	return b.customer.SetField(id, value)
}

// SetCustomer replaces all builtin customer fields.
func (b *Builder) SetCustomer(c Customer) {
	if c.Country == "" {
		c.Country = b.country
	}
	b.customer = c
}

// SetCustomField sets the value of a custom input field.
func (b *Builder) SetCustomField(id, value string) {
	if value == "" {
		delete(b.custom, id)
		return
	}
	b.custom[id] = value
}

// SetCustomChecked sets a custom checkbox.
func (b *Builder) SetCustomChecked(id string, checked bool) {
	if checked {
		b.custom[id] = "true"
		return
	}
	delete(b.custom, id)
}

// SetTermsAccepted records whether the terms checkbox is ticked.
func (b *Builder) SetTermsAccepted(accepted bool) {
	b.termsAccepted = accepted
}

type formInput struct {
	customer       Customer
	custom         map[string]string
	acceptedTerms  bool
	subtotal       decimal.Decimal
	currency       string
	shippingMethod string
	options        []ShippingOption
}

func (b *Builder) input(customer Customer, custom map[string]string, acceptedTerms bool) formInput {
	return formInput{
		customer:       customer,
		custom:         custom,
		acceptedTerms:  acceptedTerms,
		subtotal:       b.subtotal,
		currency:       b.currency,
		shippingMethod: b.shippingMethod,
		options:        b.ShippingOptions(),
	}
}

// Validate checks the given values against the current order without
// changing its state. It returns nil when the form can be submitted.
func (b *Builder) Validate(customer Customer, custom map[string]string, acceptedTerms bool) ValidationErrors {
	errs := validateForm(b.cfg, b.input(customer, custom, acceptedTerms))
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateAndBuildRequest records the submitted values, validates them and,
// when every check passes, moves the builder to SUBMITTING and returns the
// order request. Validation failures are returned as ValidationErrors and
// leave the builder open.
func (b *Builder) ValidateAndBuildRequest(customer Customer, custom map[string]string, acceptedTerms bool) (*OrderRequest, error) {
	switch b.status {
	case StatusSubmitting:
		return nil, ErrSubmissionInFlight
	case StatusSuccess:
		return nil, ErrAlreadySubmitted
	}

	b.SetCustomer(customer)
	b.custom = make(map[string]string, len(custom))
	for k, v := range custom {
		b.SetCustomField(k, v)
	}
	b.termsAccepted = acceptedTerms

	if errs := b.Validate(b.customer, b.custom, b.termsAccepted); errs != nil {
		return nil, errs
	}

	req := b.buildRequest()
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("building order request: %w", err)
	}
	b.status = StatusSubmitting
	return req, nil
}

// Submit validates the values held by the builder and builds the request.
func (b *Builder) Submit() (*OrderRequest, error) {
	return b.ValidateAndBuildRequest(b.customer, b.CustomValues(), b.termsAccepted)
}

// CompleteSubmission marks the order as created.
func (b *Builder) CompleteSubmission() {
	if b.status == StatusSubmitting {
		b.status = StatusSuccess
	}
}

// FailSubmission reopens the form after a failed submission. Entered values
// are kept.
func (b *Builder) FailSubmission() {
	if b.status == StatusSubmitting {
		b.status = StatusOpen
	}
}

func (b *Builder) buildRequest() *OrderRequest {
	items := make([]OrderItem, len(b.items))
	for i, it := range b.items {
		items[i] = OrderItem{
			ID:        it.ID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Price:     NewNumber(it.Price),
			Quantity:  effectiveQuantity(it, b.quantity),
			Image:     it.Image,
		}
	}

	c := b.customer
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.Province = strings.TrimSpace(c.Province)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	c.Notes = strings.TrimSpace(c.Notes)

	req := &OrderRequest{
		Shop:          b.shop,
		SessionID:     b.sessionID,
		Items:         items,
		Currency:      b.currency,
		Subtotal:      NewNumber(b.subtotal),
		Shipping:      NewNumber(b.shipping),
		CODFee:        NewNumber(b.codFee),
		Total:         NewNumber(b.total),
		Customer:      c,
		CustomFields:  b.CustomValues(),
		AcceptedTerms: b.termsAccepted,
		UTMSource:     b.attribution.Source,
		UTMMedium:     b.attribution.Medium,
		UTMCampaign:   b.attribution.Campaign,
		UTMTerm:       b.attribution.Term,
		UTMContent:    b.attribution.Content,
		LandingPage:   b.attribution.LandingPage,
	}
	if b.shippingMethod != "" {
		method := b.shippingMethod
		req.ShippingMethod = &method
		if o, ok := findOption(b.ShippingOptions(), method); ok {
			req.ShippingLabel = o.Label
		}
	}
	return req
}

// Subtotal is the sum of all line totals.
func (b *Builder) Subtotal() decimal.Decimal { return b.subtotal }

// Shipping is the cost of the selected shipping method.
func (b *Builder) Shipping() decimal.Decimal { return b.shipping }

// CODFee is the cash-on-delivery fee.
func (b *Builder) CODFee() decimal.Decimal { return b.codFee }

// Total is subtotal plus shipping plus fee.
func (b *Builder) Total() decimal.Decimal { return b.total }

// Quantity returns the selected quantity and false in cart mode.
func (b *Builder) Quantity() (int, bool) {
	if b.quantity == nil {
		return 0, false
	}
	return *b.quantity, true
}

// ShippingMethod returns the selected method identifier, or "" for none.
func (b *Builder) ShippingMethod() string { return b.shippingMethod }

// ShippingOptions lists the options currently offered.
func (b *Builder) ShippingOptions() []ShippingOption {
	return b.cfg.ShippingOptions(b.subtotal)
}

// QualifiesForFreeShipping reports whether the subtotal reached the threshold.
func (b *Builder) QualifiesForFreeShipping() bool {
	return b.cfg.QualifiesForFreeShipping(b.subtotal)
}

// AmountToFreeShipping is the remaining amount before shipping becomes free.
func (b *Builder) AmountToFreeShipping() decimal.Decimal {
	return b.cfg.AmountToFreeShipping(b.subtotal)
}

// FreeShippingProgress returns the subtotal as a fraction of the free
// shipping threshold, capped at 1.
func (b *Builder) FreeShippingProgress() float64 {
	if !b.cfg.FreeShippingEnabled || !b.cfg.FreeShippingThreshold.IsPositive() {
		return 0
	}
	p, _ := b.subtotal.Div(b.cfg.FreeShippingThreshold.Decimal).Float64()
	return lo.Clamp(p, 0, 1)
}

// Items returns the cart lines with their effective quantities.
func (b *Builder) Items() []CartItem {
	return lo.Map(b.items, func(it CartItem, _ int) CartItem {
		it.Quantity = effectiveQuantity(it, b.quantity)
		return it
	})
}

// Currency is the ISO code prices are expressed in.
func (b *Builder) Currency() string { return b.currency }

// Config returns the merchant configuration the form was opened with.
func (b *Builder) Config() *MerchantConfig { return b.cfg }

// Status returns the submission state.
func (b *Builder) Status() Status { return b.status }

// Customer returns the builtin field values.
func (b *Builder) Customer() Customer { return b.customer }

// CustomValues returns a copy of the custom field values.
func (b *Builder) CustomValues() map[string]string {
	out := make(map[string]string, len(b.custom))
	for k, v := range b.custom {
		out[k] = v
	}
	return out
}

// TermsAccepted reports whether the terms checkbox is ticked.
func (b *Builder) TermsAccepted() bool { return b.termsAccepted }

// SessionID identifies the form session.
func (b *Builder) SessionID() string { return b.sessionID }

// Shop is the shop domain orders are created for.
func (b *Builder) Shop() string { return b.shop }

// Attribution returns the UTM values captured at session start.
func (b *Builder) Attribution() Attribution { return b.attribution }

// FormatMoney formats amount in the builder's currency.
func (b *Builder) FormatMoney(amount decimal.Decimal) string {
	return FormatMoney(amount, b.currency)
}
