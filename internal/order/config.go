package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// COD fee calculation modes.
const (
	CODFeeFixed      = "fixed"
	CODFeePercentage = "percentage"
)

// FieldToggles controls the visibility of optional builtin fields.
type FieldToggles struct {
	ShowEmail      bool `json:"showEmail"`
	ShowCity       bool `json:"showCity"`
	ShowProvince   bool `json:"showProvince"`
	ShowPostalCode bool `json:"showPostalCode"`
	ShowNotes      bool `json:"showNotes"`
	ShowQuantity   bool `json:"showQuantity"`
}

// RequiredFields marks optional builtin fields as required. A flag only
// applies while the matching field is visible.
type RequiredFields struct {
	Email      bool `json:"email"`
	City       bool `json:"city"`
	Province   bool `json:"province"`
	PostalCode bool `json:"postalCode"`
	Notes      bool `json:"notes"`
}

// MerchantConfig is the per-shop form configuration. It is read-only once a
// Builder has been created from it and may be shared between builders.
type MerchantConfig struct {
	Labels       map[string]string `json:"labels"`
	Placeholders map[string]string `json:"placeholders"`
	Fields       FieldToggles      `json:"fields"`
	Required     RequiredFields    `json:"required"`
	FieldOrder   []string          `json:"fieldOrder"`
	CustomFields []CustomField     `json:"customFields"`

	EnableShipping        bool           `json:"enableShipping"`
	EnablePickup          bool           `json:"enablePickup"`
	CustomShippingRates   []ShippingRate `json:"customShippingRates"`
	FreeShippingEnabled   bool           `json:"freeShippingEnabled"`
	FreeShippingThreshold Number         `json:"freeShippingThreshold"`
	FreeShippingLabel     string         `json:"freeShippingLabel"`
	PickupName            string         `json:"pickupName"`
	PickupAddress         string         `json:"pickupAddress"`

	EnableCODFee bool   `json:"enableCodFee"`
	CODFeeType   string `json:"codFeeType"`
	CODFeeAmount Number `json:"codFeeAmount"`

	EnableMinOrder  bool   `json:"enableMinOrder"`
	MinOrderAmount  Number `json:"minOrderAmount"`
	MinOrderMessage string `json:"minOrderMessage"`
	EnableMaxOrder  bool   `json:"enableMaxOrder"`
	MaxOrderAmount  Number `json:"maxOrderAmount"`
	MaxOrderMessage string `json:"maxOrderMessage"`

	EnableTerms   bool   `json:"enableTerms"`
	TermsRequired bool   `json:"termsRequired"`
	TermsText     string `json:"termsText"`
	TermsURL      string `json:"termsUrl"`

	EnableBlockedProvinces bool     `json:"enableBlockedProvinces"`
	BlockedProvinces       []string `json:"blockedProvinces"`
	BlockedProvinceMessage string   `json:"blockedProvinceMessage"`

	DefaultCountry       string `json:"defaultCountry"`
	AutoRedirectWhatsApp *bool  `json:"autoRedirectWhatsApp"`
	RedirectDelay        Number `json:"redirectDelay"`
}

// ShippingRate is a merchant-defined flat shipping rate.
type ShippingRate struct {
	Name         string `json:"name"`
	Price        Number `json:"price"`
	DeliveryDays string `json:"deliveryDays,omitempty"`
}

// UnmarshalJSON accepts deliveryDays as either a string or a number.
func (r *ShippingRate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name         string          `json:"name"`
		Price        Number          `json:"price"`
		DeliveryDays json.RawMessage `json:"deliveryDays"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Name = raw.Name
	r.Price = raw.Price
	r.DeliveryDays = ""
	if len(raw.DeliveryDays) > 0 {
		var s string
		if json.Unmarshal(raw.DeliveryDays, &s) == nil {
			r.DeliveryDays = s
		} else if n := ParseNumber(string(raw.DeliveryDays)); !n.IsZero() {
			r.DeliveryDays = n.String()
		}
	}
	return nil
}

var defaultLabels = map[string]string{
	FieldName:       "Nombre completo",
	FieldPhone:      "Teléfono",
	FieldEmail:      "Correo electrónico",
	FieldAddress:    "Dirección",
	FieldCity:       "Ciudad",
	FieldProvince:   "Provincia",
	FieldPostalCode: "Código postal",
	FieldNotes:      "Notas del pedido",
	FieldQuantity:   "Cantidad",
}

var defaultPlaceholders = map[string]string{
	FieldName:       "Tu nombre y apellido",
	FieldPhone:      "809 555 1234",
	FieldEmail:      "correo@ejemplo.com",
	FieldAddress:    "Calle, número, sector",
	FieldCity:       "Ciudad",
	FieldProvince:   "Selecciona tu provincia",
	FieldPostalCode: "10101",
	FieldNotes:      "Indicaciones para la entrega",
}

// DefaultConfig returns the built-in configuration used when a shop has none
// or its configuration cannot be read.
func DefaultConfig() *MerchantConfig {
	redirect := true
	cfg := &MerchantConfig{
		Labels:       make(map[string]string, len(defaultLabels)),
		Placeholders: make(map[string]string, len(defaultPlaceholders)),
		Fields: FieldToggles{
			ShowEmail:    true,
			ShowCity:     true,
			ShowProvince: true,
			ShowNotes:    true,
			ShowQuantity: true,
		},
		FieldOrder: []string{
			FieldQuantity, FieldName, FieldPhone, FieldEmail, FieldProvince,
			FieldCity, FieldAddress, FieldPostalCode, FieldNotes,
		},
		FreeShippingLabel:      "Envío gratis",
		PickupName:             "Recoger en tienda",
		CODFeeType:             CODFeeFixed,
		MinOrderMessage:        "El pedido mínimo es de {monto}",
		MaxOrderMessage:        "El pedido máximo es de {monto}",
		TermsText:              "Acepto los términos y condiciones",
		BlockedProvinceMessage: "Lo sentimos, no realizamos envíos a esta provincia",
		DefaultCountry:         "DO",
		AutoRedirectWhatsApp:   &redirect,
		RedirectDelay:          ParseNumber("1500"),
	}
	for k, v := range defaultLabels {
		cfg.Labels[k] = v
	}
	for k, v := range defaultPlaceholders {
		cfg.Placeholders[k] = v
	}
	return cfg
}

// ParseConfig decodes a merchant configuration on top of DefaultConfig, so
// absent fields keep their defaults. It always returns a usable config: on
// wrongly typed fields the rest of the document is kept, on malformed JSON the
// defaults are returned. The error reports what was ignored.
func ParseConfig(data []byte) (*MerchantConfig, error) {
	cfg := DefaultConfig()
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	err := json.Unmarshal(data, cfg)
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return DefaultConfig(), fmt.Errorf("parsing merchant config: %w", err)
		}
		err = fmt.Errorf("merchant config field %q: %w", typeErr.Field, err)
	}
	cfg.Normalize()
	return cfg, err
}

// Normalize fills zero values with defaults and clamps negative amounts.
// It is safe to call more than once.
func (c *MerchantConfig) Normalize() {
	defaults := DefaultConfig()
	if c.Labels == nil {
		c.Labels = defaults.Labels
	}
	if c.Placeholders == nil {
		c.Placeholders = defaults.Placeholders
	}
	if len(c.FieldOrder) == 0 {
		c.FieldOrder = defaults.FieldOrder
	}
	if c.FreeShippingLabel == "" {
		c.FreeShippingLabel = defaults.FreeShippingLabel
	}
	if c.PickupName == "" {
		c.PickupName = defaults.PickupName
	}
	if c.MinOrderMessage == "" {
		c.MinOrderMessage = defaults.MinOrderMessage
	}
	if c.MaxOrderMessage == "" {
		c.MaxOrderMessage = defaults.MaxOrderMessage
	}
	if c.BlockedProvinceMessage == "" {
		c.BlockedProvinceMessage = defaults.BlockedProvinceMessage
	}
	if c.DefaultCountry == "" {
		c.DefaultCountry = defaults.DefaultCountry
	}
	c.DefaultCountry = strings.ToUpper(strings.TrimSpace(c.DefaultCountry))

	c.CODFeeType = strings.ToLower(strings.TrimSpace(c.CODFeeType))
	if c.CODFeeType != CODFeePercentage {
		c.CODFeeType = CODFeeFixed
	}
	c.CODFeeAmount = c.CODFeeAmount.nonNegative()
	c.FreeShippingThreshold = c.FreeShippingThreshold.nonNegative()
	c.MinOrderAmount = c.MinOrderAmount.nonNegative()
	c.MaxOrderAmount = c.MaxOrderAmount.nonNegative()
	c.RedirectDelay = c.RedirectDelay.nonNegative()
	for i := range c.CustomShippingRates {
		c.CustomShippingRates[i].Price = c.CustomShippingRates[i].Price.nonNegative()
	}
	for i := range c.CustomFields {
		c.CustomFields[i].Type = normalizeFieldType(c.CustomFields[i].Type)
	}
}

// normalized returns a normalized copy of c, leaving c untouched.
func (c *MerchantConfig) normalized() *MerchantConfig {
	cp := *c
	cp.CustomShippingRates = append([]ShippingRate(nil), c.CustomShippingRates...)
	cp.CustomFields = append([]CustomField(nil), c.CustomFields...)
	cp.Normalize()
	return &cp
}

// Label returns the display label of a builtin field.
func (c *MerchantConfig) Label(id string) string {
	if v := strings.TrimSpace(c.Labels[id]); v != "" {
		return v
	}
	return defaultLabels[id]
}

// Placeholder returns the input placeholder of a builtin field.
func (c *MerchantConfig) Placeholder(id string) string {
	if v := strings.TrimSpace(c.Placeholders[id]); v != "" {
		return v
	}
	return defaultPlaceholders[id]
}

// Visible reports whether a builtin field is shown on the form.
func (c *MerchantConfig) Visible(id string) bool {
	switch id {
	case FieldName, FieldPhone, FieldAddress:
		return true
	case FieldEmail:
		return c.Fields.ShowEmail
	case FieldCity:
		return c.Fields.ShowCity
	case FieldProvince:
		return c.Fields.ShowProvince
	case FieldPostalCode:
		return c.Fields.ShowPostalCode
	case FieldNotes:
		return c.Fields.ShowNotes
	case FieldQuantity:
		return c.Fields.ShowQuantity
	}
	return false
}

// IsRequired reports whether a builtin field must be filled in. Optional
// fields are only required while visible.
func (c *MerchantConfig) IsRequired(id string) bool {
	if !c.Visible(id) {
		return false
	}
	switch id {
	case FieldName, FieldPhone, FieldAddress:
		return true
	case FieldEmail:
		return c.Required.Email
	case FieldCity:
		return c.Required.City
	case FieldProvince:
		return c.Required.Province
	case FieldPostalCode:
		return c.Required.PostalCode
	case FieldNotes:
		return c.Required.Notes
	}
	return false
}

// ShouldAutoRedirect reports whether the WhatsApp link is opened
// automatically. Only an explicit false disables it.
func (c *MerchantConfig) ShouldAutoRedirect() bool {
	return c.AutoRedirectWhatsApp == nil || *c.AutoRedirectWhatsApp
}

// RedirectAfter is the delay before the automatic redirect.
func (c *MerchantConfig) RedirectAfter() time.Duration {
	return time.Duration(c.RedirectDelay.IntPart()) * time.Millisecond
}

// TermsMandatory reports whether terms must be accepted before submitting.
func (c *MerchantConfig) TermsMandatory() bool {
	return c.EnableTerms && c.TermsRequired
}

// ProvinceBlocked reports whether orders to province are refused.
func (c *MerchantConfig) ProvinceBlocked(province string) bool {
	if !c.EnableBlockedProvinces {
		return false
	}
	province = strings.TrimSpace(province)
	if province == "" {
		return false
	}
	for _, p := range c.BlockedProvinces {
		if strings.EqualFold(strings.TrimSpace(p), province) {
			return true
		}
	}
	return false
}
