package order

// Customer holds the builtin customer fields of the form.
type Customer struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required,codphone"`
	Email      string `json:"email,omitempty" validate:"omitempty,codemail"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Field returns the value of a builtin field by identifier.
func (c Customer) Field(id string) string {
	switch id {
	case FieldName:
		return c.Name
	case FieldPhone:
		return c.Phone
	case FieldEmail:
		return c.Email
	case FieldAddress:
		return c.Address
	case FieldCity:
		return c.City
	case FieldProvince:
		return c.Province
	case FieldPostalCode:
		return c.PostalCode
	case FieldNotes:
		return c.Notes
	}
	return ""
}

// SetField sets a builtin field by identifier. It reports false for unknown
// identifiers.
func (c *Customer) SetField(id, value string) bool {
	switch id {
	case FieldName:
		c.Name = value
	case FieldPhone:
		c.Phone = value
	case FieldEmail:
		c.Email = value
	case FieldAddress:
		c.Address = value
	case FieldCity:
		c.City = value
	case FieldProvince:
		c.Province = value
	case FieldPostalCode:
		c.PostalCode = value
	case FieldNotes:
		c.Notes = value
	default:
		return false
	}
	return true
}

// OrderItem is a priced cart line with its resolved quantity.
type OrderItem struct {
	ID        string `json:"id"`
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Price     Number `json:"price"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	Image     string `json:"image,omitempty"`
}

// OrderRequest is the body posted to the order creation endpoint.
type OrderRequest struct {
	Shop           string            `json:"shop"`
	SessionID      string            `json:"sessionId"`
	Items          []OrderItem       `json:"items" validate:"min=1,dive"`
	Currency       string            `json:"currency" validate:"len=3"`
	Subtotal       Number            `json:"subtotal"`
	Shipping       Number            `json:"shipping"`
	ShippingMethod *string           `json:"shippingMethod"`
	ShippingLabel  string            `json:"shippingLabel,omitempty"`
	CODFee         Number            `json:"codFee"`
	Total          Number            `json:"total"`
	Customer       Customer          `json:"customer"`
	CustomFields   map[string]string `json:"customFields"`
	AcceptedTerms  bool              `json:"acceptedTerms"`
	UTMSource      string            `json:"utmSource,omitempty"`
	UTMMedium      string            `json:"utmMedium,omitempty"`
	UTMCampaign    string            `json:"utmCampaign,omitempty"`
	UTMTerm        string            `json:"utmTerm,omitempty"`
	UTMContent     string            `json:"utmContent,omitempty"`
	LandingPage    string            `json:"landingPage,omitempty"`
}

// Attribution returns the UTM values carried by the request.
func (r *OrderRequest) Attribution() Attribution {
	return Attribution{
		Source:      r.UTMSource,
		Medium:      r.UTMMedium,
		Campaign:    r.UTMCampaign,
		Term:        r.UTMTerm,
		Content:     r.UTMContent,
		LandingPage: r.LandingPage,
	}
}
