package order

import "strings"

// Builtin field identifiers.
const (
	FieldName       = "name"
	FieldPhone      = "phone"
	FieldEmail      = "email"
	FieldAddress    = "address"
	FieldCity       = "city"
	FieldProvince   = "province"
	FieldPostalCode = "postalCode"
	FieldNotes      = "notes"
	FieldQuantity   = "quantity"
	FieldTerms      = "terms"

	// FormKey collects errors that do not belong to a single field.
	FormKey = "_form"
)

// Custom field types.
const (
	TypeText       = "text"
	TypeTextarea   = "textarea"
	TypeSelect     = "select"
	TypeRadio      = "radio"
	TypeCheckbox   = "checkbox"
	TypeDate       = "date"
	TypeNumber     = "number"
	TypeHeading    = "heading"
	TypeImage      = "image"
	TypeLinkButton = "link_button"
)

// CustomField is a merchant-defined form element.
type CustomField struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	URL         string   `json:"url,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// IsDisplay reports whether the field only decorates the form and collects
// no value.
func (f CustomField) IsDisplay() bool {
	switch f.Type {
	case TypeHeading, TypeImage, TypeLinkButton:
		return true
	}
	return false
}

func normalizeFieldType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case TypeText, TypeTextarea, TypeSelect, TypeRadio, TypeCheckbox,
		TypeDate, TypeNumber, TypeHeading, TypeImage, TypeLinkButton:
		return t
	case "link-button", "linkbutton":
		return TypeLinkButton
	}
	return TypeText
}

var builtinFields = map[string]bool{
	FieldName: true, FieldPhone: true, FieldEmail: true, FieldAddress: true,
	FieldCity: true, FieldProvince: true, FieldPostalCode: true, FieldNotes: true,
	FieldQuantity: true,
}

// IsBuiltinField reports whether id names one of the standard customer fields.
func IsBuiltinField(id string) bool {
	return builtinFields[id]
}

// FieldSpec is one entry of a form layout. It is one of BuiltinField,
// InputField or DisplayField.
type FieldSpec interface {
	FieldID() string
	fieldSpec()
}

// BuiltinField is a standard customer field.
type BuiltinField struct {
	ID          string
	Label       string
	Placeholder string
	Required    bool
}

// InputField is a custom field that collects a value.
type InputField struct {
	CustomField
}

// DisplayField is a custom heading, image or link.
type DisplayField struct {
	CustomField
}

func (f BuiltinField) FieldID() string { return f.ID }
func (f InputField) FieldID() string   { return f.ID }
func (f DisplayField) FieldID() string { return f.ID }

func (BuiltinField) fieldSpec() {}
func (InputField) fieldSpec()   {}
func (DisplayField) fieldSpec() {}

// Layout resolves the ordered list of form elements for cfg. Entries named by
// fieldOrder come first, then any always-visible builtin missing from it, then
// custom fields fieldOrder does not mention. The quantity selector is only
// laid out in single-item mode.
func Layout(cfg *MerchantConfig, singleItem bool) []FieldSpec {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	custom := make(map[string]CustomField, len(cfg.CustomFields))
	for _, f := range cfg.CustomFields {
		if f.ID != "" {
			if _, dup := custom[f.ID]; !dup {
				custom[f.ID] = f
			}
		}
	}

	var specs []FieldSpec
	seen := make(map[string]bool)

	add := func(id string) {
		if seen[id] {
			return
		}
		if IsBuiltinField(id) {
			if !cfg.Visible(id) || (id == FieldQuantity && !singleItem) {
				return
			}
			seen[id] = true
			specs = append(specs, BuiltinField{
				ID:          id,
				Label:       cfg.Label(id),
				Placeholder: cfg.Placeholder(id),
				Required:    cfg.IsRequired(id),
			})
			return
		}
		f, ok := custom[id]
		if !ok {
			return
		}
		seen[id] = true
		if f.IsDisplay() {
			specs = append(specs, DisplayField{CustomField: f})
		} else {
			specs = append(specs, InputField{CustomField: f})
		}
	}

	for _, id := range cfg.FieldOrder {
		add(strings.TrimSpace(id))
	}
	for _, id := range []string{FieldName, FieldPhone, FieldAddress} {
		add(id)
	}
	for _, f := range cfg.CustomFields {
		add(f.ID)
	}
	return specs
}
