package tui

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/samber/lo"

	"github.com/thomas/codform-terminal/internal/order"
	"github.com/thomas/codform-terminal/internal/storefront"
)

// formValues holds the values bound to the huh form. They outlive the form
// so that a rebuilt form keeps what the customer typed.
type formValues struct {
	text    map[string]*string
	checked map[string]*bool
	terms   bool
}

func newFormValues(b *order.Builder) *formValues {
	v := &formValues{
		text:    make(map[string]*string),
		checked: make(map[string]*bool),
		terms:   b.TermsAccepted(),
	}

	customer := b.Customer()
	custom := b.CustomValues()
	for _, spec := range order.Layout(b.Config(), false) {
		switch f := spec.(type) {
		case order.BuiltinField:
			s := customer.Field(f.ID)
			v.text[f.ID] = &s
		case order.InputField:
			if f.Type == order.TypeCheckbox {
				c := order.IsChecked(custom[f.ID])
				v.checked[f.ID] = &c
				continue
			}
			s := custom[f.ID]
			v.text[f.ID] = &s
		}
	}
	return v
}

// apply copies the bound values into b.
func (v *formValues) apply(b *order.Builder) {
	for id, s := range v.text {
		if order.IsBuiltinField(id) {
			b.SetCustomerField(id, *s)
		} else {
			b.SetCustomField(id, *s)
		}
	}
	for id, c := range v.checked {
		b.SetCustomChecked(id, *c)
	}
	b.SetTermsAccepted(v.terms)
}

// buildForm lays out the order form. errs, from a previous submission, are
// shown under the offending fields.
func buildForm(b *order.Builder, v *formValues, provinces []storefront.Province, errs order.ValidationErrors) *huh.Form {
	cfg := b.Config()
	var fields []huh.Field

	for _, spec := range order.Layout(cfg, false) {
		switch f := spec.(type) {
		case order.BuiltinField:
			fields = append(fields, builtinField(f, v.text[f.ID], provinces, errs[f.ID]))
		case order.InputField:
			fields = append(fields, customField(f.CustomField, v, errs[f.ID]))
		case order.DisplayField:
			fields = append(fields, displayField(f.CustomField))
		}
	}

	if cfg.EnableTerms {
		fields = append(fields, huh.NewConfirm().
			Key(order.FieldTerms).
			Title(termsLabel(cfg)).
			Description(errs[order.FieldTerms]).
			Affirmative("Acepto").
			Negative("No").
			Value(&v.terms))
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(true).
		WithShowErrors(true)
}

func builtinField(f order.BuiltinField, value *string, provinces []storefront.Province, fieldErr string) huh.Field {
	title := f.Label
	if f.Required {
		title += " *"
	}

	if f.ID == order.FieldProvince && len(provinces) > 0 {
		opts := lo.Map(provinces, func(p storefront.Province, _ int) huh.Option[string] {
			return huh.NewOption(p.Label, p.Value)
		})
		if !f.Required {
			opts = append([]huh.Option[string]{huh.NewOption("-", "")}, opts...)
		}
		return huh.NewSelect[string]().
			Key(f.ID).
			Title(title).
			Description(fieldErr).
			Options(opts...).
			Value(value)
	}

	if f.ID == order.FieldNotes || f.ID == order.FieldAddress {
		return huh.NewText().
			Key(f.ID).
			Title(title).
			Description(fieldErr).
			Placeholder(f.Placeholder).
			Lines(2).
			Value(value)
	}

	return huh.NewInput().
		Key(f.ID).
		Title(title).
		Description(fieldErr).
		Placeholder(f.Placeholder).
		Value(value)
}

func customField(f order.CustomField, v *formValues, fieldErr string) huh.Field {
	title := f.Label
	if f.Required {
		title += " *"
	}

	switch f.Type {
	case order.TypeCheckbox:
		return huh.NewConfirm().
			Key(f.ID).
			Title(title).
			Description(fieldErr).
			Affirmative("Sí").
			Negative("No").
			Value(v.checked[f.ID])

	case order.TypeSelect, order.TypeRadio:
		opts := huh.NewOptions(f.Options...)
		if !f.Required {
			opts = append([]huh.Option[string]{huh.NewOption("-", "")}, opts...)
		}
		return huh.NewSelect[string]().
			Key(f.ID).
			Title(title).
			Description(fieldErr).
			Options(opts...).
			Value(v.text[f.ID])

	case order.TypeTextarea:
		return huh.NewText().
			Key(f.ID).
			Title(title).
			Description(fieldErr).
			Placeholder(f.Placeholder).
			Value(v.text[f.ID])

	case order.TypeDate:
		placeholder := f.Placeholder
		if placeholder == "" {
			placeholder = "AAAA-MM-DD"
		}
		return huh.NewInput().
			Key(f.ID).
			Title(title).
			Description(fieldErr).
			Placeholder(placeholder).
			Value(v.text[f.ID])
	}

	return huh.NewInput().
		Key(f.ID).
		Title(title).
		Description(fieldErr).
		Placeholder(f.Placeholder).
		Value(v.text[f.ID])
}

func displayField(f order.CustomField) huh.Field {
	switch f.Type {
	case order.TypeHeading:
		return huh.NewNote().Title(StripHTML(f.Label))
	case order.TypeImage:
		return huh.NewNote().Description("[imagen] " + f.ImageURL)
	case order.TypeLinkButton:
		return huh.NewNote().Title(StripHTML(f.Label)).Description(f.URL)
	}
	return huh.NewNote().Description(StripHTML(f.Label))
}

// termsLabel is the plain-text terms line, with the terms URL appended.
func termsLabel(cfg *order.MerchantConfig) string {
	label := StripHTML(cfg.TermsText)
	if label == "" {
		label = "Acepto los términos y condiciones"
	}
	if cfg.TermsMandatory() {
		label += " *"
	}
	if url := strings.TrimSpace(cfg.TermsURL); url != "" {
		label += "\n" + url
	}
	return label
}
