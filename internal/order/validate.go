package order

import (
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Customer-facing validation messages.
const (
	MsgRequired      = "Este campo es obligatorio"
	MsgInvalidPhone  = "Ingresa un número de teléfono válido"
	MsgInvalidEmail  = "Ingresa un correo electrónico válido"
	MsgTermsRequired = "Debes aceptar los términos y condiciones"
	MsgNoShipping    = "Selecciona un método de envío"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("codphone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("codemail", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	return v
}

// ValidPhone reports whether phone holds 10 to 15 digits once every other
// character is removed.
func ValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

// ValidEmail checks the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailShape.MatchString(strings.TrimSpace(email))
}

// ValidationErrors maps a field identifier, or FormKey, to a message.
type ValidationErrors map[string]string

func (e ValidationErrors) add(key, msg string) {
	if prev, ok := e[key]; ok {
		e[key] = prev + "\n" + msg
		return
	}
	e[key] = msg
}

// Error lists the failing fields in a stable order.
func (e ValidationErrors) Error() string {
	keys := lo.Keys(e)
	sort.Strings(keys)
	parts := lo.Map(keys, func(k string, _ int) string {
		return k + ": " + strings.ReplaceAll(e[k], "\n", "; ")
	})
	return "validation failed: " + strings.Join(parts, ", ")
}

// Fields returns the failing field identifiers in sorted order.
func (e ValidationErrors) Fields() []string {
	keys := lo.Keys(e)
	sort.Strings(keys)
	return keys
}

var conditionalFields = []string{FieldEmail, FieldCity, FieldProvince, FieldPostalCode, FieldNotes}

// validateForm runs every check and collects all failures.
func validateForm(cfg *MerchantConfig, in formInput) ValidationErrors {
	errs := ValidationErrors{}
	c := in.customer

	for _, id := range []string{FieldName, FieldPhone, FieldAddress} {
		if strings.TrimSpace(c.Field(id)) == "" {
			errs.add(id, MsgRequired)
		}
	}

	for _, id := range conditionalFields {
		if cfg.IsRequired(id) && strings.TrimSpace(c.Field(id)) == "" {
			errs.add(id, MsgRequired)
		}
	}

	if phone := strings.TrimSpace(c.Phone); phone != "" {
		if err := validate.Var(phone, "codphone"); err != nil {
			errs.add(FieldPhone, MsgInvalidPhone)
		}
	}

	if email := strings.TrimSpace(c.Email); email != "" {
		if err := validate.Var(email, "codemail"); err != nil {
			errs.add(FieldEmail, MsgInvalidEmail)
		}
	}

	if cfg.ProvinceBlocked(c.Province) {
		errs.add(FieldProvince, cfg.BlockedProvinceMessage)
	}

	if cfg.TermsMandatory() && !in.acceptedTerms {
		errs.add(FieldTerms, MsgTermsRequired)
	}

	for _, f := range cfg.CustomFields {
		if !f.Required || f.IsDisplay() || f.ID == "" {
			continue
		}
		v := in.custom[f.ID]
		if f.Type == TypeCheckbox {
			if !IsChecked(v) {
				errs.add(f.ID, MsgRequired)
			}
			continue
		}
		if strings.TrimSpace(v) == "" {
			errs.add(f.ID, MsgRequired)
		}
	}

	checkOrderLimits(cfg, in.subtotal, in.currency, errs)

	if (cfg.EnableShipping || cfg.EnablePickup) && len(in.options) > 0 && in.shippingMethod == "" {
		errs.add(FormKey, MsgNoShipping)
	}

	return errs
}

func checkOrderLimits(cfg *MerchantConfig, subtotal decimal.Decimal, currency string, errs ValidationErrors) {
	if cfg.EnableMinOrder && subtotal.LessThan(cfg.MinOrderAmount.Decimal) {
		errs.add(FormKey, formatLimit(cfg.MinOrderMessage, cfg.MinOrderAmount.Decimal, currency))
	}
	if cfg.EnableMaxOrder && cfg.MaxOrderAmount.IsPositive() && subtotal.GreaterThan(cfg.MaxOrderAmount.Decimal) {
		errs.add(FormKey, formatLimit(cfg.MaxOrderMessage, cfg.MaxOrderAmount.Decimal, currency))
	}
}

func formatLimit(msg string, amount decimal.Decimal, currency string) string {
	return strings.ReplaceAll(msg, "{monto}", FormatMoney(amount, currency))
}

// IsChecked interprets a checkbox value.
func IsChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes", "si", "sí":
		return true
	}
	return false
}
