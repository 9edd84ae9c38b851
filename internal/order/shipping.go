package order

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Shipping method identifiers. Custom rates are identified as rate_{index}.
const (
	ShippingPickup = "pickup"
	ShippingFree   = "free_shipping"

	ratePrefix = "rate_"
)

// RateID returns the identifier of the custom rate at index i.
func RateID(i int) string {
	return ratePrefix + strconv.Itoa(i)
}

// ShippingOption is a shipping choice currently offered to the customer.
type ShippingOption struct {
	ID     string
	Label  string
	Price  decimal.Decimal
	Detail string
}

// IsFree reports whether choosing the option adds no shipping cost.
func (o ShippingOption) IsFree() bool {
	return o.Price.IsZero()
}

// QualifiesForFreeShipping reports whether subtotal reaches the free
// shipping threshold.
func (c *MerchantConfig) QualifiesForFreeShipping(subtotal decimal.Decimal) bool {
	return c.FreeShippingEnabled && subtotal.GreaterThanOrEqual(c.FreeShippingThreshold.Decimal)
}

// AmountToFreeShipping returns how much the subtotal must grow to qualify for
// free shipping. It is zero when free shipping is disabled or already reached.
func (c *MerchantConfig) AmountToFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	if !c.FreeShippingEnabled || c.QualifiesForFreeShipping(subtotal) {
		return decimal.Zero
	}
	return c.FreeShippingThreshold.Sub(subtotal)
}

// ShippingOptions lists the options offered for subtotal, in display
// order: pickup, free shipping, then custom rates.
func (c *MerchantConfig) ShippingOptions(subtotal decimal.Decimal) []ShippingOption {
	var opts []ShippingOption
	if c.EnablePickup {
		opts = append(opts, ShippingOption{
			ID:     ShippingPickup,
			Label:  c.PickupName,
			Price:  decimal.Zero,
			Detail: c.PickupAddress,
		})
	}
	if c.QualifiesForFreeShipping(subtotal) {
		opts = append(opts, ShippingOption{
			ID:    ShippingFree,
			Label: c.FreeShippingLabel,
			Price: decimal.Zero,
		})
	}
	if c.EnableShipping {
		for i, r := range c.CustomShippingRates {
			label := strings.TrimSpace(r.Name)
			if label == "" {
				label = "Envío " + strconv.Itoa(i+1)
			}
			opts = append(opts, ShippingOption{
				ID:     RateID(i),
				Label:  label,
				Price:  r.Price.Decimal,
				Detail: r.DeliveryDays,
			})
		}
	}
	return opts
}

func findOption(opts []ShippingOption, id string) (ShippingOption, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return ShippingOption{}, false
}

// defaultShippingMethod picks pickup, then free shipping, then the first
// custom rate.
func defaultShippingMethod(opts []ShippingOption) string {
	for _, id := range []string{ShippingPickup, ShippingFree} {
		if _, ok := findOption(opts, id); ok {
			return id
		}
	}
	for _, o := range opts {
		if strings.HasPrefix(o.ID, ratePrefix) {
			return o.ID
		}
	}
	return ""
}

// fallbackShippingMethod returns the first offered option other than free
// shipping.
func fallbackShippingMethod(opts []ShippingOption) (ShippingOption, bool) {
	for _, o := range opts {
		if o.ID != ShippingFree {
			return o, true
		}
	}
	return ShippingOption{}, false
}
