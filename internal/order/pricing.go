package order

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CartItem is a line of the cart the form was opened for.
type CartItem struct {
	ID        string          `json:"id"`
	VariantID string          `json:"variantId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is price times qty.
func (i CartItem) LineTotal(qty int) decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(qty)))
}

// effectiveQuantity is the selected quantity in single-item mode and the
// cart quantity otherwise.
func effectiveQuantity(item CartItem, selected *int) int {
	if selected != nil {
		return *selected
	}
	return item.Quantity
}

func subtotalOf(items []CartItem, selected *int) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal(effectiveQuantity(item, selected)))
	}
	return total
}

// CODFee returns the cash-on-delivery fee for subtotal. Percentage fees are
// rounded to cents.
func (c *MerchantConfig) CODFee(subtotal decimal.Decimal) decimal.Decimal {
	if !c.EnableCODFee {
		return decimal.Zero
	}
	fee := c.CODFeeAmount.Decimal
	if c.CODFeeType == CODFeePercentage {
		fee = subtotal.Mul(fee).Div(hundred).Round(2)
	}
	if fee.IsNegative() {
		return decimal.Zero
	}
	return fee
}
