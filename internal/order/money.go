package order

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when a session is opened with an unknown code.
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"ARS": "$",
	"BOB": "Bs",
	"BRL": "R$",
	"CLP": "$",
	"COP": "$",
	"CRC": "₡",
	"DOP": "RD$",
	"EUR": "€",
	"GBP": "£",
	"GTQ": "Q",
	"HNL": "L",
	"MXN": "$",
	"NIO": "C$",
	"PAB": "B/.",
	"PEN": "S/",
	"PYG": "₲",
	"USD": "$",
	"UYU": "$U",
}

// NormalizeCurrency upper-cases code and falls back to DefaultCurrency when
// it is not an ISO 4217 currency.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return DefaultCurrency
	}
	return unit.String()
}

// FormatMoney renders amount in the given currency, using the currency's
// standard number of minor digits and comma thousands grouping.
func FormatMoney(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	format := "#,###."
	if scale > 0 {
		format += strings.Repeat("#", scale)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	f, _ := amount.Round(int32(scale)).Float64()
	number := humanize.FormatFloat(format, f)

	symbol, ok := currencySymbols[code]
	if !ok {
		if code == "" {
			return sign + number
		}
		return sign + code + " " + number
	}
	return sign + symbol + number
}
