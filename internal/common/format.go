package common

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders a value in the given currency using the currency's own
// grapheme, separators and minor-unit precision (e.g. "$1,234.56").
func FormatMoney(v decimal.Decimal, currency string) string {
	cur := *money.New(0, strings.ToUpper(currency)).Currency()
	minor := v.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatSignedMoney is FormatMoney with an explicit "+" for positive values.
func FormatSignedMoney(v decimal.Decimal, currency string) string {
	if v.IsPositive() {
		return "+" + FormatMoney(v, currency)
	}
	return FormatMoney(v, currency)
}

// FormatSignedPct renders a percentage with two decimals and an explicit sign.
func FormatSignedPct(v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + v.StringFixed(2) + "%"
	}
	return v.StringFixed(2) + "%"
}

// FormatUnitPrice renders a per-unit price. Crypto prices span many orders of
// magnitude, so sub-unit prices keep up to eight decimals.
func FormatUnitPrice(v decimal.Decimal, currency string) string {
	if v.Abs().LessThan(decimal.NewFromInt(1)) && !v.IsZero() {
		return fmt.Sprintf("%s %s", v.Round(8).String(), strings.ToUpper(currency))
	}
	return FormatMoney(v, currency)
}
