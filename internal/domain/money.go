package domain

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "USD"

// LookupCurrency returns the ISO 4217 currency for code, or an error if
// the code is unknown.
func LookupCurrency(code string) (*money.Currency, error) {
	c := money.GetCurrency(code)
	if c == nil {
		return nil, fmt.Errorf("unknown currency %q", code)
	}
	return c, nil
}

// CheckPrecision returns an error if d carries more fractional digits than
// the currency allows (2 for USD, 0 for JPY, ...).
func CheckPrecision(d decimal.Decimal, currency string) error {
	c, err := LookupCurrency(currency)
	if err != nil {
		return err
	}
	if !d.Equal(d.Truncate(int32(c.Fraction))) {
		return fmt.Errorf("monetary values must have at most %d decimal places", c.Fraction)
	}
	return nil
}

// FormatAmount renders d using the currency's symbol, separators and
// fraction, rounding half away from zero to the currency's minor unit.
// Unknown currencies fall back to the plain decimal string.
func FormatAmount(d decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return d.String()
	}
	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}

// ToFloat converts d for JSON responses. Stored values keep full precision.
func ToFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
