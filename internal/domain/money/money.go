// Package money provides the Money value type and the closed set of
// currencies the reconciler understands.
//
// Amounts are held as shopspring decimals and are capped at four fractional
// digits after every computation. Rounding is half away from zero.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept on every amount.
const Precision int32 = 4

var (
	// ErrUnsupportedCurrency indicates a currency code outside the supported set.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrNegativeAmount indicates a monetary amount below zero.
	ErrNegativeAmount = errors.New("negative amount")
)

// Code is an ISO 4217 currency code.
type Code string

// Supported currencies.
const (
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	JPY Code = "JPY"
	CAD Code = "CAD"
)

// SupportedCodes lists every currency the reconciler accepts.
var SupportedCodes = []Code{USD, EUR, GBP, JPY, CAD}

// Valid reports whether c is one of the supported codes.
func (c Code) Valid() bool {
	for _, s := range SupportedCodes {
		if c == s {
			return true
		}
	}
	return false
}

func (c Code) String() string { return string(c) }

// ParseCode normalizes s and checks it against the supported set.
func ParseCode(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
	}
	return c, nil
}

// Money is an immutable amount in a single currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Code            `json:"currency"`
}

// New builds a Money value, rounding the amount to Precision.
func New(amount decimal.Decimal, currency Code) (Money, error) {
	if !currency.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	return Money{Amount: Round(amount), Currency: currency}, nil
}

// MustNew is New for literals known to be valid. It panics otherwise.
func MustNew(amount string, currency Code) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	m, err := New(d, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Round caps d at Precision fractional digits, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Float64 returns the amount as a float for ratio arithmetic.
func (m Money) Float64() float64 {
	return m.Amount.InexactFloat64()
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + string(m.Currency)
}
