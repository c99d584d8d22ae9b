// Package money provides the in-game currency value type.
//
// Invariants:
//   - Amounts are stored as int64 hundredths (two fixed decimal places).
//   - Rounding is half away from zero.
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when a value cannot be read as money.
	ErrInvalidAmount = errors.New("invalid money amount")
	// ErrTooManyDecimals is returned when a value has more than two decimal places.
	ErrTooManyDecimals = errors.New("amount has more than two decimal places")
)

// Scale is the number of decimal places kept by Money.
const Scale = 2

// Money is an amount of in-game currency in hundredths.
type Money int64

// Zero is the empty amount.
const Zero Money = 0

// FromCents builds Money from hundredths.
func FromCents(cents int64) Money {
	return Money(cents)
}

// FromDecimal rounds d to two places and converts it.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(Scale).Shift(Scale).IntPart())
}

// FromFloat converts a float, rounding to two places.
func FromFloat(f float64) Money {
	return FromDecimal(decimal.NewFromFloat(f))
}

// Parse reads a decimal string such as "12.50". More than two decimal
// places is rejected instead of silently rounded.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.Equal(d.Round(Scale)) {
		return Zero, ErrTooManyDecimals
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for constants. It panics on error.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Cents returns the raw hundredths.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -Scale)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return m + o
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return m - o
}

// Times multiplies by a whole quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// MulRatio multiplies by ratio and rounds the result to two places.
func (m Money) MulRatio(ratio decimal.Decimal) Money {
	return FromDecimal(m.Decimal().Mul(ratio))
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool {
	return m < 0
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m > 0
}

// LessThan reports whether m < o.
func (m Money) LessThan(o Money) bool {
	return m < o
}

// Float64 returns an approximate float value for display.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String renders the amount with exactly two decimal places.
func (m Money) String() string {
	return m.Decimal().StringFixed(Scale)
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		raw = s
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
