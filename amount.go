package pocket

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountDigits is the number of fractional digits kept by an Amount.
const AmountDigits = 2

// Amount is a monetary value with two fractional digits. The currency is not
// part of the value, a ledger has a single display currency.
type Amount struct {
	value decimal.Decimal
}

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}

// A returns the Amount for value, rounded half away from zero to two digits.
func A[T float32 | float64 | int | int64 | decimal.Decimal](value T) Amount {
	return Amount{value: newDecimal(value).Round(AmountDigits)}
}

// ParseAmount parses a non-negative decimal amount like "600", "12.5" or "0.99".
// A comma is accepted as the decimal separator.
func ParseAmount(s string) (Amount, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v.IsNegative() {
		return Amount{}, fmt.Errorf("invalid amount %q: must not be negative", s)
	}
	return A(v), nil
}

func (a Amount) Decimal() decimal.Decimal { return a.value }
func (a Amount) Equal(b Amount) bool      { return a.value.Equal(b.value) }
func (a Amount) IsZero() bool             { return a.value.IsZero() }
func (a Amount) IsNegative() bool         { return a.value.IsNegative() }
func (a Amount) LessThan(b Amount) bool   { return a.value.LessThan(b.value) }
func (a Amount) Add(b Amount) Amount      { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount      { return Amount{value: a.value.Sub(b.value)} }
func (a Amount) Neg() Amount              { return Amount{value: a.value.Neg()} }
func (a Amount) String() string           { return a.value.StringFixed(AmountDigits) }
func (a Amount) Cents() int64             { return a.value.Shift(AmountDigits).IntPart() }

// MarshalJSON writes the amount as a bare json number with two digits.
func (a Amount) MarshalJSON() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalJSON accepts both a json number and a quoted decimal.
func (a *Amount) UnmarshalJSON(bytes []byte) error {
	var v decimal.Decimal
	if err := v.UnmarshalJSON(bytes); err != nil {
		return err
	}
	*a = A(v)
	return nil
}
