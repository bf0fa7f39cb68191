package model

import (
	"errors"
	"math"
	"strconv"
)

// Cents is an amount in the smallest currency unit.  Storage keeps the
// integer; JSON carries the decimal major-unit value (1250 ↔ 12.5), the same
// unit the API accepts.
type Cents int64

// MaxPriceCents caps a single seat price at 1,000,000.00.  Any booking total
// under it stays far inside int64.
const MaxPriceCents Cents = 100_000_000

// ErrPriceOutOfRange is returned for negative, non-finite or oversized prices.
var ErrPriceOutOfRange = errors.New("price out of range")

// CentsFromDecimal converts a major-unit amount such as 12.5 to cents,
// rounding to the nearest cent.
func CentsFromDecimal(v float64) (Cents, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > float64(MaxPriceCents)/100 {
		return 0, ErrPriceOutOfRange
	}
	return Cents(math.Round(v * 100)), nil
}

// Mul returns c×n, reporting false when the product overflows.
func (c Cents) Mul(n int) (Cents, bool) {
	if c == 0 || n == 0 {
		return 0, true
	}
	if n < 0 || c < 0 || int64(c) > math.MaxInt64/int64(n) {
		return 0, false
	}
	return c * Cents(n), true
}

// Decimal formats c in major units with no trailing zeros: 1500 → "15",
// 1250 → "12.5", 1205 → "12.05".
func (c Cents) Decimal() string {
	v := uint64(c)
	sign := ""
	if c < 0 {
		v = uint64(-(c + 1)) + 1
		sign = "-"
	}
	s := sign + strconv.FormatUint(v/100, 10)
	switch frac := v % 100; {
	case frac == 0:
		return s
	case frac%10 == 0:
		return s + "." + strconv.FormatUint(frac/10, 10)
	case frac < 10:
		return s + ".0" + strconv.FormatUint(frac, 10)
	default:
		return s + "." + strconv.FormatUint(frac, 10)
	}
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.Decimal()), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > float64(math.MaxInt64)/100 {
		return ErrPriceOutOfRange
	}
	*c = Cents(math.Round(v * 100))
	return nil
}
