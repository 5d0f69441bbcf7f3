// Package money provides fixed-point decimal arithmetic for monetary
// amounts. Amounts are never represented as binary floating point; every
// result is quantized to the configured scale before it is returned, so
// repeated arithmetic cannot accumulate more precision than declared.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned by Div and Percent when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// Mode selects the rounding rule applied when quantizing results.
type Mode int

const (
	// HalfEven rounds half to the nearest even digit (banker's rounding).
	HalfEven Mode = iota
	// HalfUp rounds half away from zero.
	HalfUp
	// Down truncates toward zero.
	Down
	// Up rounds away from zero.
	Up
	// Ceil rounds toward positive infinity.
	Ceil
	// Floor rounds toward negative infinity.
	Floor
)

// DefaultScale is the number of fractional digits kept on results.
const DefaultScale int32 = 2

// Calculator performs arithmetic at a fixed scale and rounding mode.
type Calculator struct {
	Scale    int32
	Rounding Mode
}

// New returns a Calculator with two fractional digits and half-to-even
// rounding, the defaults used for ledger amounts.
func New() Calculator {
	return Calculator{Scale: DefaultScale, Rounding: HalfEven}
}

// Parse converts a numeric string into a decimal. Both "," and "." are
// accepted as the decimal separator. The value keeps its full precision;
// quantization happens on results, not inputs.
func Parse(s string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse is like Parse but panics on error. Use only in tests or for
// literals known to be valid.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Add returns x + y quantized to the calculator's scale.
func (c Calculator) Add(x, y decimal.Decimal) decimal.Decimal {
	return c.quantize(x.Add(y))
}

// Sub returns x - y quantized to the calculator's scale.
func (c Calculator) Sub(x, y decimal.Decimal) decimal.Decimal {
	return c.quantize(x.Sub(y))
}

// Mul returns x * y quantized to the calculator's scale.
func (c Calculator) Mul(x, y decimal.Decimal) decimal.Decimal {
	return c.quantize(x.Mul(y))
}

// Div returns x / y quantized to the calculator's scale. A zero divisor
// yields ErrDivisionByZero rather than a panic.
func (c Calculator) Div(x, y decimal.Decimal) (decimal.Decimal, error) {
	if y.IsZero() {
		return decimal.Zero, fmt.Errorf("%v / %v: %w", x, y, ErrDivisionByZero)
	}
	return c.quantize(x.Div(y)), nil
}

// Percent returns x/y*100 rounded to two places. A zero divisor yields
// ErrDivisionByZero.
func (c Calculator) Percent(x, y decimal.Decimal) (decimal.Decimal, error) {
	if y.IsZero() {
		return decimal.Zero, fmt.Errorf("%v of %v: %w", x, y, ErrDivisionByZero)
	}
	pct := Calculator{Scale: 2, Rounding: c.Rounding}
	return pct.quantize(x.Div(y).Mul(decimal.NewFromInt(100))), nil
}

func (c Calculator) quantize(d decimal.Decimal) decimal.Decimal {
	switch c.Rounding {
	case HalfUp:
		return d.Round(c.Scale)
	case Down:
		return d.Truncate(c.Scale)
	case Up:
		return d.RoundUp(c.Scale)
	case Ceil:
		return d.RoundCeil(c.Scale)
	case Floor:
		return d.RoundFloor(c.Scale)
	default:
		return d.RoundBank(c.Scale)
	}
}
