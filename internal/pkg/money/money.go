// Package money holds the decimal arithmetic shared by pricing, vouchers and
// the wallet ledger. Every result is rounded to two fractional digits.
package money

import "github.com/shopspring/decimal"

const Scale = 2

var (
	Zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// Round rounds half away from zero to two fractional digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// FromString parses a decimal amount and rounds it.
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(d), nil
}

// MustFromString is FromString for literals.
func MustFromString(s string) decimal.Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// PercentOf returns amount*pct/100.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(hundred))
}

// ApplyPercent returns price*(1 - pct/100).
func ApplyPercent(price, pct decimal.Decimal) decimal.Decimal {
	return Round(price.Sub(price.Mul(pct).Div(hundred)))
}

// SubtractFloor returns max(price - amount, 0).
func SubtractFloor(price, amount decimal.Decimal) decimal.Decimal {
	return Round(decimal.Max(price.Sub(amount), decimal.Zero))
}

// Cap limits value to max.
func Cap(value, max decimal.Decimal) decimal.Decimal {
	return decimal.Min(value, max)
}

func Min(a, b decimal.Decimal) decimal.Decimal {
	return decimal.Min(a, b)
}

// Prorate returns the share of total proportional to part/whole. A zero
// whole yields zero.
func Prorate(total, part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round(total.Mul(part).Div(whole))
}

// Allocate splits total across weights pro rata. The rounding remainder goes
// to the last non-zero weight so the parts always sum to total.
func Allocate(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	whole := decimal.Zero
	last := -1
	for i, w := range weights {
		whole = whole.Add(w)
		if w.IsPositive() {
			last = i
		}
	}
	if last < 0 || total.IsZero() {
		for i := range out {
			out[i] = decimal.Zero
		}
		return out
	}
	allocated := decimal.Zero
	for i, w := range weights {
		if i == last {
			continue
		}
		out[i] = Prorate(total, w, whole)
		allocated = allocated.Add(out[i])
	}
	out[last] = Round(total.Sub(allocated))
	return out
}

func IsPositive(d decimal.Decimal) bool { return d.IsPositive() }

func IsNegative(d decimal.Decimal) bool { return d.IsNegative() }
