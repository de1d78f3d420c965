// Package money holds the currency rules shared by commission and ledger code.
package money

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits persisted for currency amounts.
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// Round applies the single persistence-time rounding step.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Percent returns amount*rate/100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// HasCurrencyScale reports whether d has no more than two decimal places.
func HasCurrencyScale(d decimal.Decimal) bool {
	return d.Equal(Round(d))
}

// Cents converts an amount to integer minor units, rounding first.
func Cents(d decimal.Decimal) int64 {
	return Round(d).Shift(Scale).IntPart()
}
