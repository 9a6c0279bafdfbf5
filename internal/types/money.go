package types

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to 2 decimal places, half away from zero.
// Applied at every multiplication, not only the final sum, so snapshot totals
// match trade settlement amounts.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Cost is the settlement amount for quantity units at the given price.
func Cost(price decimal.Decimal, quantity int64) decimal.Decimal {
	return Round2(price.Mul(decimal.NewFromInt(quantity)))
}
