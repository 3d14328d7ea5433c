package utils

import "github.com/shopspring/decimal"

// Round2 rounds d half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

