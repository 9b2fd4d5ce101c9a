package domain

import "github.com/shopspring/decimal"

// Prices are stored as DECIMAL(12,2).
const MoneyScale = 2

var MaxMoneyAmount = decimal.New(1, 10).Sub(decimal.New(1, -MoneyScale))

// IsValidMoney reports whether d can be stored in a price column without
// rounding or overflow.
func IsValidMoney(d decimal.Decimal) bool {
	return !d.IsNegative() &&
		d.Equal(d.Truncate(MoneyScale)) &&
		d.LessThanOrEqual(MaxMoneyAmount)
}
