package model

import "github.com/shopspring/decimal"

// ImpactType is the period an impact figure is denominated in.
type ImpactType string

const (
	ImpactDaily   ImpactType = "daily"
	ImpactMonthly ImpactType = "monthly"
	ImpactAnnual  ImpactType = "annual"
)

// Period lengths used for every impact conversion.
const (
	DaysPerMonth = 30
	DaysPerYear  = 365
)

// Valid reports whether t is a known impact period.
func (t ImpactType) Valid() bool {
	switch t {
	case ImpactDaily, ImpactMonthly, ImpactAnnual:
		return true
	}
	return false
}

// Days returns the number of days in the period. Unknown periods count as one day.
func (t ImpactType) Days() int64 {
	switch t {
	case ImpactMonthly:
		return DaysPerMonth
	case ImpactAnnual:
		return DaysPerYear
	default:
		return 1
	}
}

// Convert re-expresses amount, denominated in t, in the period to.
func (t ImpactType) Convert(amount float64, to ImpactType) float64 {
	if t == to {
		return amount
	}
	perDay := decimal.NewFromFloat(amount).Div(decimal.NewFromInt(t.Days()))
	return perDay.Mul(decimal.NewFromInt(to.Days())).InexactFloat64()
}
