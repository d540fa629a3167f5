package main

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	decimalTwelve   = decimal.NewFromInt(12)
	decimalHundred  = decimal.NewFromInt(100)
	biweeklyPerYear = decimal.NewFromInt(26)
	weeklyPerYear   = decimal.NewFromInt(52)
)

// OrderByStrategy returns the fixed priority order over open debts. The
// first entry is the focus debt; the rest receive rolldown in this order as
// earlier debts retire. Ties break deterministically down to the id.
func OrderByStrategy(debts []DebtInput, method StrategyMethod) []DebtInput {
	out := make([]DebtInput, len(debts))
	copy(out, debts)
	switch method {
	case Snowball:
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].RemainingBalance.Equal(out[j].RemainingBalance) {
				return out[i].RemainingBalance.LessThan(out[j].RemainingBalance)
			}
			if !out[i].InterestRate.Equal(out[j].InterestRate) {
				return out[i].InterestRate.GreaterThan(out[j].InterestRate)
			}
			return out[i].ID < out[j].ID
		})
	default: // Avalanche
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].InterestRate.Equal(out[j].InterestRate) {
				return out[i].InterestRate.GreaterThan(out[j].InterestRate)
			}
			if !out[i].RemainingBalance.Equal(out[j].RemainingBalance) {
				return out[i].RemainingBalance.LessThan(out[j].RemainingBalance)
			}
			return out[i].ID < out[j].ID
		})
	}
	return out
}

// MonthlyEquivalent converts an extra payment stated per frequency into the
// per-month figure the simulator consumes. The simulation clock always steps
// in months regardless of how the user pays.
func MonthlyEquivalent(amount decimal.Decimal, frequency PaymentFrequency) decimal.Decimal {
	switch frequency {
	case FrequencyBiweekly:
		return amount.Mul(biweeklyPerYear).Div(decimalTwelve)
	case FrequencyWeekly:
		return amount.Mul(weeklyPerYear).Div(decimalTwelve)
	default:
		return amount
	}
}

// effectiveMonthlyRate converts an annual percent rate into the fraction of
// balance accrued in one simulated month. daysThisMonth is the calendar day
// count of the month being simulated; daily compounding prefers the debt's
// billing cycle length when one is set.
//
// The fractional exponents are evaluated in float64 — these are rate
// constants, not money; all balance arithmetic stays decimal.
func effectiveMonthlyRate(annualPercent decimal.Decimal, compounding CompoundingFrequency, cycleDays, daysThisMonth int) decimal.Decimal {
	apr := annualPercent.Div(decimalHundred)
	switch compounding {
	case CompoundDaily:
		days := cycleDays
		if days <= 0 {
			days = daysThisMonth
		}
		daily := apr.InexactFloat64() / 365.0
		return decimal.NewFromFloat(math.Pow(1+daily, float64(days)) - 1)
	case CompoundQuarterly:
		quarterly := apr.InexactFloat64() / 4.0
		return decimal.NewFromFloat(math.Pow(1+quarterly, 1.0/3.0) - 1)
	case CompoundAnnually:
		return decimal.NewFromFloat(math.Pow(1+apr.InexactFloat64(), 1.0/12.0) - 1)
	default: // monthly
		return apr.Div(decimalTwelve)
	}
}
