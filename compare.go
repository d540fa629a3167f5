package main

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PlanComparison holds the same debt set run twice: once on minimum payments
// alone and once with the configured extra payment. Feeds the
// minimum-payment warning and savings views; no arithmetic of its own
// beyond the deltas.
type PlanComparison struct {
	MinimumOnly StrategyResult
	CurrentPlan StrategyResult

	// MinimumOnlyDiverges: minimums alone never reach debt-free. The
	// MinimumOnly result and the savings deltas are meaningless then.
	MinimumOnlyDiverges bool

	MonthsSaved   int
	InterestSaved decimal.Decimal
}

// ComparePayoffScenarios runs the simulator for both scenarios from the same
// start date so the deltas line up month for month.
func ComparePayoffScenarios(debts []DebtInput, extraPayment decimal.Decimal, method StrategyMethod, frequency PaymentFrequency, start time.Time) (PlanComparison, error) {
	current, err := CalculatePayoffStrategyAt(debts, extraPayment, method, frequency, start)
	if err != nil {
		return PlanComparison{}, err
	}

	cmp := PlanComparison{CurrentPlan: current, InterestSaved: decimal.Zero.Round(2)}

	minOnly, err := CalculatePayoffStrategyAt(debts, decimal.Zero, method, frequency, start)
	if err != nil {
		if errors.Is(err, ErrNonConvergence) {
			cmp.MinimumOnlyDiverges = true
			return cmp, nil
		}
		return PlanComparison{}, err
	}

	cmp.MinimumOnly = minOnly
	cmp.MonthsSaved = minOnly.TotalMonths - current.TotalMonths
	cmp.InterestSaved = minOnly.TotalInterestPaid.Sub(current.TotalInterestPaid).Round(2)
	return cmp, nil
}
