// Package main: payoff engine — month-by-month amortization of a debt set
// under a snowball or avalanche strategy with an optional extra payment.
package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type StrategyMethod string

const (
	Avalanche StrategyMethod = "avalanche" // highest APR first
	Snowball  StrategyMethod = "snowball"  // smallest balance first
)

type PaymentFrequency string

const (
	FrequencyMonthly  PaymentFrequency = "monthly"
	FrequencyBiweekly PaymentFrequency = "biweekly"
	FrequencyWeekly   PaymentFrequency = "weekly"
)

type CompoundingFrequency string

const (
	CompoundDaily     CompoundingFrequency = "daily"
	CompoundMonthly   CompoundingFrequency = "monthly"
	CompoundQuarterly CompoundingFrequency = "quarterly"
	CompoundAnnually  CompoundingFrequency = "annually"
)

type LoanType string

const (
	LoanRevolving   LoanType = "revolving"
	LoanInstallment LoanType = "installment"
)

var (
	// ErrInvalidInput: a debt or argument the engine refuses to guess about.
	ErrInvalidInput = errors.New("invalid payoff input")
	// ErrNonConvergence: payments never retire some balance within the horizon.
	ErrNonConvergence = errors.New("payoff plan does not converge")
)

// A balance at or below half a cent counts as paid.
var paidEpsilon = decimal.New(5, -3)

// Hard ceiling on simulated months (50 years). Exhausting it with unpaid
// debts is reported as non-convergence, never as a finite plan.
const payoffHorizonMonths = 600

// DebtInput is one debt as the simulator sees it, already normalized.
type DebtInput struct {
	ID               string
	Name             string
	RemainingBalance decimal.Decimal
	MinimumPayment   decimal.Decimal // per billing cycle
	InterestRate     decimal.Decimal // annual percent, e.g. 19.99
	Type             string          // passthrough
	LoanType         LoanType
	Compounding      CompoundingFrequency // empty means monthly
	BillingCycleDays int                  // daily compounding only
	Color            string               // display passthrough
	Icon             string
}

// RolldownPayment describes one debt's place in the plan.
type RolldownPayment struct {
	DebtID         string
	PayoffMonth    *int
	PayoffDate     *time.Time
	CurrentPayment decimal.Decimal // own minimum payment
	ActivePayment  decimal.Decimal // total currently directed at the debt
	IsFocusDebt    bool
}

type StrategyResult struct {
	TotalMonths       int
	TotalInterestPaid decimal.Decimal
	DebtFreeDate      time.Time
	RolldownPayments  []RolldownPayment
}

// CalculatePayoffStrategy plans from today. See CalculatePayoffStrategyAt.
func CalculatePayoffStrategy(debts []DebtInput, extraPayment decimal.Decimal, method StrategyMethod, frequency PaymentFrequency) (StrategyResult, error) {
	return CalculatePayoffStrategyAt(debts, extraPayment, method, frequency, time.Now().UTC())
}

// CalculatePayoffStrategyAt simulates paying down debts month by month from
// start: interest accrues, minimums are paid, and the extra payment plus the
// minimums of every debt already retired go to the single focus debt. The
// priority order is fixed once at start and never re-evaluated as balances
// shift. Deterministic: identical inputs always yield identical results.
func CalculatePayoffStrategyAt(debts []DebtInput, extraPayment decimal.Decimal, method StrategyMethod, frequency PaymentFrequency, start time.Time) (StrategyResult, error) {
	if frequency == "" {
		frequency = FrequencyMonthly
	}
	if err := validatePayoffInput(debts, extraPayment, method, frequency); err != nil {
		return StrategyResult{}, err
	}

	if len(debts) == 0 {
		return StrategyResult{
			TotalMonths:       0,
			TotalInterestPaid: decimal.Zero.Round(2),
			DebtFreeDate:      start,
			RolldownPayments:  []RolldownPayment{},
		}, nil
	}

	extraMonthly := MonthlyEquivalent(extraPayment, frequency)

	open := make([]DebtInput, 0, len(debts))
	settled := make([]DebtInput, 0)
	for _, d := range debts {
		if d.RemainingBalance.GreaterThan(paidEpsilon) {
			open = append(open, d)
		} else {
			settled = append(settled, d)
		}
	}
	ordered := OrderByStrategy(open, method)

	out, err := simulate(ordered, extraMonthly, start, payoffHorizonMonths)
	if err != nil {
		return StrategyResult{}, err
	}

	res := StrategyResult{
		TotalMonths:       out.totalMonths,
		TotalInterestPaid: out.totalInterest.Round(2),
		DebtFreeDate:      start.AddDate(0, out.totalMonths, 0),
		RolldownPayments:  make([]RolldownPayment, 0, len(debts)),
	}
	for i, d := range ordered {
		m := out.payoffMonths[d.ID]
		date := start.AddDate(0, m, 0)
		rp := RolldownPayment{
			DebtID:         d.ID,
			PayoffMonth:    intPtr(m),
			PayoffDate:     &date,
			CurrentPayment: d.MinimumPayment.Round(2),
			ActivePayment:  d.MinimumPayment.Round(2),
		}
		if i == 0 {
			// The focus debt at start receives the extra on top of its own
			// minimum; the rolldown pool is empty until something pays off.
			rp.IsFocusDebt = true
			rp.ActivePayment = d.MinimumPayment.Add(extraMonthly).Round(2)
		}
		res.RolldownPayments = append(res.RolldownPayments, rp)
	}
	for _, d := range settled {
		date := start
		res.RolldownPayments = append(res.RolldownPayments, RolldownPayment{
			DebtID:         d.ID,
			PayoffMonth:    intPtr(0),
			PayoffDate:     &date,
			CurrentPayment: d.MinimumPayment.Round(2),
			ActivePayment:  decimal.Zero.Round(2),
		})
	}
	return res, nil
}

func validatePayoffInput(debts []DebtInput, extraPayment decimal.Decimal, method StrategyMethod, frequency PaymentFrequency) error {
	if method != Avalanche && method != Snowball {
		return fmt.Errorf("%w: unrecognized method %q", ErrInvalidInput, method)
	}
	if frequency != FrequencyMonthly && frequency != FrequencyBiweekly && frequency != FrequencyWeekly {
		return fmt.Errorf("%w: unrecognized payment frequency %q", ErrInvalidInput, frequency)
	}
	if extraPayment.IsNegative() {
		return fmt.Errorf("%w: negative extra payment %s", ErrInvalidInput, extraPayment)
	}
	seen := make(map[string]bool, len(debts))
	for _, d := range debts {
		if d.ID == "" {
			return fmt.Errorf("%w: debt %q has no id", ErrInvalidInput, d.Name)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate debt id %q", ErrInvalidInput, d.ID)
		}
		seen[d.ID] = true
		if d.RemainingBalance.IsNegative() {
			return fmt.Errorf("%w: debt %q has negative balance %s", ErrInvalidInput, d.ID, d.RemainingBalance)
		}
		if d.InterestRate.IsNegative() {
			return fmt.Errorf("%w: debt %q has negative interest rate %s", ErrInvalidInput, d.ID, d.InterestRate)
		}
		if d.MinimumPayment.IsNegative() {
			return fmt.Errorf("%w: debt %q has negative minimum payment %s", ErrInvalidInput, d.ID, d.MinimumPayment)
		}
		switch d.Compounding {
		case "", CompoundDaily, CompoundMonthly, CompoundQuarterly, CompoundAnnually:
		default:
			return fmt.Errorf("%w: debt %q has unrecognized compounding %q", ErrInvalidInput, d.ID, d.Compounding)
		}
	}
	return nil
}

type debtState struct {
	in          DebtInput
	balance     decimal.Decimal
	payoffMonth int // 0 = still unpaid
}

func (s *debtState) paid() bool { return s.payoffMonth > 0 }

// simPeriod is one simulated month. Ephemeral: kept only so in-package tests
// can check per-period rolldown arithmetic; never part of StrategyResult.
type simPeriod struct {
	month    int
	focusID  string
	pool     decimal.Decimal // rolldown pool available this month
	extra    decimal.Decimal // extra + pool actually applied to the focus
	interest decimal.Decimal
	balances map[string]decimal.Decimal
}

type simOutcome struct {
	totalMonths   int
	totalInterest decimal.Decimal
	payoffMonths  map[string]int
	periods       []simPeriod
}

// simulate advances month by month over debts already in priority order.
// No rounding between steps; balances carry full precision to the end.
func simulate(ordered []DebtInput, extraMonthly decimal.Decimal, start time.Time, horizon int) (simOutcome, error) {
	out := simOutcome{
		totalInterest: decimal.Zero,
		payoffMonths:  make(map[string]int, len(ordered)),
	}
	if len(ordered) == 0 {
		return out, nil
	}

	// No money moving at all can never retire a balance.
	totalPay := extraMonthly
	for _, d := range ordered {
		totalPay = totalPay.Add(d.MinimumPayment)
	}
	if totalPay.IsZero() {
		return simOutcome{}, fmt.Errorf("%w: no payments configured for %d open debts", ErrNonConvergence, len(ordered))
	}

	states := make([]*debtState, len(ordered))
	for i, d := range ordered {
		states[i] = &debtState{in: d, balance: d.RemainingBalance}
	}

	pool := decimal.Zero
	for m := 1; m <= horizon; m++ {
		unpaid := 0
		for _, st := range states {
			if !st.paid() {
				unpaid++
			}
		}
		if unpaid == 0 {
			break
		}

		monthDays := daysInMonth(start.AddDate(0, m-1, 0))
		period := simPeriod{
			month:    m,
			pool:     pool,
			balances: make(map[string]decimal.Decimal, len(states)),
		}

		// 1+2) Accrue interest, capitalize, then pay the minimum.
		for _, st := range states {
			if st.paid() {
				continue
			}
			rate := effectiveMonthlyRate(st.in.InterestRate, st.in.Compounding, st.in.BillingCycleDays, monthDays)
			interest := st.balance.Mul(rate)
			st.balance = st.balance.Add(interest)
			out.totalInterest = out.totalInterest.Add(interest)
			period.interest = period.interest.Add(interest)

			st.balance = st.balance.Sub(decimal.Min(st.in.MinimumPayment, st.balance))
		}

		// 3) Extra plus rolldown pool goes to the focus debt: the first debt
		// in priority order still carrying a balance after minimums.
		for _, st := range states {
			if st.paid() || !st.balance.GreaterThan(paidEpsilon) {
				continue
			}
			applied := decimal.Min(extraMonthly.Add(pool), st.balance)
			st.balance = st.balance.Sub(applied)
			period.focusID = st.in.ID
			period.extra = applied
			break
		}

		// 4) Anything at or under epsilon is done for good. Its minimum joins
		// the pool starting next month.
		for _, st := range states {
			if st.paid() {
				continue
			}
			if !st.balance.GreaterThan(paidEpsilon) {
				st.payoffMonth = m
				out.payoffMonths[st.in.ID] = m
				pool = pool.Add(st.in.MinimumPayment)
			}
			period.balances[st.in.ID] = st.balance
		}

		out.periods = append(out.periods, period)
	}

	var stuck []string
	for _, st := range states {
		if !st.paid() {
			stuck = append(stuck, st.in.ID)
		}
	}
	if len(stuck) > 0 {
		return simOutcome{}, fmt.Errorf("%w: still owing after %d months: %s",
			ErrNonConvergence, horizon, strings.Join(stuck, ", "))
	}

	// totalMonths is the last month in which something was paid off.
	for _, m := range out.payoffMonths {
		if m > out.totalMonths {
			out.totalMonths = m
		}
	}
	return out, nil
}

func daysInMonth(t time.Time) int {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func intPtr(v int) *int { return &v }
