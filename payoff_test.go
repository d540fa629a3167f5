package main

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testStart = time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func simpleDebt(id string, balance, minPay, rate string) DebtInput {
	return DebtInput{
		ID:               id,
		Name:             id,
		RemainingBalance: dec(balance),
		MinimumPayment:   dec(minPay),
		InterestRate:     dec(rate),
		Compounding:      CompoundMonthly,
	}
}

func TestEmptyDebtList(t *testing.T) {
	res, err := CalculatePayoffStrategyAt(nil, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMonths != 0 {
		t.Errorf("TotalMonths = %d, want 0", res.TotalMonths)
	}
	if !res.TotalInterestPaid.IsZero() {
		t.Errorf("TotalInterestPaid = %s, want 0", res.TotalInterestPaid)
	}
	if !res.DebtFreeDate.Equal(testStart) {
		t.Errorf("DebtFreeDate = %s, want start %s", res.DebtFreeDate, testStart)
	}
	if res.RolldownPayments == nil || len(res.RolldownPayments) != 0 {
		t.Errorf("RolldownPayments = %v, want empty non-nil slice", res.RolldownPayments)
	}
}

func TestSingleDebtAmortization(t *testing.T) {
	// 1200 at 12% APR compounded monthly (1% per month), paying 103/month.
	// Interest capitalizes before each payment, so the balance after month
	// 12 is 45.89, the final partial payment lands in month 13, and
	// interest totals 12*103 + 46.35 - 1200 = 82.35. Annuity shortcuts
	// that pay before accruing land near 78 in 12 months; that is not
	// what this engine does, so do not "correct" these figures to match.
	debts := []DebtInput{simpleDebt("d1", "1200", "103", "12")}
	res, err := CalculatePayoffStrategyAt(debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMonths != 13 {
		t.Errorf("TotalMonths = %d, want 13", res.TotalMonths)
	}
	if res.TotalInterestPaid.LessThan(dec("80")) || res.TotalInterestPaid.GreaterThan(dec("85")) {
		t.Errorf("TotalInterestPaid = %s, want ~82.35", res.TotalInterestPaid)
	}
	want := testStart.AddDate(0, 13, 0)
	if !res.DebtFreeDate.Equal(want) {
		t.Errorf("DebtFreeDate = %s, want %s", res.DebtFreeDate, want)
	}
	if len(res.RolldownPayments) != 1 {
		t.Fatalf("RolldownPayments len = %d, want 1", len(res.RolldownPayments))
	}
	rp := res.RolldownPayments[0]
	if !rp.IsFocusDebt {
		t.Error("single debt should be the focus debt")
	}
	if rp.PayoffMonth == nil || *rp.PayoffMonth != 13 {
		t.Errorf("PayoffMonth = %v, want 13", rp.PayoffMonth)
	}
}

func TestDeterministic(t *testing.T) {
	debts := []DebtInput{
		simpleDebt("a", "3000", "60", "19.99"),
		simpleDebt("b", "500", "25", "8"),
		simpleDebt("c", "1500", "45", "12.5"),
	}
	first, err := CalculatePayoffStrategyAt(debts, dec("100"), Snowball, FrequencyBiweekly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := CalculatePayoffStrategyAt(debts, dec("100"), Snowball, FrequencyBiweekly, testStart)
		if err != nil {
			t.Fatalf("unexpected error on run %d: %v", i, err)
		}
		if again.TotalMonths != first.TotalMonths {
			t.Fatalf("run %d: TotalMonths %d != %d", i, again.TotalMonths, first.TotalMonths)
		}
		if !again.TotalInterestPaid.Equal(first.TotalInterestPaid) {
			t.Fatalf("run %d: TotalInterestPaid %s != %s", i, again.TotalInterestPaid, first.TotalInterestPaid)
		}
		for j, rp := range again.RolldownPayments {
			if rp.DebtID != first.RolldownPayments[j].DebtID {
				t.Fatalf("run %d: order differs at %d", i, j)
			}
		}
	}
}

func TestNonConvergenceNoPayments(t *testing.T) {
	debts := []DebtInput{simpleDebt("d1", "1000", "0", "0")}
	_, err := CalculatePayoffStrategyAt(debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("err = %v, want ErrNonConvergence", err)
	}
}

func TestNonConvergenceInterestOutpacesPayment(t *testing.T) {
	// 30% APR on 10000 accrues ~250/month against a 10 minimum.
	debts := []DebtInput{simpleDebt("d1", "10000", "10", "30")}
	_, err := CalculatePayoffStrategyAt(debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("err = %v, want ErrNonConvergence", err)
	}
}

func TestInvalidInputs(t *testing.T) {
	good := []DebtInput{simpleDebt("d1", "100", "10", "5")}
	cases := []struct {
		name   string
		debts  []DebtInput
		extra  decimal.Decimal
		method StrategyMethod
		freq   PaymentFrequency
	}{
		{"bad method", good, decimal.Zero, "fastest", FrequencyMonthly},
		{"bad frequency", good, decimal.Zero, Avalanche, "daily"},
		{"negative extra", good, dec("-5"), Avalanche, FrequencyMonthly},
		{"negative balance", []DebtInput{simpleDebt("d1", "-100", "10", "5")}, decimal.Zero, Avalanche, FrequencyMonthly},
		{"negative rate", []DebtInput{simpleDebt("d1", "100", "10", "-5")}, decimal.Zero, Avalanche, FrequencyMonthly},
		{"negative minimum", []DebtInput{simpleDebt("d1", "100", "-10", "5")}, decimal.Zero, Avalanche, FrequencyMonthly},
		{"missing id", []DebtInput{simpleDebt("", "100", "10", "5")}, decimal.Zero, Avalanche, FrequencyMonthly},
		{"duplicate id", []DebtInput{simpleDebt("d1", "100", "10", "5"), simpleDebt("d1", "200", "10", "5")}, decimal.Zero, Avalanche, FrequencyMonthly},
		{"bad compounding", []DebtInput{{ID: "d1", RemainingBalance: dec("100"), MinimumPayment: dec("10"), Compounding: "hourly"}}, decimal.Zero, Avalanche, FrequencyMonthly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CalculatePayoffStrategyAt(tc.debts, tc.extra, tc.method, tc.freq, testStart)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestExtraPaymentMonotonicity(t *testing.T) {
	debts := []DebtInput{
		simpleDebt("a", "1000", "50", "10"),
		simpleDebt("b", "2500", "75", "18"),
	}
	extras := []string{"0", "50", "100", "250"}
	prevMonths := 0
	prevInterest := decimal.Zero
	for i, e := range extras {
		res, err := CalculatePayoffStrategyAt(debts, dec(e), Avalanche, FrequencyMonthly, testStart)
		if err != nil {
			t.Fatalf("extra %s: %v", e, err)
		}
		if i > 0 {
			if res.TotalMonths > prevMonths {
				t.Errorf("extra %s: months %d > %d at lower extra", e, res.TotalMonths, prevMonths)
			}
			if res.TotalInterestPaid.GreaterThan(prevInterest) {
				t.Errorf("extra %s: interest %s > %s at lower extra", e, res.TotalInterestPaid, prevInterest)
			}
		}
		prevMonths = res.TotalMonths
		prevInterest = res.TotalInterestPaid
	}
}

func TestAvalancheBeatsSnowballOnInterest(t *testing.T) {
	debts := []DebtInput{
		simpleDebt("a", "3000", "60", "20"),
		simpleDebt("b", "500", "25", "8"),
	}
	av, err := CalculatePayoffStrategyAt(debts, dec("100"), Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("avalanche: %v", err)
	}
	sn, err := CalculatePayoffStrategyAt(debts, dec("100"), Snowball, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("snowball: %v", err)
	}

	// The strategies disagree on the focus here: avalanche targets the 20%
	// balance, snowball the small one.
	if av.RolldownPayments[0].DebtID != "a" {
		t.Errorf("avalanche focus = %s, want a", av.RolldownPayments[0].DebtID)
	}
	if sn.RolldownPayments[0].DebtID != "b" {
		t.Errorf("snowball focus = %s, want b", sn.RolldownPayments[0].DebtID)
	}
	if av.TotalInterestPaid.GreaterThan(sn.TotalInterestPaid) {
		t.Errorf("avalanche interest %s > snowball interest %s", av.TotalInterestPaid, sn.TotalInterestPaid)
	}
}

func TestRolldownPoolStartsMonthAfterPayoff(t *testing.T) {
	// d1 (100, min 50, 0%) retires in month 2; its 50 then chips away at d2
	// (1000, no minimum) starting month 3, finishing 20 payments later.
	debts := []DebtInput{
		simpleDebt("d1", "100", "50", "0"),
		simpleDebt("d2", "1000", "0", "0"),
	}
	res, err := CalculatePayoffStrategyAt(debts, decimal.Zero, Snowball, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byID := make(map[string]RolldownPayment)
	for _, rp := range res.RolldownPayments {
		byID[rp.DebtID] = rp
	}
	if m := byID["d1"].PayoffMonth; m == nil || *m != 2 {
		t.Errorf("d1 payoff month = %v, want 2", m)
	}
	if m := byID["d2"].PayoffMonth; m == nil || *m != 22 {
		t.Errorf("d2 payoff month = %v, want 22", m)
	}
	if res.TotalMonths != 22 {
		t.Errorf("TotalMonths = %d, want 22", res.TotalMonths)
	}
}

func TestSimulatePoolAccounting(t *testing.T) {
	ordered := []DebtInput{
		simpleDebt("d1", "100", "50", "0"),
		simpleDebt("d2", "1000", "0", "0"),
	}
	out, err := simulate(ordered, decimal.Zero, testStart, payoffHorizonMonths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.periods) < 3 {
		t.Fatalf("periods = %d, want at least 3", len(out.periods))
	}
	// The pool is empty while d1 is being paid, including the month it
	// retires; d1's minimum only joins the following month.
	if !out.periods[1].pool.IsZero() {
		t.Errorf("month 2 pool = %s, want 0", out.periods[1].pool)
	}
	m3 := out.periods[2]
	if !m3.pool.Equal(dec("50")) {
		t.Errorf("month 3 pool = %s, want 50", m3.pool)
	}
	if m3.focusID != "d2" {
		t.Errorf("month 3 focus = %s, want d2", m3.focusID)
	}
	if !m3.extra.Equal(dec("50")) {
		t.Errorf("month 3 applied extra = %s, want 50", m3.extra)
	}
}

func TestSettledDebtReportedWithoutSimulation(t *testing.T) {
	debts := []DebtInput{
		simpleDebt("open", "500", "50", "10"),
		simpleDebt("done", "0", "25", "15"),
	}
	res, err := CalculatePayoffStrategyAt(debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var done *RolldownPayment
	for i := range res.RolldownPayments {
		if res.RolldownPayments[i].DebtID == "done" {
			done = &res.RolldownPayments[i]
		}
	}
	if done == nil {
		t.Fatal("settled debt missing from plan")
	}
	if done.PayoffMonth == nil || *done.PayoffMonth != 0 {
		t.Errorf("settled PayoffMonth = %v, want 0", done.PayoffMonth)
	}
	if !done.ActivePayment.IsZero() {
		t.Errorf("settled ActivePayment = %s, want 0", done.ActivePayment)
	}
	if done.IsFocusDebt {
		t.Error("settled debt must not be the focus")
	}
}

func TestFinalPaymentNeverOverdraws(t *testing.T) {
	// Minimum far above the balance: one payment clears it, interest only
	// accrues once.
	debts := []DebtInput{simpleDebt("d1", "40", "500", "12")}
	res, err := CalculatePayoffStrategyAt(debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMonths != 1 {
		t.Errorf("TotalMonths = %d, want 1", res.TotalMonths)
	}
	if !res.TotalInterestPaid.Equal(dec("0.40")) {
		t.Errorf("TotalInterestPaid = %s, want 0.40", res.TotalInterestPaid)
	}
}

func TestHugeBalanceStillConverges(t *testing.T) {
	// A mortgage-sized debt paid aggressively finishes well inside the
	// 600-month ceiling.
	debts := []DebtInput{simpleDebt("house", "400000", "2400", "6")}
	res, err := CalculatePayoffStrategyAt(debts, dec("600"), Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMonths <= 0 || res.TotalMonths > payoffHorizonMonths {
		t.Errorf("TotalMonths = %d, want within (0, %d]", res.TotalMonths, payoffHorizonMonths)
	}
}
