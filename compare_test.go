package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCompareSavingsNeverNegative(t *testing.T) {
	debts := []DebtInput{
		simpleDebt("a", "3000", "75", "19.99"),
		simpleDebt("b", "1200", "40", "9.5"),
	}
	cmp, err := ComparePayoffScenarios(debts, dec("150"), Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.MinimumOnlyDiverges {
		t.Fatal("minimum-only should converge here")
	}
	if cmp.MonthsSaved < 0 {
		t.Errorf("MonthsSaved = %d, want >= 0", cmp.MonthsSaved)
	}
	if cmp.InterestSaved.IsNegative() {
		t.Errorf("InterestSaved = %s, want >= 0", cmp.InterestSaved)
	}
	if cmp.CurrentPlan.TotalMonths > cmp.MinimumOnly.TotalMonths {
		t.Errorf("current plan %d months slower than minimum-only %d",
			cmp.CurrentPlan.TotalMonths, cmp.MinimumOnly.TotalMonths)
	}
}

func TestCompareZeroExtraSavesNothing(t *testing.T) {
	debts := []DebtInput{simpleDebt("a", "1000", "50", "10")}
	cmp, err := ComparePayoffScenarios(debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.MonthsSaved != 0 {
		t.Errorf("MonthsSaved = %d, want 0", cmp.MonthsSaved)
	}
	if !cmp.InterestSaved.IsZero() {
		t.Errorf("InterestSaved = %s, want 0", cmp.InterestSaved)
	}
}

func TestCompareMinimumOnlyDiverges(t *testing.T) {
	// No minimum at all: the extra payment carries the plan, and the
	// minimum-only scenario never finishes.
	debts := []DebtInput{simpleDebt("a", "1000", "0", "0")}
	cmp, err := ComparePayoffScenarios(debts, dec("100"), Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cmp.MinimumOnlyDiverges {
		t.Fatal("expected MinimumOnlyDiverges")
	}
	if cmp.CurrentPlan.TotalMonths != 10 {
		t.Errorf("current plan months = %d, want 10", cmp.CurrentPlan.TotalMonths)
	}
}

func TestCompareInvalidInputPropagates(t *testing.T) {
	debts := []DebtInput{simpleDebt("a", "-10", "0", "0")}
	_, err := ComparePayoffScenarios(debts, dec("100"), Avalanche, FrequencyMonthly, testStart)
	if err == nil {
		t.Fatal("expected error for negative balance")
	}
}
