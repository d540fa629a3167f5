package main

import (
	"testing"
	"time"
)

func TestDetectElapsedPayoffs(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -2, 0)
	future := now.AddDate(0, 3, 0)

	res := StrategyResult{
		RolldownPayments: []RolldownPayment{
			{DebtID: "elapsed", PayoffMonth: intPtr(4), PayoffDate: &past},
			{DebtID: "upcoming", PayoffMonth: intPtr(9), PayoffDate: &future},
			{DebtID: "settled-at-start", PayoffMonth: intPtr(0), PayoffDate: &past},
			{DebtID: "no-date"},
		},
	}

	elapsed := detectElapsedPayoffs(res, now)
	if len(elapsed) != 1 {
		t.Fatalf("got %d elapsed payoffs, want 1", len(elapsed))
	}
	if elapsed[0].DebtID != "elapsed" {
		t.Errorf("elapsed id = %s, want elapsed", elapsed[0].DebtID)
	}
}

func TestDetectElapsedPayoffsEmptyPlan(t *testing.T) {
	now := time.Now().UTC()
	if got := detectElapsedPayoffs(StrategyResult{}, now); len(got) != 0 {
		t.Errorf("empty plan produced %d elapsed payoffs", len(got))
	}
}
