package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlanCacheKeyDeterministic(t *testing.T) {
	debts := []DebtInput{
		simpleDebt("a", "1000", "50", "10"),
		simpleDebt("b", "2000", "60", "15"),
	}
	k1 := PlanCacheKey(debts, dec("100"), Avalanche, FrequencyMonthly, testStart)
	k2 := PlanCacheKey(debts, dec("100"), Avalanche, FrequencyMonthly, testStart)
	if k1 != k2 {
		t.Errorf("same inputs gave different keys: %s vs %s", k1, k2)
	}

	// Debt order in the slice must not matter.
	reversed := []DebtInput{debts[1], debts[0]}
	k3 := PlanCacheKey(reversed, dec("100"), Avalanche, FrequencyMonthly, testStart)
	if k1 != k3 {
		t.Errorf("reordered debts changed the key: %s vs %s", k1, k3)
	}
}

func TestPlanCacheKeySensitivity(t *testing.T) {
	debts := []DebtInput{simpleDebt("a", "1000", "50", "10")}
	base := PlanCacheKey(debts, dec("100"), Avalanche, FrequencyMonthly, testStart)

	if k := PlanCacheKey(debts, dec("200"), Avalanche, FrequencyMonthly, testStart); k == base {
		t.Error("extra payment change did not change the key")
	}
	if k := PlanCacheKey(debts, dec("100"), Snowball, FrequencyMonthly, testStart); k == base {
		t.Error("method change did not change the key")
	}
	if k := PlanCacheKey(debts, dec("100"), Avalanche, FrequencyWeekly, testStart); k == base {
		t.Error("frequency change did not change the key")
	}
	if k := PlanCacheKey(debts, dec("100"), Avalanche, FrequencyMonthly, testStart.AddDate(0, 0, 1)); k == base {
		t.Error("start date change did not change the key")
	}
	other := []DebtInput{simpleDebt("a", "1001", "50", "10")}
	if k := PlanCacheKey(other, dec("100"), Avalanche, FrequencyMonthly, testStart); k == base {
		t.Error("balance change did not change the key")
	}
}

func TestMemoryPlanCache(t *testing.T) {
	c := NewMemoryPlanCache()
	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache reported a hit")
	}
	if err := c.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get = %q, %v; want v, true", got, ok)
	}
}

func TestCachedPayoffStrategyRoundTrip(t *testing.T) {
	debts := []DebtInput{
		simpleDebt("a", "1000", "50", "10"),
		simpleDebt("b", "500", "25", "18"),
	}
	cache := NewMemoryPlanCache()

	first, err := CachedPayoffStrategy(cache, debts, dec("75"), Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(cache.data) != 1 {
		t.Fatalf("cache holds %d entries, want 1", len(cache.data))
	}

	second, err := CachedPayoffStrategy(cache, debts, dec("75"), Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("cached run: %v", err)
	}
	if second.TotalMonths != first.TotalMonths {
		t.Errorf("cached TotalMonths = %d, want %d", second.TotalMonths, first.TotalMonths)
	}
	if !second.TotalInterestPaid.Equal(first.TotalInterestPaid) {
		t.Errorf("cached TotalInterestPaid = %s, want %s", second.TotalInterestPaid, first.TotalInterestPaid)
	}
	if len(second.RolldownPayments) != len(first.RolldownPayments) {
		t.Fatalf("cached plan entries = %d, want %d", len(second.RolldownPayments), len(first.RolldownPayments))
	}
	for i := range second.RolldownPayments {
		if second.RolldownPayments[i].DebtID != first.RolldownPayments[i].DebtID {
			t.Errorf("entry %d id = %s, want %s",
				i, second.RolldownPayments[i].DebtID, first.RolldownPayments[i].DebtID)
		}
	}
}

func TestCachedPayoffStrategyNilCache(t *testing.T) {
	debts := []DebtInput{simpleDebt("a", "1000", "50", "10")}
	res, err := CachedPayoffStrategy(nil, debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMonths <= 0 {
		t.Errorf("TotalMonths = %d, want positive", res.TotalMonths)
	}
}

func TestCachedPayoffStrategyIgnoresCorruptEntries(t *testing.T) {
	debts := []DebtInput{simpleDebt("a", "1000", "50", "10")}
	cache := NewMemoryPlanCache()
	key := PlanCacheKey(debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	cache.Set(key, "{not json")

	res, err := CachedPayoffStrategy(cache, debts, decimal.Zero, Avalanche, FrequencyMonthly, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalMonths <= 0 {
		t.Errorf("TotalMonths = %d, want positive", res.TotalMonths)
	}
	// The bad entry was overwritten with a good one.
	raw, ok := cache.Get(key)
	if !ok || raw == "{not json" {
		t.Error("corrupt cache entry was not replaced")
	}
}
