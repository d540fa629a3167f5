package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// PlanCache memoizes computed plans outside the engine. The engine itself is
// pure and keeps no state; a countdown widget polling every page load should
// not recompute a 600-month simulation each time.
type PlanCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

const planCacheTTL = time.Hour

type RedisPlanCache struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisPlanCache(addr string) *RedisPlanCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisPlanCache{
		client: rdb,
		ctx:    context.Background(),
	}
}

func (r *RedisPlanCache) Get(key string) (string, bool) {
	val, err := r.client.Get(r.ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *RedisPlanCache) Set(key string, value string) error {
	return r.client.Set(r.ctx, key, value, planCacheTTL).Err()
}

// MemoryPlanCache is the fallback when no Redis address is configured, and
// the test double.
type MemoryPlanCache struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryPlanCache() *MemoryPlanCache {
	return &MemoryPlanCache{data: make(map[string]string)}
}

func (m *MemoryPlanCache) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok
}

func (m *MemoryPlanCache) Set(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// PlanCacheKey hashes everything the result depends on: the debt set (order
// independent), the extra payment, method, frequency, and the start day.
func PlanCacheKey(debts []DebtInput, extraPayment decimal.Decimal, method StrategyMethod, frequency PaymentFrequency, start time.Time) string {
	lines := make([]string, 0, len(debts)+1)
	for _, d := range debts {
		lines = append(lines, fmt.Sprintf("%s|%s|%s|%s|%s|%d",
			d.ID, d.RemainingBalance, d.MinimumPayment, d.InterestRate, d.Compounding, d.BillingCycleDays))
	}
	sort.Strings(lines)
	lines = append(lines, fmt.Sprintf("%s|%s|%s|%s",
		extraPayment, method, frequency, start.Format("2006-01-02")))
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return "plan:" + hex.EncodeToString(sum[:])
}

// CachedPayoffStrategy answers from the cache when it can, computes and
// stores otherwise. A nil cache just computes.
func CachedPayoffStrategy(cache PlanCache, debts []DebtInput, extraPayment decimal.Decimal, method StrategyMethod, frequency PaymentFrequency, start time.Time) (StrategyResult, error) {
	if cache == nil {
		return CalculatePayoffStrategyAt(debts, extraPayment, method, frequency, start)
	}

	key := PlanCacheKey(debts, extraPayment, method, frequency, start)
	if raw, ok := cache.Get(key); ok {
		var res StrategyResult
		if err := json.Unmarshal([]byte(raw), &res); err == nil {
			return res, nil
		}
		// Unreadable entry: fall through and overwrite.
	}

	res, err := CalculatePayoffStrategyAt(debts, extraPayment, method, frequency, start)
	if err != nil {
		return StrategyResult{}, err
	}
	if raw, err := json.Marshal(res); err == nil {
		_ = cache.Set(key, string(raw))
	}
	return res, nil
}
