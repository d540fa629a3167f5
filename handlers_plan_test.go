package main

import "testing"

func TestResolvePlanOverrides(t *testing.T) {
	settings := PlanSettings{Method: string(Avalanche), Frequency: string(FrequencyMonthly)}

	t.Run("no overrides uses saved settings", func(t *testing.T) {
		method, frequency, problem := resolvePlanOverrides(settings, "", "")
		if problem != "" {
			t.Fatalf("unexpected problem: %s", problem)
		}
		if method != Avalanche || frequency != FrequencyMonthly {
			t.Errorf("got %s/%s, want avalanche/monthly", method, frequency)
		}
	})

	t.Run("valid overrides apply", func(t *testing.T) {
		method, frequency, problem := resolvePlanOverrides(settings, "snowball", "biweekly")
		if problem != "" {
			t.Fatalf("unexpected problem: %s", problem)
		}
		if method != Snowball || frequency != FrequencyBiweekly {
			t.Errorf("got %s/%s, want snowball/biweekly", method, frequency)
		}
	})

	t.Run("unknown method is rejected", func(t *testing.T) {
		_, _, problem := resolvePlanOverrides(settings, "fastest", "")
		if problem == "" {
			t.Error("unknown method fell back silently instead of reporting a problem")
		}
	})

	t.Run("unknown frequency is rejected", func(t *testing.T) {
		_, _, problem := resolvePlanOverrides(settings, "", "daily")
		if problem == "" {
			t.Error("unknown frequency fell back silently instead of reporting a problem")
		}
	})
}
