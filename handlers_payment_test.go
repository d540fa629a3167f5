package main

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParsePaymentForm(t *testing.T) {
	post := func(form url.Values) (time.Time, int64, string, string) {
		req := httptest.NewRequest("POST", "/payments/add", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return parsePaymentForm(req)
	}

	t.Run("valid", func(t *testing.T) {
		paidOn, cents, note, problem := post(url.Values{
			"paid_on":        {"2026-03-15"},
			"amount_dollars": {"125.50"},
			"note":           {"  extra from bonus  "},
		})
		if problem != "" {
			t.Fatalf("unexpected problem: %s", problem)
		}
		if !paidOn.Equal(time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("paidOn = %v", paidOn)
		}
		if cents != 12550 {
			t.Errorf("cents = %d, want 12550", cents)
		}
		if note != "extra from bonus" {
			t.Errorf("note = %q", note)
		}
	})

	t.Run("rounds half up", func(t *testing.T) {
		_, cents, _, problem := post(url.Values{
			"paid_on":        {"2026-03-15"},
			"amount_dollars": {"10.555"},
		})
		if problem != "" {
			t.Fatalf("unexpected problem: %s", problem)
		}
		if cents != 1056 {
			t.Errorf("cents = %d, want 1056", cents)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		_, _, _, problem := post(url.Values{
			"paid_on":        {"15/03/2026"},
			"amount_dollars": {"50"},
		})
		if problem == "" {
			t.Error("bad date accepted")
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		for _, amt := range []string{"0", "-5", "abc", ""} {
			_, _, _, problem := post(url.Values{
				"paid_on":        {"2026-03-15"},
				"amount_dollars": {amt},
			})
			if problem == "" {
				t.Errorf("amount %q accepted", amt)
			}
		}
	})

	t.Run("note is escaped", func(t *testing.T) {
		_, _, note, problem := post(url.Values{
			"paid_on":        {"2026-03-15"},
			"amount_dollars": {"20"},
			"note":           {"<script>"},
		})
		if problem != "" {
			t.Fatalf("unexpected problem: %s", problem)
		}
		if strings.Contains(note, "<") {
			t.Errorf("note not escaped: %q", note)
		}
	})
}
