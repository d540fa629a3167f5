package main

import "testing"

func TestDollarsToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"100", 10000},
		{"19.99", 1999}, // float truncation would store 1998
		{"6.49", 649},
		{"10.555", 1056},
		{"0.005", 1},
		{"-2.50", -250},
		{" 42.00 ", 4200},
	}
	for _, tc := range cases {
		got, err := dollarsToCents(tc.in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %d cents, want %d", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "abc", "12..5", "$5"} {
		if _, err := dollarsToCents(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestPercentToBps(t *testing.T) {
	got, err := percentToBps("19.99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1999 {
		t.Errorf("19.99%% = %d bps, want 1999", got)
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{1999, "$19.99"},
		{125000000, "$1,250,000.00"},
		{-250, "-$2.50"},
	}
	for _, tc := range cases {
		if got := money(tc.cents); got != tc.want {
			t.Errorf("money(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
