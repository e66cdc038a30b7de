package ui

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/five82/timebank/internal/ledger"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"exactly ten", 11, "exactly ten"},
		{"much too long", 8, "much ..."},
		{"abcdef", 3, "abc"},
		{"unlimited", 0, "unlimited"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"in_progress": "In Progress",
		"completed":   "Completed",
		"":            "",
		"HOLD":        "Hold",
	}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Fatalf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"subsecond", 0, "now"},
		{"seconds", 12 * time.Second, "12s"},
		{"minutes", 61 * time.Second, "1m"},
		{"hours_only", 2*time.Hour + 10*time.Second, "2h"},
		{"hours_minutes", 2*time.Hour + 3*time.Minute, "2h 3m"},
		{"days", 24 * time.Hour, "1d"},
		{"days_hours", 26 * time.Hour, "1d 2h"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := humanizeDuration(tc.in); got != tc.want {
				t.Fatalf("humanizeDuration(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatWhen(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, "-"},
		{"now", now.Add(20 * time.Second), "now"},
		{"soon", now.Add(90 * time.Minute), "in 1h 30m"},
		{"recent", now.Add(-3 * time.Hour), "3h ago"},
		{"far", now.Add(-30 * 24 * time.Hour), now.Add(-30 * 24 * time.Hour).Local().Format("2006-01-02")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatWhen(tc.at, now); got != tc.want {
				t.Fatalf("formatWhen = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSignedCredits(t *testing.T) {
	cases := []struct {
		typ    ledger.TransactionType
		amount string
		want   string
	}{
		{ledger.TxEarned, "2", "+2.0"},
		{ledger.TxRefund, "1.5", "+1.5"},
		{ledger.TxSpent, "2", "-2.0"},
		{ledger.TxHold, "-1", "-1.0"},
		{ledger.TxPenalty, "0", "0.0"},
	}
	for _, tc := range cases {
		tx := ledger.Transaction{Type: tc.typ, Amount: decimal.RequireFromString(tc.amount)}
		if got := signedCredits(tx); got != tc.want {
			t.Fatalf("signedCredits(%s %s) = %q, want %q", tc.typ, tc.amount, got, tc.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q, want %q", got, "ab  ")
	}
	if got := padRight("abcdef", 4); got != "abcdef" {
		t.Fatalf("padRight long = %q, want unchanged", got)
	}
}
