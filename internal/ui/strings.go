package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/views"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// titleCase converts an underscore-separated string to title case.
func titleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Split(value, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}

// formatWhen renders a timestamp relative to now for dates within a week,
// and as a date otherwise. The zero time renders as "-".
func formatWhen(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	local := t.Local()
	d := t.Sub(now)
	switch {
	case d > -time.Minute && d < time.Minute:
		return "now"
	case d > 0 && d < 24*time.Hour:
		return "in " + humanizeDuration(d)
	case d < 0 && d > -24*time.Hour:
		return humanizeDuration(-d) + " ago"
	case d > -7*24*time.Hour && d < 7*24*time.Hour:
		return local.Format("Mon 15:04")
	default:
		return local.Format("2006-01-02")
	}
}

// humanizeDuration renders d with its two largest units, e.g. "2h 3m".
func humanizeDuration(d time.Duration) string {
	if d < time.Second {
		return "now"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	seconds := int((d - time.Duration(minutes)*time.Minute) / time.Second)

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// signedCredits renders a transaction amount with the sign of its effect
// on the balance.
func signedCredits(tx ledger.Transaction) string {
	amount := tx.Amount.Abs()
	if views.Inflow(tx.Type) {
		return "+" + views.Credits(amount)
	}
	if amount.IsZero() {
		return views.Credits(amount)
	}
	return "-" + views.Credits(amount)
}

// hours renders a session duration in hours.
func hours(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return d.StringFixed(1) + "h"
}
