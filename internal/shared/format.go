package shared

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usd = message.NewPrinter(language.English)

// FormatUSD renders a whole-dollar amount with thousand separators, e.g. "$1,234,567".
func FormatUSD(v int64) string {
	if v < 0 {
		return usd.Sprintf("-$%d", -v)
	}
	return usd.Sprintf("$%d", v)
}

// FormatUSDShort renders large amounts in compact form, e.g. "$1.2M".
func FormatUSDShort(v int64) string {
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%s$%.1fM", neg, float64(v)/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%s$%.1fK", neg, float64(v)/1_000)
	default:
		return fmt.Sprintf("%s$%d", neg, v)
	}
}

// FormatDelta renders a signed change indicator, e.g. "+3" or "-2".
func FormatDelta(v int64) string {
	if v > 0 {
		return usd.Sprintf("+%d", v)
	}
	return usd.Sprintf("%d", v)
}
