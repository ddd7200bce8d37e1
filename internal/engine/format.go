package engine

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Money formats an amount with a dollar sign and thousands separators.
// Whole amounts omit the cents.
func Money(v float64) string {
	p := message.NewPrinter(language.English)
	if v == math.Trunc(v) {
		return p.Sprintf("$%.0f", v)
	}
	return p.Sprintf("$%.2f", v)
}

// Number formats an integer with thousands separators.
func Number(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// Plural picks the singular or plural noun for n and prefixes the count.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// SeverityPhrase describes non-zero severity counts, e.g.
// "2 critical and 1 warning".
func SeverityPhrase(c domain.SeverityCounts) string {
	var parts []string
	if c.Critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical", c.Critical))
	}
	if c.Warning > 0 {
		parts = append(parts, Plural(c.Warning, "warning", "warnings"))
	}
	if c.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d informational", c.Info))
	}
	switch len(parts) {
	case 0:
		return "none"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}
