// Package message composes the outgoing alert SMS texts.
package message

import (
	"fmt"
	"strings"

	"weather_alerts/internal/model"
)

// precedence orders categories by severity; the composed SMS names only the
// most severe one present.
var precedence = []model.Category{
	model.CategoryThunderstorm,
	model.CategorySnow,
	model.CategoryRain,
	model.CategoryDrizzle,
}

var warnings = map[model.Category]string{
	model.CategoryThunderstorm: "Storm expected today. Stay indoors if you can.",
	model.CategorySnow:         "Snow expected today. Watch for icy roads.",
	model.CategoryRain:         "Rain expected today. Take an umbrella.",
	model.CategoryDrizzle:      "Drizzle expected today. A rain jacket should do.",
}

// BuildAlert composes the alert text for a location and its severity report.
// Returns the empty string when nothing severe was found, signalling that no
// alert should be sent.
func BuildAlert(country, postalCode string, severity model.Severity) string {
	if severity.Empty() {
		return ""
	}
	for _, cat := range precedence {
		if severity.Has(cat) {
			var b strings.Builder
			fmt.Fprintf(&b, "⚠️ Weather alert (%s)\n", placeLabel(country, postalCode))
			b.WriteString(warnings[cat])
			return b.String()
		}
	}
	return ""
}

// BuildTestAlert composes the fixed message used by forced test dispatches.
func BuildTestAlert(country, postalCode string) string {
	return fmt.Sprintf("TEST ALERT (%s)\nThis is a test message verifying SMS delivery end to end.",
		placeLabel(country, postalCode))
}

// AppendUnsubscribe attaches the unsubscribe link for the given token.
func AppendUnsubscribe(msg, baseURL, token string) string {
	return msg + "\n\nUnsubscribe: " + strings.TrimSuffix(baseURL, "/") + "/unsubscribe/" + token
}

// Truncate cuts msg to at most maxLen characters, ending in "..." when a cut
// was needed. Counting is rune-based so a multi-byte symbol is never split.
// The cut always comes off the tail, so the opening alert text survives at
// the expense of the link.
func Truncate(msg string, maxLen int) string {
	runes := []rune(msg)
	if len(runes) <= maxLen {
		return msg
	}
	return string(runes[:maxLen-3]) + "..."
}

func placeLabel(country, postalCode string) string {
	return strings.ToUpper(strings.TrimSpace(country)) + "-" + strings.TrimSpace(postalCode)
}
