package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/smartegg/smartegg-core/internal/alert"
)

// displayTimeLayout is how timestamps appear in chat messages.
const displayTimeLayout = "02/01/2006 15:04:05"

var severityEmojis = map[alert.Severity]string{
	alert.SeverityCritical: "🔴",
	alert.SeverityWarning:  "🟡",
	alert.SeverityInfo:     "🔵",
}

func severityEmoji(s alert.Severity) string {
	if e, ok := severityEmojis[s]; ok {
		return e
	}
	return "⚪"
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown protects user-supplied text in legacy Markdown messages.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// formatAlert renders an alert notice for Telegram.
func formatAlert(a *alert.Alert, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n%s\n\n", severityEmoji(a.Severity), a.Title, a.Message)
	if a.Value != nil && *a.Value != "" {
		fmt.Fprintf(&b, "Valor: %s\n\n", escapeMarkdown(*a.Value))
	}
	fmt.Fprintf(&b, "_%s_", at.Format(displayTimeLayout))
	return b.String()
}

// formatEggTurn renders an egg-turn notice for Telegram.
func formatEggTurn(incubationName string, count int, at time.Time) string {
	return fmt.Sprintf("🔄 *Huevos Volteados*\n\nIncubación: %s\nVolteo #%d completado exitosamente\n\n_%s_",
		escapeMarkdown(incubationName), count, at.Format(displayTimeLayout))
}

// formatNotice renders any notice kind, or "" for unknown kinds.
func formatNotice(n Notice, loc *time.Location) string {
	at := n.Timestamp.In(loc)
	switch n.Kind {
	case KindAlert:
		if n.Alert == nil {
			return ""
		}
		return formatAlert(n.Alert, at)
	case KindEggTurn:
		return formatEggTurn(n.IncubationName, n.TurnCount, at)
	}
	return ""
}
