package relay

import (
	"strings"

	"github.com/mistbot/kommorelay/internal/kommo"
)

const (
	historyEmpty       = "(no previous messages)"
	historyUnavailable = "(chat history unavailable)"
)

// FormatHistory renders chat messages as one "Speaker: text" line each,
// oldest first, for the analysis prompt.
func FormatHistory(msgs []kommo.ChatMessage) string {
	if len(msgs) == 0 {
		return historyEmpty
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		who := "Client"
		if m.Direction == "out" {
			who = "Manager"
		}
		lines = append(lines, who+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func buildPrompt(history, text string) string {
	var b strings.Builder
	b.WriteString("Conversation context:\n")
	b.WriteString(history)
	b.WriteString("\n\nNew client message: ")
	b.WriteString(text)
	return b.String()
}
