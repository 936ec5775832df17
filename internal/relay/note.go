package relay

import (
	"strings"

	"github.com/mistbot/kommorelay/internal/analysis"
)

// FormatNote renders the fixed note template posted back to the CRM.
// Fields the analysis service left empty render as "-".
func FormatNote(r *analysis.Result) string {
	var b strings.Builder
	b.WriteString("AI conversation analysis:\n")
	b.WriteString("• Language: " + orDash(r.Language) + "\n")
	b.WriteString("• Keywords: " + orDash(strings.Join(r.Keywords, ", ")) + "\n")
	b.WriteString("• Analysis: " + orDash(r.Analysis) + "\n")
	b.WriteString("• Reply: " + orDash(r.Reply) + "\n")
	b.WriteString("• Recommendation: " + orDash(r.SalesRecommendation))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
