package event

import "strings"

// Rejection reasons, also used verbatim in webhook response bodies.
const (
	ReasonNoContent     = "no content"
	ReasonNotInbound    = "not inbound"
	ReasonNotQualifying = "not a qualifying record"
	ReasonTechnical     = "technical message"
)

// Decision is the classifier verdict for one event.
type Decision struct {
	Eligible bool
	Reason   string
}

// Classifier applies the eligibility rules to inbound events.
// The zero value rejects everything with no content; build one with New.
type Classifier struct {
	// phrases are lowercase denylist markers of system-generated messages.
	phrases []string
}

// NewClassifier builds a classifier with the given technical-phrase denylist.
func NewClassifier(technicalPhrases []string) *Classifier {
	phrases := make([]string, 0, len(technicalPhrases))
	for _, p := range technicalPhrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Classifier{phrases: phrases}
}

// Classify returns whether ev should be forwarded for analysis. Rules are
// applied in order; the first failing rule determines the reason.
func (c *Classifier) Classify(ev Inbound) Decision {
	if strings.TrimSpace(ev.Text) == "" {
		return Decision{Reason: ReasonNoContent}
	}
	if ev.Direction != DirectionIn {
		return Decision{Reason: ReasonNotInbound}
	}
	if ev.EntityID == "" || ev.EntityType != "lead" {
		return Decision{Reason: ReasonNotQualifying}
	}
	if c.isTechnical(ev.Text) {
		return Decision{Reason: ReasonTechnical}
	}
	return Decision{Eligible: true}
}

func (c *Classifier) isTechnical(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range c.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
