// Package doctor validates kommorelay configuration before startup.
//
// Unlike config.Validate, which only rejects settings the relay cannot start
// with, the doctor also surfaces warnings for configurations that start fine
// but probably do not behave the way the operator intends.
package doctor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mistbot/kommorelay/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServer(r)
	d.validateKommo(r)
	d.validateAnalysis(r)
	d.validateOutgoing(r)
	d.warnSignature(r)
	d.warnClassifier(r)
	d.warnHistory(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateServer checks the HTTP listener settings.
func (d *Doctor) validateServer(r *Result) {
	if d.cfg.Port <= 0 || d.cfg.Port > 65535 {
		d.addError(r, "server", "port", fmt.Sprintf("port %d out of range", d.cfg.Port))
	}
	if d.cfg.MaxBodySize <= 0 {
		d.addError(r, "server", "max_body_size", "max_body_size must be positive")
	}
	if d.cfg.RequestTimeout <= 0 {
		d.addError(r, "server", "request_timeout", "request_timeout must be positive")
	}
}

// validateKommo checks CRM credentials.
func (d *Doctor) validateKommo(r *Result) {
	if d.cfg.KommoDomain == "" {
		d.addError(r, "kommo", "kommo_domain", "kommo_domain is required")
	} else if strings.Contains(d.cfg.KommoDomain, "://") {
		d.addError(r, "kommo", "kommo_domain",
			fmt.Sprintf("kommo_domain %q must be a bare host, not a URL", d.cfg.KommoDomain))
	}
	if d.cfg.KommoToken == "" {
		d.addError(r, "kommo", "kommo_token", "kommo_token is required")
	}
}

// validateAnalysis checks the analysis endpoint URL.
func (d *Doctor) validateAnalysis(r *Result) {
	if d.cfg.AnalyzeURL == "" {
		d.addError(r, "analysis", "analyze_url", "analyze_url is required")
		return
	}
	u, err := url.Parse(d.cfg.AnalyzeURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		d.addError(r, "analysis", "analyze_url",
			fmt.Sprintf("analyze_url %q is not an absolute URL", d.cfg.AnalyzeURL))
	}
}

// validateOutgoing checks the outgoing-message sink settings.
func (d *Doctor) validateOutgoing(r *Result) {
	switch d.cfg.Outgoing.Store {
	case config.StoreFile, config.StoreSQLite:
		if d.cfg.Outgoing.Path == "" {
			d.addError(r, "outgoing", "outgoing.path",
				fmt.Sprintf("outgoing.path is required for store %q", d.cfg.Outgoing.Store))
		}
	case config.StoreOff:
	default:
		d.addError(r, "outgoing", "outgoing.store",
			fmt.Sprintf("unknown outgoing.store %q (expected file, sqlite, or off)", d.cfg.Outgoing.Store))
	}
}

// warnSignature flags verification setups that silently accept forgeries.
func (d *Doctor) warnSignature(r *Result) {
	if d.cfg.RequireSignature && d.cfg.KommoSecret == "" {
		d.addError(r, "signature", "require_signature",
			"require_signature is set but kommo_secret is empty")
		return
	}
	if d.cfg.KommoSecret == "" {
		d.addWarning(r, "signature", "kommo_secret",
			"no kommo_secret configured; webhook deliveries are accepted unverified")
		return
	}
	if !d.cfg.RequireSignature {
		d.addWarning(r, "signature", "require_signature",
			"unsigned requests are accepted; set require_signature to reject them")
	}
}

// warnClassifier flags denylist settings that change filtering behavior.
func (d *Doctor) warnClassifier(r *Result) {
	nonEmpty := 0
	for _, p := range d.cfg.TechnicalPhrases {
		if strings.TrimSpace(p) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		d.addWarning(r, "classifier", "technical_phrases",
			"technical phrase denylist is empty; system messages will reach the analysis service")
	}
}

// warnHistory flags history settings that inflate analysis prompts.
func (d *Doctor) warnHistory(r *Result) {
	if d.cfg.HistoryLimit <= 0 {
		d.addError(r, "history", "history_limit", "history_limit must be positive")
		return
	}
	if d.cfg.HistoryEnabled && d.cfg.HistoryLimit > 100 {
		d.addWarning(r, "history", "history_limit",
			fmt.Sprintf("history_limit %d is very large; prompts may exceed what the analysis service handles well", d.cfg.HistoryLimit))
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
