package doctor

import (
	"strings"
	"testing"

	"github.com/mistbot/kommorelay/internal/config"
)

func validConfig() *config.Config {
	cfg := config.Default()
	cfg.KommoDomain = "example.kommo.com"
	cfg.KommoToken = "token"
	cfg.KommoSecret = "s3cr3t"
	cfg.RequireSignature = true
	return &cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	r := New(validConfig()).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestValidate_MissingDomain(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.KommoDomain = ""
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "kommo", "kommo_domain")
}

func TestValidate_DomainWithScheme(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.KommoDomain = "https://example.kommo.com"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "kommo", "bare host")
}

func TestValidate_MissingToken(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.KommoToken = ""
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "kommo", "kommo_token")
}

func TestValidate_PortOutOfRange(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Port = 70000
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "server", "out of range")
}

func TestValidate_RelativeAnalyzeURL(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.AnalyzeURL = "/api/analyze"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "analysis", "absolute URL")
}

func TestValidate_RequireSignatureWithoutSecret(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.KommoSecret = ""
	cfg.RequireSignature = true
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "signature", "kommo_secret is empty")
}

func TestValidate_UnknownOutgoingStore(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Outgoing.Store = "redis"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "outgoing", "redis")
}

func TestValidate_StorePathRequired(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Outgoing.Store = config.StoreSQLite
	cfg.Outgoing.Path = ""
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "outgoing", "outgoing.path")
}

func TestValidate_HistoryLimitNonPositive(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.HistoryLimit = 0
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "history", "positive")
}

func TestValidate_WarnMissingSecret(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.KommoSecret = ""
	cfg.RequireSignature = false
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "signature", "unverified")
}

func TestValidate_WarnOptionalSignature(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.RequireSignature = false
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "signature", "require_signature")
}

func TestValidate_WarnEmptyDenylist(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.TechnicalPhrases = []string{"", "  "}
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "classifier", "denylist is empty")
}

func TestValidate_WarnLargeHistoryLimit(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.HistoryLimit = 500
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "history", "very large")
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Message: "bad thing"}},
	}
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bad thing") {
		t.Fatalf("expected JSON to contain error message, got: %s", out)
	}
}

func TestFormatHuman_Valid(t *testing.T) {
	t.Parallel()
	r := &Result{Valid: true}
	out := FormatHuman(r)
	if !strings.Contains(out, "valid") {
		t.Fatalf("expected 'valid' in output, got: %s", out)
	}
}

func TestFormatHuman_Errors(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Field: "x.y", Message: "broken"}},
	}
	out := FormatHuman(r)
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "broken") {
		t.Fatalf("expected error in output, got: %s", out)
	}
}

// --- helpers ---

func assertHasError(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, e := range r.Errors {
		if e.Category == category && strings.Contains(e.Message, substring) {
			return
		}
	}
	t.Fatalf("expected error with category=%q containing %q, got: %v", category, substring, r.Errors)
}

func assertHasWarning(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Category == category && strings.Contains(w.Message, substring) {
			return
		}
	}
	t.Fatalf("expected warning with category=%q containing %q, got: %v", category, substring, r.Warnings)
}
