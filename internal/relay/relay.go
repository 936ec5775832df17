// Package relay runs the forward-and-write pipeline for one eligible event:
// fetch chat history, send the message for analysis, post the result back to
// the CRM as a note. One attempt per step, no compensation between steps.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/mistbot/kommorelay/internal/analysis"
	"github.com/mistbot/kommorelay/internal/event"
	"github.com/mistbot/kommorelay/internal/kommo"
	"github.com/mistbot/kommorelay/internal/outlog"
)

// Analyzer produces an analysis result for a message.
type Analyzer interface {
	Analyze(ctx context.Context, message string) (*analysis.Result, error)
}

// NoteWriter posts a note onto a CRM record.
type NoteWriter interface {
	CreateNote(ctx context.Context, entityType, entityID, text string) error
}

// HistoryFetcher returns recent chat messages for a lead, oldest first.
type HistoryFetcher interface {
	ChatMessages(ctx context.Context, leadID string, limit int) ([]kommo.ChatMessage, error)
}

// Options tune the pipeline.
type Options struct {
	// HistoryEnabled prepends a conversation-context block to the analysis
	// prompt, fetched from the CRM chat feed.
	HistoryEnabled bool
	HistoryLimit   int
}

// Relay wires the pipeline collaborators together.
type Relay struct {
	analyzer Analyzer
	notes    NoteWriter
	history  HistoryFetcher
	outgoing outlog.Sink
	opts     Options
	logger   *slog.Logger
}

// New builds a Relay. history may be nil when Options.HistoryEnabled is false.
func New(analyzer Analyzer, notes NoteWriter, history HistoryFetcher, outgoing outlog.Sink, opts Options, logger *slog.Logger) *Relay {
	return &Relay{
		analyzer: analyzer,
		notes:    notes,
		history:  history,
		outgoing: outgoing,
		opts:     opts,
		logger:   logger,
	}
}

// Process runs the pipeline for one eligible inbound event. An error from the
// analysis service or the note write aborts the pipeline; the analysis result
// is lost if the note write fails.
func (r *Relay) Process(ctx context.Context, ev event.Inbound) error {
	prompt := ev.Text
	if r.opts.HistoryEnabled {
		history := r.fetchHistory(ctx, ev.EntityID)
		prompt = buildPrompt(history, ev.Text)
	}

	result, err := r.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return err
	}
	r.logger.Debug("analysis received",
		"entity_id", ev.EntityID,
		"language", result.Language,
		"keywords", len(result.Keywords),
	)

	if err := r.notes.CreateNote(ctx, ev.EntityType, ev.EntityID, FormatNote(result)); err != nil {
		return err
	}
	r.logger.Info("analysis note created", "entity_type", ev.EntityType, "entity_id", ev.EntityID)
	return nil
}

// LogOutgoing records an outgoing message in the side-channel sink.
// Best effort: failures are logged and swallowed so the webhook response
// stays a 200.
func (r *Relay) LogOutgoing(ctx context.Context, ev event.Inbound) {
	createdAt := ev.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}
	entry := outlog.NewEntry(ev.EntityID, ev.Text, createdAt)
	if err := r.outgoing.Append(ctx, entry); err != nil {
		r.logger.Error("failed to log outgoing message", "entity_id", ev.EntityID, "error", err)
		return
	}
	r.logger.Debug("outgoing message logged", "entity_id", ev.EntityID, "id", entry.ID)
}

func (r *Relay) fetchHistory(ctx context.Context, leadID string) string {
	msgs, err := r.history.ChatMessages(ctx, leadID, r.opts.HistoryLimit)
	if err != nil {
		r.logger.Warn("chat history unavailable", "entity_id", leadID, "error", err)
		return historyUnavailable
	}
	return FormatHistory(msgs)
}
