// Package outlog persists outgoing chat messages for audit. The relay only
// ever appends; nothing in this process reads the records back.
package outlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Entry is one outgoing message record.
type Entry struct {
	ID        string `json:"id"`
	EntityID  string `json:"entity_id"`
	Direction string `json:"direction"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// Sink is an append-only store of outgoing messages.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// NewEntry builds an Entry with a fresh ID and the outgoing direction set.
func NewEntry(entityID, text string, createdAt int64) Entry {
	return Entry{
		ID:        uuid.NewString(),
		EntityID:  entityID,
		Direction: "outgoing",
		Text:      text,
		CreatedAt: createdAt,
	}
}

// FileSink appends newline-delimited JSON records to a single file.
// Concurrent appends rely on O_APPEND semantics; each record is written with
// one Write call so lines do not interleave.
type FileSink struct {
	f *os.File
}

// NewFileSink opens (creating if needed) the log file at path.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("outgoing log path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create outgoing log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open outgoing log: %w", err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode outgoing entry: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("append outgoing entry: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	return s.f.Close()
}

// Discard drops every record. Used when the outgoing store is disabled.
type Discard struct{}

func (Discard) Append(context.Context, Entry) error { return nil }
func (Discard) Close() error                        { return nil }
