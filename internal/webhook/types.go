package webhook

import (
	"context"

	"github.com/mistbot/kommorelay/internal/event"
)

// Pipeline is what the handler hands eligible events to.
type Pipeline interface {
	// Process runs analysis for an eligible inbound event and writes the
	// resulting note back to the CRM.
	Process(ctx context.Context, ev event.Inbound) error
	// LogOutgoing records an outgoing message on the side channel.
	// Best-effort: failures are logged by the implementation, never returned.
	LogOutgoing(ctx context.Context, ev event.Inbound)
}

// Config holds webhook server configuration.
type Config struct {
	// Addr is the listen address (e.g. ":10000").
	Addr string

	// Secret is the shared HMAC-SHA1 secret. Empty disables verification.
	Secret string

	// RequireSignature rejects requests without an X-Signature header.
	// Only meaningful when Secret is set.
	RequireSignature bool

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64
}

// StatusResponse is the JSON body for accepted webhook requests.
type StatusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse is the JSON body for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SignatureHeader is the header Kommo signs its deliveries with.
const SignatureHeader = "X-Signature"

// DefaultMaxBodySize caps request bodies at 1 MB when config leaves it unset.
const DefaultMaxBodySize = 1048576
