// Package event defines the canonical inbound chat event and the rules that
// decide whether an event is worth analyzing.
package event

// Direction is where a chat message came from, relative to the business.
type Direction string

const (
	// DirectionIn is a message written by the customer.
	DirectionIn Direction = "in"
	// DirectionOut is a message written by staff or an automation.
	DirectionOut Direction = "out"
	// DirectionUnknown is anything the payload did not identify.
	DirectionUnknown Direction = "unknown"
)

// Inbound is one normalized webhook chat event. It lives for the duration of
// a single request and is never mutated after extraction.
type Inbound struct {
	Text       string
	Direction  Direction
	EntityID   string
	EntityType string
	// CreatedAt is the payload's unix-seconds timestamp, zero when absent.
	CreatedAt int64
}
