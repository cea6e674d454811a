package event

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/coselection/internal/domain/permission"
)

// Metadata keys written by the lifecycle engine
const (
	MetaPreviousState = "previous_state"
	MetaNewState      = "new_state"
	MetaAction        = "action"
	MetaOutcome       = "outcome"
	MetaOriginalID    = "original_id"
	MetaAdjustmentID  = "adjustment_id"
	MetaAmount        = "amount"
	MetaFields        = "fields"
)

// Event is one immutable timeline entry of an entity's audit history
type Event struct {
	ID          string            `json:"id"`
	Actor       permission.Actor  `json:"actor"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Kind        Kind              `json:"kind"`
	Description string            `json:"description"`
	ReasonCode  string            `json:"reason_code,omitempty"`
	Note        string            `json:"note,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Option sets an optional field while the event is being built
type Option func(*Event)

// WithReason attaches a reason code
func WithReason(code string) Option {
	return func(e *Event) {
		e.ReasonCode = code
	}
}

// WithNote attaches a free-text note, kept verbatim
func WithNote(note string) Option {
	return func(e *Event) {
		e.Note = note
	}
}

// WithMetadata merges key-value pairs into the event metadata
func WithMetadata(metadata map[string]string) Option {
	return func(e *Event) {
		if len(metadata) == 0 {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// NewEvent creates a timeline event. The id and timestamp are always assigned here.
func NewEvent(actor permission.Actor, kind Kind, description string, opts ...Option) Event {
	evt := Event{
		Actor:       actor,
		Kind:        kind,
		Description: description,
	}

	for _, opt := range opts {
		opt(&evt)
	}

	evt.ID = uuid.NewString()
	evt.OccurredAt = defaultClock.Now()

	return evt
}

// Meta retrieves a metadata value
func (e Event) Meta(key string) string {
	return e.Metadata[key]
}

// PreviousState returns the state recorded before the change
func (e Event) PreviousState() string {
	return e.Meta(MetaPreviousState)
}

// NewState returns the state recorded after the change
func (e Event) NewState() string {
	return e.Meta(MetaNewState)
}

// monotonicClock never hands out a timestamp earlier than one it already issued
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

var defaultClock = &monotonicClock{now: time.Now}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
