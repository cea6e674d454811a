package entity

import (
	"errors"
	"fmt"

	"github.com/garyjia/coselection/internal/domain/event"
)

// ErrTimelineOrder is returned when an event would be appended before the latest one
var ErrTimelineOrder = errors.New("timeline event out of order")

// Timeline is the append-only audit history of one entity, oldest first
type Timeline []event.Event

// Append returns a new timeline with the event at the end. The receiver is not modified.
func (t Timeline) Append(evt event.Event) (Timeline, error) {
	if last, ok := t.Last(); ok {
		if evt.OccurredAt.Before(last.OccurredAt) {
			return nil, fmt.Errorf("%w: %s occurred at %s, before %s", ErrTimelineOrder,
				evt.ID, evt.OccurredAt, last.OccurredAt)
		}
	}
	for _, existing := range t {
		if existing.ID == evt.ID {
			return nil, fmt.Errorf("%w: duplicate event id %s", ErrTimelineOrder, evt.ID)
		}
	}

	next := make(Timeline, len(t), len(t)+1)
	copy(next, t)
	return append(next, evt), nil
}

// Last returns the most recent event
func (t Timeline) Last() (event.Event, bool) {
	if len(t) == 0 {
		return event.Event{}, false
	}
	return t[len(t)-1], true
}

// Clone returns a copy that shares no backing array with the receiver
func (t Timeline) Clone() Timeline {
	if t == nil {
		return nil
	}
	out := make(Timeline, len(t))
	copy(out, t)
	return out
}
