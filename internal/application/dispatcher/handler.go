package dispatcher

import (
	"context"

	"github.com/garyjia/coselection/internal/domain/event"
)

// Handler processes one committed timeline event
type Handler func(ctx context.Context, env *event.Envelope) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	Kind        event.Kind
	Handler     Handler
	Description string
}
