package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/coselection/internal/domain/event"
)

// Dispatcher routes committed timeline events to registered handlers, keyed by event kind
type Dispatcher interface {
	// Subscribe registers a handler for an event kind
	Subscribe(kind event.Kind, handler Handler)

	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(kind event.Kind, name string, handler Handler)

	// SubscribeAll registers the same named handler for every event kind
	SubscribeAll(name string, handler Handler)

	// Dispatch sends the event to all handlers synchronously.
	// Returns first error encountered (handlers run in order)
	Dispatch(ctx context.Context, env *event.Envelope) error

	// DispatchAsync sends the event to handlers without waiting for them
	DispatchAsync(ctx context.Context, env *event.Envelope)

	// ListHandlers returns registered handlers for an event kind
	ListHandlers(kind event.Kind) []HandlerInfo

	// Close shuts down the dispatcher and waits for async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	// mu guards handlers and closed; wg.Add happens under the read lock so Close
	// cannot start waiting between the closed check and the Add
	mu       sync.RWMutex
	handlers map[event.Kind][]HandlerInfo
	closed   bool
	logger   Logger

	wg sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Kind][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a handler with an auto-generated name
func (d *eventDispatcher) Subscribe(kind event.Kind, handler Handler) {
	d.mu.RLock()
	name := fmt.Sprintf("%s-handler-%d", kind, len(d.handlers[kind]))
	d.mu.RUnlock()
	d.SubscribeNamed(kind, name, handler)
}

// SubscribeNamed registers a handler with a specific name
func (d *eventDispatcher) SubscribeNamed(kind event.Kind, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[kind] = append(d.handlers[kind], HandlerInfo{
		Name:    name,
		Kind:    kind,
		Handler: handler,
	})

	if d.logger != nil {
		d.logger.Info("Handler registered",
			"event_kind", kind,
			"handler_name", name,
		)
	}
}

// SubscribeAll registers the handler for every event kind
func (d *eventDispatcher) SubscribeAll(name string, handler Handler) {
	for _, kind := range event.Kinds() {
		d.SubscribeNamed(kind, name, handler)
	}
}

// Dispatch sends the event to all registered handlers synchronously
func (d *eventDispatcher) Dispatch(ctx context.Context, env *event.Envelope) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return fmt.Errorf("dispatcher is closed")
	}
	handlers := append([]HandlerInfo(nil), d.handlers[env.Event.Kind]...)
	d.mu.RUnlock()

	for _, info := range handlers {
		if err := d.safeExecute(ctx, env, info); err != nil {
			if d.logger != nil {
				d.logger.Error("Handler error",
					"event_kind", env.Event.Kind,
					"event_id", env.Event.ID,
					"entity_id", env.EntityID,
					"handler_name", info.Name,
					"error", err,
				)
			}
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}

	return nil
}

// DispatchAsync sends the event to handlers asynchronously
func (d *eventDispatcher) DispatchAsync(ctx context.Context, env *event.Envelope) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		if d.logger != nil {
			d.logger.Error("Cannot dispatch async event, dispatcher is closed",
				"event_kind", env.Event.Kind,
				"event_id", env.Event.ID,
			)
		}
		return
	}

	handlers := append([]HandlerInfo(nil), d.handlers[env.Event.Kind]...)
	d.wg.Add(len(handlers))
	d.mu.RUnlock()

	for _, info := range handlers {
		go func(h HandlerInfo) {
			defer d.wg.Done()

			if err := d.safeExecute(ctx, env, h); err != nil && d.logger != nil {
				d.logger.Error("Async handler error",
					"event_kind", env.Event.Kind,
					"event_id", env.Event.ID,
					"entity_id", env.EntityID,
					"handler_name", h.Name,
					"error", err,
				)
			}
		}(info)
	}
}

// ListHandlers returns registered handlers for an event kind, without the functions
func (d *eventDispatcher) ListHandlers(kind event.Kind) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handlers := d.handlers[kind]
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{
			Name:        h.Name,
			Kind:        h.Kind,
			Description: h.Description,
		}
	}
	return result
}

// Close shuts down the dispatcher and waits for async handlers to complete
func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	d.mu.Unlock()

	if d.logger != nil {
		d.logger.Info("Closing dispatcher, waiting for async handlers")
	}

	d.wg.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}

	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, env *event.Envelope, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			if d.logger != nil {
				d.logger.Error("Handler panic recovered",
					"event_kind", env.Event.Kind,
					"event_id", env.Event.ID,
					"handler_name", info.Name,
					"panic", r,
				)
			}
		}
	}()

	return info.Handler(ctx, env)
}
