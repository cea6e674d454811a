package service

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/coselection/internal/application/dispatcher"
	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics receives lifecycle counters. Outcome labels are workflow.ErrorCode values or "ok".
type Metrics interface {
	ObserveTransition(kind workflow.Kind, to workflow.State, outcome string)
	ObserveClaim(outcome string)
	ObserveSweep(pass string, applied, skipped int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTransition(workflow.Kind, workflow.State, string) {}
func (noopMetrics) ObserveClaim(string)                                     {}
func (noopMetrics) ObserveSweep(string, int, int)                           {}

// TransitionInput is the caller-supplied part of a transition request
type TransitionInput struct {
	To         workflow.State      `json:"to"`
	ReasonCode workflow.ReasonCode `json:"reason_code"`
	Note       string              `json:"note"`
	Outcome    workflow.Outcome    `json:"outcome"`
}

// Option configures a service
type Option func(*options)

type options struct {
	metrics Metrics
	now     func() time.Time
}

// WithMetrics reports counters to m
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the time source used for guard evaluation
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{
		metrics: noopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publisher hands committed events to in-process subscribers
type publisher struct {
	dispatcher dispatcher.Dispatcher
}

func (p publisher) publish(ctx context.Context, kind workflow.Kind, entityID string, events ...event.Event) {
	if p.dispatcher == nil {
		return
	}
	for _, evt := range events {
		p.dispatcher.DispatchAsync(context.WithoutCancel(ctx), &event.Envelope{
			EntityKind: kind.String(),
			EntityID:   entityID,
			Event:      evt,
		})
	}
}

// staleTransition reports a conditional write that lost to a concurrent change
func staleTransition(kind workflow.Kind, id string, from, to workflow.State) error {
	return &workflow.Error{
		Code:     workflow.ErrInvalidTransition,
		Kind:     kind,
		EntityID: id,
		From:     from,
		To:       to,
		Message:  "the record changed since it was read; refresh and retry",
	}
}

// outcomeLabel turns an error into a metrics label
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, port.ErrNotFound) {
		return "not_found"
	}
	return workflow.ErrorCode(err)
}

func requireActor(actor permission.Actor) error {
	if actor.IsZero() || !actor.Role.IsValid() {
		return &workflow.Error{
			Code:    workflow.ErrPermissionDenied,
			Message: "a known actor is required",
		}
	}
	return nil
}
