package events

import (
	"context"
	"log/slog"
	"time"

	"minisocial/internal/middleware"
	"minisocial/internal/observability"
)

const publishTimeout = 3 * time.Second

// Dispatcher hands events to the broker backend and then to every sink.
// Failures are logged and counted; a committed change is never undone
// because its event could not be delivered.
type Dispatcher struct {
	backend     Backend
	backendName string
	topic       string
	sinks       []Sink
}

// NewDispatcher returns a Dispatcher publishing to topic on backend.
// A nil backend publishes nowhere and only feeds the sinks.
func NewDispatcher(backend Backend, backendName, topic string, sinks ...Sink) *Dispatcher {
	if backend == nil {
		backend = NopBackend{}
		backendName = "none"
	}
	return &Dispatcher{backend: backend, backendName: backendName, topic: topic, sinks: sinks}
}

// AddSink registers another in-process sink.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Emit publishes evt. It is detached from ctx cancellation so an event for
// a committed change still goes out if the client disconnects.
func (d *Dispatcher) Emit(ctx context.Context, evt Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if data, err := evt.Encode(); err != nil {
		middleware.Logger.ErrorContext(ctx, "encode event", slog.String("type", evt.Type), slog.String("error", err.Error()))
	} else if _, err := d.backend.Publish(ctx, d.topic, data, map[string]string{"type": evt.Type}); err != nil {
		observability.EventsPublished.WithLabelValues(d.backendName, "error").Inc()
		middleware.Logger.WarnContext(ctx, "publish event",
			slog.String("backend", d.backendName),
			slog.String("type", evt.Type),
			slog.String("error", err.Error()),
		)
	} else {
		observability.EventsPublished.WithLabelValues(d.backendName, "ok").Inc()
	}

	for _, s := range d.sinks {
		if err := s.Deliver(ctx, evt); err != nil {
			middleware.Logger.WarnContext(ctx, "deliver event", slog.String("type", evt.Type), slog.String("error", err.Error()))
		}
	}
}

// Close closes the backend.
func (d *Dispatcher) Close() error {
	return d.backend.Close()
}

// NopBackend drops everything.
type NopBackend struct{}

func (NopBackend) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

// Subscribe blocks until ctx is done.
func (NopBackend) Subscribe(ctx context.Context, _ string, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (NopBackend) Close() error { return nil }
