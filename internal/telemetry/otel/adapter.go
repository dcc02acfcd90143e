package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"inotebook/backend/internal/telemetry"
	"inotebook/backend/internal/telemetry/domain"
)

const scopeName = "inotebook.security"

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(scopeName))
}

// NewEventEmitterWithLogger returns an emitter writing to logger. A nil logger yields a no-op emitter.
func NewEventEmitterWithLogger(logger otellog.Logger) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

// WithCounter returns emitter wrapped so every event also increments the
// inotebook.security.events counter on meter, labeled by event_type.
// Returns emitter unchanged if meter is nil or the instrument cannot be created.
func WithCounter(emitter telemetry.EventEmitter, meter metric.Meter) telemetry.EventEmitter {
	if meter == nil {
		return emitter
	}
	counter, err := meter.Int64Counter("inotebook.security.events",
		metric.WithDescription("Security events emitted by the auth flows"),
	)
	if err != nil {
		return emitter
	}
	return &countingEmitter{next: emitter, counter: counter}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.SecurityEvent) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the security event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if len(event.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(event.Metadata))
	}
	addString := func(k, v string) {
		if v != "" {
			rec.AddAttributes(otellog.String(k, v))
		}
	}
	addString("user_id", event.UserID)
	addString("session_id", event.SessionID)
	addString("event_type", event.EventType)
	addString("source", event.Source)
	addString("client_ip", event.IP)
	e.logger.Emit(ctx, rec)
	return nil
}

type countingEmitter struct {
	next    telemetry.EventEmitter
	counter metric.Int64Counter
}

func (c *countingEmitter) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	if event == nil {
		return nil
	}
	c.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", event.EventType)))
	if c.next == nil {
		return nil
	}
	return c.next.Emit(ctx, event)
}
