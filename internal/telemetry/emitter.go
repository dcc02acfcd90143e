// Package telemetry emits security events to OpenTelemetry logs and, when configured, Kafka.
package telemetry

import (
	"context"
	"errors"

	"inotebook/backend/internal/telemetry/domain"
)

// EventEmitter emits security events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.SecurityEvent) error
}

// MultiEmitter fans an event out to every non-nil emitter and joins their errors.
type MultiEmitter []EventEmitter

// Emit sends event to each emitter in order. All emitters run even if one fails.
func (m MultiEmitter) Emit(ctx context.Context, event *domain.SecurityEvent) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
