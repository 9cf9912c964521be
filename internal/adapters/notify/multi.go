package notify

import (
	"context"
	"errors"

	"github.com/whaletracker/engine/internal/ports"
)

// Multi reparte cada evento a varios notifiers. Entrega a todos aunque
// alguno falle; los errores se juntan para que el caller decida reintentar.
type Multi struct {
	targets []ports.Notifier
}

func NewMulti(targets ...ports.Notifier) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) PositionOpened(ctx context.Context, ev ports.PositionEvent) error {
	return m.each(func(n ports.Notifier) error { return n.PositionOpened(ctx, ev) })
}

func (m *Multi) PositionSettled(ctx context.Context, ev ports.PositionEvent) error {
	return m.each(func(n ports.Notifier) error { return n.PositionSettled(ctx, ev) })
}

func (m *Multi) EmergencyExit(ctx context.Context, ev ports.PositionEvent) error {
	return m.each(func(n ports.Notifier) error { return n.EmergencyExit(ctx, ev) })
}

func (m *Multi) Heartbeat(ctx context.Context, userIDs []int64) error {
	return m.each(func(n ports.Notifier) error { return n.Heartbeat(ctx, userIDs) })
}

func (m *Multi) each(fn func(ports.Notifier) error) error {
	var errs []error
	for _, n := range m.targets {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
