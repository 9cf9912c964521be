package ports

import (
	"context"

	"github.com/whaletracker/engine/internal/domain"
)

// PositionEvent son los hechos numéricos de un evento de posición.
// El notifier decide cómo presentarlos.
type PositionEvent struct {
	Position domain.Position
	Score    int
	Reason   string
	Payout   float64 // settled / emergency exit
	PnLUSD   float64 // emergency exit
}

// Notifier entrega eventos al usuario. Fire and forget: el engine no bloquea
// en la entrega ni reintenta indefinidamente si el canal falla.
type Notifier interface {
	PositionOpened(ctx context.Context, ev PositionEvent) error
	PositionSettled(ctx context.Context, ev PositionEvent) error
	EmergencyExit(ctx context.Context, ev PositionEvent) error
	Heartbeat(ctx context.Context, userIDs []int64) error
}
