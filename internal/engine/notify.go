package engine

// notify.go: entrega diferida de resultados. El settlement nunca espera a
// Telegram: las posiciones cerradas quedan en cola y este ciclo las drena.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/ports"
)

// NotifyCycle entrega las posiciones settled aún no notificadas.
// Una entrega fallida se reintenta el próximo ciclo: MarkNotified solo se
// ejecuta tras una entrega exitosa.
func (e *Engine) NotifyCycle(ctx context.Context) (int, error) {
	pending, err := e.storage.UnnotifiedSettled(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine.NotifyCycle: load pending: %w", err)
	}

	sent := 0
	for _, pos := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		payout := 0.0
		if pos.ResultPnLPct != nil {
			payout = domain.PayoutFromROI(pos.BetAmount, *pos.ResultPnLPct)
		}
		ev := ports.PositionEvent{
			Position: pos,
			Score:    pos.Score,
			Reason:   pos.Reason,
			Payout:   payout,
			PnLUSD:   payout - pos.BetAmount,
		}
		if err := e.notifier.PositionSettled(ctx, ev); err != nil {
			slog.Warn("settle notification failed", "position", pos.ID, "err", err)
			continue
		}
		if err := e.storage.MarkNotified(ctx, pos.ID); err != nil {
			slog.Error("mark notified failed", "position", pos.ID, "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// HeartbeatCycle emite la señal de vida periódica con los usuarios activos.
func (e *Engine) HeartbeatCycle(ctx context.Context) error {
	users, err := e.storage.ActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("engine.HeartbeatCycle: %w", err)
	}
	if err := e.notifier.Heartbeat(ctx, users); err != nil {
		slog.Warn("heartbeat notification failed", "err", err)
	}
	return nil
}
