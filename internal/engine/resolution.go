package engine

// resolution.go: settlement de posiciones y señales contra el estado real
// de los mercados. Corre más lento que el ingest: la resolución de un
// mercado tarda horas, no segundos.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/whaletracker/engine/internal/domain"
)

// ResolveResult resume un ciclo de resolución.
type ResolveResult struct {
	Checked int // mercados consultados
	Settled int // posiciones cerradas con resultado
	Voided  int // posiciones anuladas con refund
	Errored int // posiciones cerradas por mercado desaparecido
	Pending int // posiciones cuyo mercado sigue sin resolver
}

// ResolveCycle settlea todas las posiciones abiertas cuyos mercados ya
// resolvieron, y actualiza las señales pendientes. Un lookup fallido deja la
// posición para el próximo ciclo.
func (e *Engine) ResolveCycle(ctx context.Context) (ResolveResult, error) {
	var res ResolveResult

	positions, err := e.storage.OpenPositions(ctx)
	if err != nil {
		return res, fmt.Errorf("engine.ResolveCycle: load positions: %w", err)
	}
	shadow, err := e.storage.OpenShadowPositions(ctx, e.cfg.ShadowBatch)
	if err != nil {
		return res, fmt.Errorf("engine.ResolveCycle: load shadow positions: %w", err)
	}
	positions = append(positions, shadow...)

	byCondition := make(map[string][]domain.Position)
	for _, pos := range positions {
		byCondition[pos.ConditionID] = append(byCondition[pos.ConditionID], pos)
	}

	// Cache del ciclo: cada mercado se consulta una sola vez, también para
	// las señales pendientes de más abajo.
	statuses := make(map[string]domain.MarketStatus)
	missing := make(map[string]bool)

	for conditionID, group := range byCondition {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++

		status, err := e.markets.Status(ctx, conditionID)
		if err != nil {
			if errors.Is(err, domain.ErrMarketNotFound) {
				missing[conditionID] = true
				for _, pos := range group {
					if err := e.storage.MarkPositionError(ctx, pos.ID); err == nil {
						res.Errored++
					}
				}
			} else {
				slog.Warn("resolution lookup failed", "condition_id", conditionID, "err", err)
			}
			sleepCtx(ctx, e.cfg.ResolvePause)
			continue
		}
		statuses[conditionID] = status

		switch {
		case status.Void:
			for _, pos := range group {
				if err := e.storage.SettleVoid(ctx, pos.ID); err != nil {
					slog.Error("settle void failed", "position", pos.ID, "err", err)
					continue
				}
				res.Voided++
			}
		case status.Resolved():
			winner := status.WinnerOutcome()
			for _, pos := range group {
				if e.settlePosition(ctx, pos, winner) {
					res.Settled++
				}
			}
		default:
			res.Pending += len(group)
		}

		sleepCtx(ctx, e.cfg.ResolvePause)
	}

	e.resolveSignals(ctx, statuses, missing)

	slog.Info("resolution cycle complete",
		"checked", res.Checked,
		"settled", res.Settled,
		"voided", res.Voided,
		"errored", res.Errored,
		"pending", res.Pending,
	)
	return res, nil
}

// settlePosition cierra una posición contra el outcome ganador.
func (e *Engine) settlePosition(ctx context.Context, pos domain.Position, winner string) bool {
	exit := domain.SettlementExitPrice(pos.Outcome, winner)
	roiPct := domain.SideROI(pos.Side, exit, pos.EntryPrice, pos.SizeUSD, e.cfg.Slippage())
	payout := domain.PayoutFromROI(pos.BetAmount, roiPct)

	if err := e.storage.SettlePosition(ctx, pos.ID, exit, winner, roiPct, payout); err != nil {
		if !errors.Is(err, domain.ErrPositionNotOpen) {
			slog.Error("settle failed", "position", pos.ID, "err", err)
		}
		return false
	}

	slog.Info("position settled",
		"position", pos.ID,
		"strategy", pos.StrategyID,
		"market", pos.MarketSlug,
		"winner", winner,
		"roi_pct", roiPct,
		"payout", payout,
	)
	return true
}

// resolveSignals actualiza las señales OPEN usando los estados ya
// consultados este ciclo. Mercados que no salieron en posiciones se
// consultan aquí una vez.
func (e *Engine) resolveSignals(ctx context.Context, statuses map[string]domain.MarketStatus, missing map[string]bool) {
	signals, err := e.storage.PendingSignals(ctx)
	if err != nil {
		slog.Error("load pending signals failed", "err", err)
		return
	}

	for _, sig := range signals {
		if ctx.Err() != nil {
			return
		}
		if missing[sig.ConditionID] {
			e.updateSignal(ctx, sig, domain.StatusError, nil, "")
			continue
		}

		status, ok := statuses[sig.ConditionID]
		if !ok {
			s, err := e.markets.Status(ctx, sig.ConditionID)
			if err != nil {
				if errors.Is(err, domain.ErrMarketNotFound) {
					missing[sig.ConditionID] = true
					e.updateSignal(ctx, sig, domain.StatusError, nil, "")
				}
				sleepCtx(ctx, e.cfg.ResolvePause)
				continue
			}
			status = s
			statuses[sig.ConditionID] = s
			sleepCtx(ctx, e.cfg.ResolvePause)
		}

		switch {
		case status.Void:
			zero := 0.0
			e.updateSignal(ctx, sig, domain.StatusClosedVoid, &zero, "")
		case status.Resolved():
			winner := status.WinnerOutcome()
			exit := domain.SettlementExitPrice(sig.Outcome, winner)
			roi := domain.SideROI(sig.Side, exit, sig.EntryPrice, sig.SizeUSD, e.cfg.Slippage())
			e.updateSignal(ctx, sig, domain.StatusClosed, &roi, winner)
		}
	}
}

func (e *Engine) updateSignal(ctx context.Context, sig domain.Signal, status string, pnl *float64, winner string) {
	if err := e.storage.UpdateSignalResult(ctx, sig.ID, status, pnl, winner); err != nil {
		slog.Error("update signal failed", "signal", sig.ID, "err", err)
	}
}
