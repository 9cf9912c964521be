package ports

import (
	"context"

	"github.com/whaletracker/engine/internal/domain"
)

// Storage es la frontera de persistencia: señales, posiciones y portfolios.
//
// Las operaciones Open/Settle/Reset son atómicas: el cambio de estado de la
// posición y el movimiento de balance correspondiente ocurren en una sola
// transacción. Un débito sin posición registrada (o al revés) es un bug.
type Storage interface {
	// Ping verifica que la persistencia responde. Usado por el self-test.
	Ping(ctx context.Context) error
	Close() error

	// --- señales ---

	// SignalExists reporta si ya hay una señal con ese transaction hash.
	SignalExists(ctx context.Context, txHash string) (bool, error)

	// SaveSignal inserta una señal nueva y devuelve su id. Un hash duplicado
	// (incluida una race entre pollers) devuelve domain.ErrDuplicateSignal.
	SaveSignal(ctx context.Context, sig domain.Signal) (int64, error)

	// Signal devuelve una señal por id. Usado para recuperar el wallet
	// original de una posición en el flujo de emergency exit.
	Signal(ctx context.Context, id int64) (domain.Signal, error)

	// PendingSignals devuelve las señales aún OPEN, las más antiguas primero.
	PendingSignals(ctx context.Context) ([]domain.Signal, error)

	// UpdateSignalResult muta status y campos de resultado de una señal.
	UpdateSignalResult(ctx context.Context, id int64, status string, pnlPct *float64, resolvedOutcome string) error

	// --- posiciones ---

	// HasOpenPosition reporta si (usuario, estrategia) ya tiene una posición
	// OPEN sobre ese mercado.
	HasOpenPosition(ctx context.Context, userID int64, strategyID, conditionID string) (bool, error)

	// OpenPositionAtomic abre una posición debitando el balance y bloqueando
	// el stake en una sola transacción. Balance insuficiente devuelve
	// domain.ErrInsufficientBalance. Los shadow bets (StrategyShadow) no
	// tocan ningún portfolio.
	OpenPositionAtomic(ctx context.Context, pos domain.Position) error

	// OpenPositions devuelve todas las posiciones OPEN reales (sin shadow).
	OpenPositions(ctx context.Context) ([]domain.Position, error)

	// OpenShadowPositions devuelve los shadow bets pendientes de resolver.
	OpenShadowPositions(ctx context.Context, limit int) ([]domain.Position, error)

	// AnyPositionOnCondition reporta si algún usuario tiene posición OPEN
	// sobre el mercado. Barato: gatekeeper del flujo de emergency exit.
	AnyPositionOnCondition(ctx context.Context, conditionID string) (bool, error)

	// OpenPositionsOnCondition devuelve las posiciones OPEN sobre un mercado.
	OpenPositionsOnCondition(ctx context.Context, conditionID string) ([]domain.Position, error)

	// SettlePosition cierra una posición resuelta y acredita el payout al
	// portfolio en una transacción. Sobre una posición no-OPEN devuelve
	// domain.ErrPositionNotOpen sin tocar nada (idempotencia).
	SettlePosition(ctx context.Context, id string, exitPrice float64, resolvedOutcome string, roiPct, payout float64) error

	// SettleVoid devuelve el stake completo: balance += betAmount,
	// locked -= betAmount, PnL 0, estado CLOSED_VOID.
	SettleVoid(ctx context.Context, id string) error

	// CloseEarly cierra una posición OPEN al precio observado (emergency
	// exit) y acredita los proceeds. Devuelve la posición cerrada y los
	// proceeds para notificación.
	CloseEarly(ctx context.Context, id string, exitPrice float64) (domain.Position, float64, error)

	// MarkPositionError cierra una posición cuyo mercado desapareció de la
	// API (404). Devuelve el stake al balance: mejor un refund que fondos
	// bloqueados para siempre.
	MarkPositionError(ctx context.Context, id string) error

	// --- portfolios ---

	// Portfolio devuelve el portfolio de (usuario, estrategia), creándolo
	// con el balance inicial si no existe.
	Portfolio(ctx context.Context, userID int64, strategyID string, startBalance float64) (domain.Portfolio, error)

	// UpdatePortfolio aplica deltas de balance/locked en un solo
	// read-modify-write.
	UpdatePortfolio(ctx context.Context, userID int64, strategyID string, balanceDelta, lockedDelta float64) error

	// ResetPortfolio restaura el balance inicial y fuerza las posiciones
	// OPEN de (usuario, estrategia) a CLOSED_RESET sin payout.
	ResetPortfolio(ctx context.Context, userID int64, strategyID string, startBalance float64) error

	// SetStrategyActive pausa o reactiva una estrategia para un usuario.
	SetStrategyActive(ctx context.Context, userID int64, strategyID string, active bool) error

	// --- usuarios y notificaciones ---

	// ActiveUsers devuelve los ids de usuario con seguimiento activo.
	ActiveUsers(ctx context.Context) ([]int64, error)

	// UnnotifiedSettled devuelve posiciones cerradas aún no notificadas.
	UnnotifiedSettled(ctx context.Context) ([]domain.Position, error)

	// MarkNotified marca una posición como notificada.
	MarkNotified(ctx context.Context, id string) error

	// --- reporting ---

	StrategyReport(ctx context.Context, days int) ([]domain.StrategyPerformance, error)
	OddsBucketReport(ctx context.Context, days int) ([]domain.OddsBucketPerformance, error)
	CategoryReport(ctx context.Context, days int) ([]domain.CategoryPerformance, error)
}
