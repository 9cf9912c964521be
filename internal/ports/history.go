package ports

import (
	"context"

	"github.com/whaletracker/engine/internal/domain"
)

// HistorySource obtiene el historial de posiciones cerradas de una wallet,
// ya etiquetadas con la categoría de su mercado.
type HistorySource interface {
	ClosedPositions(ctx context.Context, wallet string) ([]domain.ClosedPosition, error)
}

// BalanceOracle consulta el balance USDC actual de una wallet. Opcional:
// las estrategias que lo usan toleran un oracle nil o que falla.
type BalanceOracle interface {
	BalanceUSD(ctx context.Context, wallet string) (float64, error)
}
