package ports

import (
	"context"

	"github.com/whaletracker/engine/internal/domain"
)

// MarketSource consulta estado de resolución y precios actuales de mercados.
type MarketSource interface {
	// Status devuelve el estado de resolución de un mercado.
	// Un 404 upstream se reporta como domain.ErrMarketNotFound.
	Status(ctx context.Context, conditionID string) (domain.MarketStatus, error)

	// Quote devuelve el precio actual de ejecución para un outcome, en [0,1].
	// Si el venue no tiene precio devuelve domain.ErrNoQuote.
	Quote(ctx context.Context, conditionID, outcome string) (float64, error)
}
