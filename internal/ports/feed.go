package ports

import (
	"context"

	"github.com/whaletracker/engine/internal/domain"
)

// TradeFeed obtiene los trades recientes del tape público del venue.
// El feed es untrusted: los adapters deben sanear los campos numéricos.
type TradeFeed interface {
	RecentTrades(ctx context.Context, limit int) ([]domain.Trade, error)
}
