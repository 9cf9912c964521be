package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/whaletracker/engine/internal/domain"
)

const historyPageSize = 500

// History implementa ports.HistorySource: el track record de un wallet,
// leído de sus posiciones cerradas en la Data API.
type History struct {
	client *Client
}

func NewHistory(client *Client) *History {
	return &History{client: client}
}

// ClosedPositions devuelve las posiciones ya realizadas del wallet, con la
// categoría inferida del título del mercado. Las posiciones aún abiertas
// (size > 0 sin redeem) no cuentan: solo se evalúa PnL realizado.
func (h *History) ClosedPositions(ctx context.Context, wallet string) ([]domain.ClosedPosition, error) {
	u := fmt.Sprintf("%s/positions?user=%s&limit=%d&sortBy=CURRENT",
		h.client.dataBase, url.QueryEscape(wallet), historyPageSize)

	var resp []rawPosition
	if err := h.client.get(ctx, h.client.dataLimiter, u, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.ClosedPositions: %s: %w", wallet, err)
	}

	var closed []domain.ClosedPosition
	for _, rp := range resp {
		size, _ := rp.Size.Float64()
		if size > 0 && !rp.Redeemable {
			continue
		}

		// El upstream a veces entrega micro-USDC crudos
		profit, _ := rp.RealizedPnL.Float64()
		profit = domain.NormalizeUSDC(profit)
		bought, _ := rp.TotalBought.Float64()
		bought = domain.NormalizeUSDC(bought)
		if bought <= 0 {
			continue
		}

		var closedAt time.Time
		if rp.EndDate != "" {
			if t, err := time.Parse(time.RFC3339, rp.EndDate); err == nil {
				closedAt = t
			}
		}

		closed = append(closed, domain.ClosedPosition{
			Profit:   profit,
			Bought:   bought,
			Category: domain.Categorize(rp.Title, rp.Slug),
			ClosedAt: closedAt,
		})
	}
	return closed, nil
}
