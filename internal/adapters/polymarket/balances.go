package polymarket

import (
	"context"
	"fmt"
	"net/url"

	"github.com/whaletracker/engine/internal/domain"
)

// Balances implementa ports.BalanceOracle sobre GET /value de la Data API:
// el valor total en USD de las posiciones de un wallet.
type Balances struct {
	client *Client
}

func NewBalances(client *Client) *Balances {
	return &Balances{client: client}
}

// BalanceUSD devuelve el valor del portfolio del wallet en USD.
func (b *Balances) BalanceUSD(ctx context.Context, wallet string) (float64, error) {
	u := fmt.Sprintf("%s/value?user=%s", b.client.dataBase, url.QueryEscape(wallet))

	var resp []rawValue
	if err := b.client.get(ctx, b.client.dataLimiter, u, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.BalanceUSD: %s: %w", wallet, err)
	}
	if len(resp) == 0 {
		return 0, nil
	}
	value, _ := resp[0].Value.Float64()
	return domain.NormalizeUSDC(value), nil
}
