package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/whaletracker/engine/internal/domain"
)

// Markets implementa ports.MarketSource sobre el CLOB, con Gamma como
// segunda opinión para distinguir mercados anulados de mercados aún sin
// resolver.
type Markets struct {
	client *Client
}

func NewMarkets(client *Client) *Markets {
	return &Markets{client: client}
}

// Status devuelve el estado de resolución de un mercado. Un condition id
// desconocido devuelve domain.ErrMarketNotFound.
func (m *Markets) Status(ctx context.Context, conditionID string) (domain.MarketStatus, error) {
	var raw clobMarket
	u := fmt.Sprintf("%s/markets/%s", m.client.clobBase, url.PathEscape(conditionID))
	if err := m.client.get(ctx, m.client.clobLimiter, u, &raw); err != nil {
		if errors.Is(err, errNotFound) {
			return domain.MarketStatus{}, domain.ErrMarketNotFound
		}
		return domain.MarketStatus{}, fmt.Errorf("polymarket.Status: %s: %w", conditionID, err)
	}
	// El CLOB responde 200 con struct vacío para ids con formato válido
	// pero inexistentes.
	if raw.ConditionID == "" && len(raw.Tokens) == 0 {
		return domain.MarketStatus{}, domain.ErrMarketNotFound
	}

	status := domain.MarketStatus{
		ConditionID: conditionID,
		Closed:      raw.Closed,
		Tokens:      mapTokens(raw.Tokens),
	}
	if raw.EndDateISO != "" {
		if t, err := time.Parse(time.RFC3339, raw.EndDateISO); err == nil {
			status.EndDate = t
		}
	}

	// Cerrado sin winner: o anulado o todavía en disputa. Gamma sabe cuál.
	if status.Closed && status.WinnerOutcome() == "" {
		status.Void = m.isVoided(ctx, conditionID)
	}
	return status, nil
}

// Quote devuelve el precio actual del outcome en el mercado dado.
// Sin token para ese outcome o sin precio devuelve domain.ErrNoQuote.
func (m *Markets) Quote(ctx context.Context, conditionID, outcome string) (float64, error) {
	status, err := m.Status(ctx, conditionID)
	if err != nil {
		return 0, err
	}

	idx := status.TokenIndex(outcome)
	if idx < 0 {
		return 0, domain.ErrNoQuote
	}
	token := status.Tokens[idx]

	var raw clobPrice
	u := fmt.Sprintf("%s/price?token_id=%s&side=buy", m.client.clobBase, url.QueryEscape(token.TokenID))
	if err := m.client.get(ctx, m.client.clobLimiter, u, &raw); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, domain.ErrNoQuote
		}
		return 0, fmt.Errorf("polymarket.Quote: %s/%s: %w", conditionID, outcome, err)
	}

	price, _ := raw.Price.Float64()
	if price <= 0 {
		// El midpoint del token del mercado es mejor que nada
		if token.Price > 0 {
			return token.Price, nil
		}
		return 0, domain.ErrNoQuote
	}
	return price, nil
}

// isVoided consulta Gamma por el estado de resolución UMA. Ante cualquier
// error devuelve false: preferimos reintentar el settle en el próximo ciclo
// antes que anular una posición por un fallo transitorio.
func (m *Markets) isVoided(ctx context.Context, conditionID string) bool {
	var resp []gammaMarket
	u := fmt.Sprintf("%s/markets?condition_ids=%s", m.client.gammaBase, url.QueryEscape(conditionID))
	if err := m.client.get(ctx, m.client.gammaLimiter, u, &resp); err != nil {
		return false
	}
	if len(resp) == 0 {
		return false
	}
	switch strings.ToLower(resp[0].UMAResolutionStatus) {
	case "cancelled", "canceled", "refunded", "invalid":
		return true
	}
	return false
}

func mapTokens(raw []clobToken) []domain.MarketToken {
	tokens := make([]domain.MarketToken, len(raw))
	for i, t := range raw {
		tokens[i] = domain.MarketToken{
			TokenID: t.TokenID,
			Outcome: t.Outcome,
			Winner:  t.Winner,
			Price:   t.Price,
		}
	}
	return tokens
}
