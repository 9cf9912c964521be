package engine

// equity.go: valoración mark-to-market de los portfolios. Las posiciones
// OPEN se valoran al quote actual del venue; sin quote, al costo.

import (
	"context"
	"fmt"

	"github.com/whaletracker/engine/internal/domain"
)

// EquityReport valora cada portfolio activo a precios actuales. Los quotes
// se cachean por (mercado, outcome) dentro del reporte.
func (e *Engine) EquityReport(ctx context.Context) ([]domain.PortfolioEquity, error) {
	users, err := e.storage.ActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.EquityReport: users: %w", err)
	}
	open, err := e.storage.OpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.EquityReport: positions: %w", err)
	}

	byOwner := make(map[string][]domain.Position)
	for _, pos := range open {
		key := fmt.Sprintf("%d/%s", pos.UserID, pos.StrategyID)
		byOwner[key] = append(byOwner[key], pos)
	}

	quotes := make(map[string]float64)
	var out []domain.PortfolioEquity
	for _, userID := range users {
		for _, strat := range e.strategies {
			p, err := e.storage.Portfolio(ctx, userID, strat.ID(), e.cfg.StartBalance)
			if err != nil {
				return nil, fmt.Errorf("engine.EquityReport: portfolio %d/%s: %w", userID, strat.ID(), err)
			}

			unrealized := 0.0
			key := fmt.Sprintf("%d/%s", userID, strat.ID())
			for _, pos := range byOwner[key] {
				unrealized += e.positionValue(ctx, pos, quotes)
			}

			out = append(out, domain.PortfolioEquity{
				UserID:     userID,
				StrategyID: strat.ID(),
				Balance:    p.Balance,
				Locked:     p.Locked,
				Unrealized: unrealized,
				Equity:     p.Balance + unrealized,
			})
		}
	}
	return out, nil
}

// positionValue valora una posición OPEN al quote actual, o al costo si el
// venue no tiene precio.
func (e *Engine) positionValue(ctx context.Context, pos domain.Position, quotes map[string]float64) float64 {
	key := pos.ConditionID + "/" + domain.NormalizeOutcome(pos.Outcome)
	quote, ok := quotes[key]
	if !ok {
		var err error
		quote, err = e.markets.Quote(ctx, pos.ConditionID, pos.Outcome)
		if err != nil {
			quote = -1 // sin precio: valorar al costo
		}
		quotes[key] = quote
	}
	if quote <= 0 {
		return pos.BetAmount
	}
	return domain.Shares(pos.BetAmount, pos.EntryPrice) * quote
}
