package strategy

import (
	"context"
	"fmt"

	"github.com/whaletracker/engine/internal/domain"
)

// InverseConfig parametriza el detector de perdedores consistentes.
type InverseConfig struct {
	Enabled    bool    `yaml:"enabled"`
	MaxPnL     float64 `yaml:"max_pnl"`     // debe haber perdido al menos esto
	MaxWinrate float64 `yaml:"max_winrate"` // winrate 0–100
	MinTrades  int     `yaml:"min_trades"`
}

func DefaultInverseConfig() InverseConfig {
	return InverseConfig{Enabled: true, MaxPnL: -500, MaxWinrate: 35, MinTrades: 10}
}

// Inverse detecta wallets con evidencia sólida de ser malos traders y apuesta
// al outcome CONTRARIO. Es el único punto del sistema que apuesta en contra
// de la señal observada.
type Inverse struct {
	cfg InverseConfig
}

func NewInverse(cfg InverseConfig) *Inverse {
	return &Inverse{cfg: cfg}
}

func (s *Inverse) ID() string   { return "strategy_inverse" }
func (s *Inverse) Name() string { return "Inverse Loser" }

func (s *Inverse) Evaluate(_ context.Context, trade domain.Trade, stats domain.WalletStats) Decision {
	b := stats.Global

	isLoser := b.PnL <= s.cfg.MaxPnL
	isBadTrader := b.Winrate <= s.cfg.MaxWinrate
	hasHistory := b.TotalTrades >= s.cfg.MinTrades

	if !isLoser || !isBadTrader || !hasHistory {
		return Decision{Reason: "not a loser"}
	}

	score := 80
	if b.Winrate < 20 {
		score = 95
	}

	return Decision{
		ShouldBet:       true,
		Score:           score,
		Reason:          fmt.Sprintf("Inverse: loser found (PnL $%.0f, WR %.0f%%)", b.PnL, b.Winrate),
		OverrideOutcome: domain.InverseOutcome(trade.Outcome),
	}
}
