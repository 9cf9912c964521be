package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/whaletracker/engine/internal/domain"
)

// SniperConfig parametriza la estrategia clásica de seguir whales rentables.
type SniperConfig struct {
	Enabled  bool `yaml:"enabled"`
	MinScore int  `yaml:"min_score"`
}

func DefaultSniperConfig() SniperConfig {
	return SniperConfig{Enabled: true, MinScore: 75}
}

// Sniper sigue whales con winrate alto y PnL consistente. El Wilson lower
// bound castiga las muestras pequeñas por sí solo.
type Sniper struct {
	cfg SniperConfig
}

func NewSniper(cfg SniperConfig) *Sniper {
	return &Sniper{cfg: cfg}
}

func (s *Sniper) ID() string   { return "strategy_sniper" }
func (s *Sniper) Name() string { return "Sniper Whale" }

func (s *Sniper) Evaluate(_ context.Context, _ domain.Trade, stats domain.WalletStats) Decision {
	b := stats.Global

	score := 0.0

	// Confianza en el winrate (max 50): lower bound, no winrate crudo
	score += math.Min(50, b.WinrateLowerBound)

	// Consistencia del PnL (max 30)
	if b.MedianPnL > 0 {
		score += 30
	} else if b.MedianPnL == 0 && b.PnL > 0 {
		score += 15
	}

	// Experiencia (max 20)
	switch {
	case b.TotalTrades > 50:
		score += 20
	case b.TotalTrades > 20:
		score += 10
	case b.TotalTrades > 5:
		score += 5
	}

	// Penalizaciones
	if b.PnL < 0 {
		score -= 50
	}
	if b.Winrate < 40 {
		score -= 30
	}

	final := int(math.Max(0, math.Round(score)))
	if final >= s.cfg.MinScore {
		return Decision{
			ShouldBet: true,
			Score:     final,
			Reason:    fmt.Sprintf("Sniper: score %d (WR %.0f%%, PnL $%.0f)", final, b.Winrate, b.PnL),
		}
	}
	return Decision{Score: final, Reason: fmt.Sprintf("low score: %d", final)}
}
