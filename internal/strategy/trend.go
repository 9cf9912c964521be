package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/whaletracker/engine/internal/domain"
)

// TrendConfig parametriza la estrategia de momentum.
type TrendConfig struct {
	Enabled     bool    `yaml:"enabled"`
	MinScore    int     `yaml:"min_score"`
	BandLow     float64 `yaml:"band_low"`  // zona de momentum
	BandHigh    float64 `yaml:"band_high"`
	MinWinrate  float64 `yaml:"min_winrate"`
	MinValueUSD float64 `yaml:"min_value_usd"`
	MinTrades   int     `yaml:"min_trades"`
}

func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		Enabled:     true,
		MinScore:    65,
		BandLow:     0.30,
		BandHigh:    0.75,
		MinWinrate:  45,
		MinValueUSD: 500,
		MinTrades:   10,
	}
}

// TrendSurfer sigue whales competentes apostando con convicción dentro de la
// banda de momentum: ni longshot ni tendencia agotada.
type TrendSurfer struct {
	cfg TrendConfig
}

func NewTrendSurfer(cfg TrendConfig) *TrendSurfer {
	return &TrendSurfer{cfg: cfg}
}

func (s *TrendSurfer) ID() string   { return "strategy_trend" }
func (s *TrendSurfer) Name() string { return "Trend Surfer" }

func (s *TrendSurfer) Evaluate(_ context.Context, trade domain.Trade, stats domain.WalletStats) Decision {
	price := trade.Price
	value := trade.ValueUSD()
	b := stats.Global

	if price < s.cfg.BandLow || price > s.cfg.BandHigh {
		return Decision{Reason: "price outside momentum zone"}
	}
	if b.Winrate < s.cfg.MinWinrate {
		return Decision{Reason: "whale winrate too low"}
	}
	if value < s.cfg.MinValueUSD {
		return Decision{Reason: "trade size too small for trend"}
	}
	if b.TotalTrades < s.cfg.MinTrades {
		return Decision{Reason: "whale not active enough"}
	}

	score := 50.0
	score += (b.Winrate - 50) * 2 // +2 pts por cada 1% sobre 50%

	if price >= 0.4 && price <= 0.6 {
		score += 10 // sweet spot
	}
	if value > 2000 {
		score += 10 // alta convicción
	}

	final := int(math.Min(100, math.Max(0, math.Round(score))))
	return Decision{
		ShouldBet: final >= s.cfg.MinScore,
		Score:     final,
		Reason:    fmt.Sprintf("momentum score: %d", final),
	}
}
