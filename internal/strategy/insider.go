package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/whaletracker/engine/internal/domain"
)

// InsiderConfig parametriza el detector de anomalías de "smart money".
type InsiderConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MinScore          int     `yaml:"min_score"`
	HighVolumeUSD     float64 `yaml:"high_volume_usd"`
	LowPriceThreshold float64 `yaml:"low_price_threshold"`     // <35% (~3x retorno)
	ExtremeThreshold  float64 `yaml:"extreme_price_threshold"` // <10% (~10x retorno)
}

func DefaultInsiderConfig() InsiderConfig {
	return InsiderConfig{
		Enabled:           true,
		MinScore:          60,
		HighVolumeUSD:     1000,
		LowPriceThreshold: 0.35,
		ExtremeThreshold:  0.10,
	}
}

// Insider detecta apuestas grandes y convencidas sobre longshots: wallets
// frescas apostando fuerte a precios extremos. El oracle de balance separa
// smart money (apuesta pequeña vs balance) de degens all-in; es opcional.
type Insider struct {
	cfg    InsiderConfig
	oracle BalanceOracle
	now    func() time.Time
}

func NewInsider(cfg InsiderConfig, oracle BalanceOracle) *Insider {
	return &Insider{cfg: cfg, oracle: oracle, now: time.Now}
}

// WithClock inyecta un reloj para tests de edad de wallet.
func (s *Insider) WithClock(now func() time.Time) *Insider {
	s.now = now
	return s
}

func (s *Insider) ID() string   { return "strategy_insider" }
func (s *Insider) Name() string { return "Insider Hunter" }

func (s *Insider) Evaluate(ctx context.Context, trade domain.Trade, stats domain.WalletStats) Decision {
	price := trade.Price
	sizeUSD := trade.ValueUSD()
	if price <= 0 || sizeUSD <= 0 {
		return Decision{}
	}

	score := 0.0
	var reasons []string

	// Núcleo: apuesta grande sobre longshot
	if sizeUSD >= s.cfg.HighVolumeUSD {
		switch {
		case price <= s.cfg.ExtremeThreshold:
			score += 70
			reasons = append(reasons, fmt.Sprintf("high conviction longshot ($%.0f @ %.2f)", sizeUSD, price))
		case price <= s.cfg.LowPriceThreshold:
			score += 40
			reasons = append(reasons, fmt.Sprintf("value bet ($%.0f @ %.2f)", sizeUSD, price))
		}
	}

	// Edad de la wallet: una cuenta recién creada apostando fuerte huele a
	// información, no a suerte
	if first := stats.Global.FirstTradeAt; !first.IsZero() {
		ageDays := s.now().Sub(first).Hours() / 24
		switch {
		case ageDays < 1.5:
			score += 50
			reasons = append(reasons, fmt.Sprintf("fresh account (%.1fd)", ageDays))
		case ageDays < 7:
			score += 20
			reasons = append(reasons, fmt.Sprintf("new account (%.1fd)", ageDays))
		case ageDays > 180:
			score += 10
		}
	}

	// Ratio apuesta/balance, solo con señal base fuerte para no gastar
	// llamadas al oracle en ruido
	if score > 40 && s.oracle != nil {
		if balance, err := s.oracle.BalanceUSD(ctx, trade.Wallet); err == nil && balance > 0 {
			ratio := sizeUSD / balance
			if ratio > 0.8 {
				score -= 20
				reasons = append(reasons, "all-in degen (>80% balance)")
			} else if ratio < 0.1 {
				score += 20
				reasons = append(reasons, "smart money size (<10% balance)")
			}
		}
	}

	final := int(math.Max(0, math.Round(score)))
	if final >= s.cfg.MinScore {
		return Decision{
			ShouldBet: true,
			Score:     final,
			Reason:    "Insider: " + strings.Join(reasons, ", "),
		}
	}
	reason := strings.Join(reasons, ", ")
	if reason == "" {
		reason = "no signal"
	}
	return Decision{Score: final, Reason: fmt.Sprintf("score %d (%s)", final, reason)}
}
