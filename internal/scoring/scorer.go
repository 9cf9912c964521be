// Package scoring combina stats de wallet, atributos del trade y tuning por
// categoría en un score de confianza 0–100. Suma ponderada, penalizada y
// ajustada multiplicativamente: deliberadamente interpretable y tuneable
// término a término, no un modelo probabilístico.
package scoring

import (
	"log/slog"
	"math"
	"strings"

	"github.com/whaletracker/engine/internal/domain"
)

// Scorer evalúa señales con un Config inmutable.
type Scorer struct {
	cfg       Config
	blacklist map[string]struct{}
	allowlist map[string]struct{}
}

// NewScorer construye un Scorer precomputando los sets de wallets.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{
		cfg:       cfg,
		blacklist: toSet(cfg.Blacklist),
		allowlist: toSet(cfg.Allowlist),
	}
}

// Evaluate devuelve el score [0,100] de una señal. 0 significa descarte.
func (s *Scorer) Evaluate(trade domain.Trade, wstats domain.WalletStats, cat domain.Category) int {
	wallet := strings.ToLower(trade.Wallet)
	price := trade.Price

	// 1. Hard bans: corte inmediato a 0
	if _, banned := s.blacklist[wallet]; banned {
		return 0
	}
	if s.cfg.BanSports && cat == domain.CategorySports {
		return 0
	}
	if s.cfg.ToxicBandHigh > 0 && price >= s.cfg.ToxicBandLow && price <= s.cfg.ToxicBandHigh {
		return 0
	}

	// 2. Selección de contexto: bucket de la categoría si tiene muestra,
	// global si no
	bucket := wstats.Bucket(cat)

	// Anti-loser gate: suficiente historial y winrate de desastre
	if s.cfg.AntiLoserMinTrades > 0 &&
		bucket.TotalTrades >= s.cfg.AntiLoserMinTrades &&
		bucket.Winrate < s.cfg.AntiLoserMaxWinrate {
		return 0
	}

	t := s.cfg.tuningFor(cat)

	// 3. Componente winrate: rampa lineal del Wilson lower bound entre
	// LBBase (0 pts) y LBTarget (peso completo)
	var wrScore float64
	if lb := bucket.WinrateLowerBound; lb > t.LBBase && t.LBTarget > t.LBBase {
		wrScore = math.Min(s.cfg.Weights.Winrate, (lb-t.LBBase)*(s.cfg.Weights.Winrate/(t.LBTarget-t.LBBase)))
	}

	// 4. Componente consistencia: rampa del PnL mediano, 0 si mediana <= 0
	var medScore float64
	if med := bucket.MedianPnL; med > 0 && t.MedianTarget > 0 {
		medScore = math.Min(s.cfg.Weights.Median, med*(s.cfg.Weights.Median/t.MedianTarget))
	}

	// 5. Componente experiencia: rampa del número de trades
	var volScore float64
	if t.VolumeTargetTrades > 0 {
		volScore = math.Min(s.cfg.Weights.Volume,
			float64(bucket.TotalTrades)*(s.cfg.Weights.Volume/float64(t.VolumeTargetTrades)))
	}

	score := wrScore + medScore + volScore

	// 6. Penalización por precio: riesgo/recompensa pobre fuera de la banda
	if price > s.cfg.PriceHigh || price < s.cfg.PriceLow {
		score -= s.cfg.PricePenalty
	}

	// 7. Tilt breaker: no seguir a una wallet en plena mala racha
	if bucket.Streak <= s.cfg.TiltStreak {
		slog.Warn("scoring: tilt breaker triggered",
			"wallet", trade.Wallet, "streak", bucket.Streak, "penalty", s.cfg.TiltPenalty)
		score -= s.cfg.TiltPenalty
	}

	// 8. Multiplicador de categoría
	score *= s.cfg.multiplierFor(cat)

	// 9. Conviction bonus: la whale pone dinero de verdad
	value := trade.ValueUSD()
	for _, tier := range s.cfg.ConvictionTiers {
		if value > tier.MinValueUSD {
			score += tier.Bonus
			break
		}
	}

	// 10. Allow-list bonus
	if _, proven := s.allowlist[wallet]; proven {
		score += s.cfg.AllowlistBonus
	}

	// 11. Clamp final
	final := int(math.Round(score))
	if final < 0 {
		return 0
	}
	if final > 100 {
		return 100
	}
	return final
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}
