// Package sizing convierte un score en un stake acotado por bankroll,
// mínimos y caps de liquidez. Funciones puras: sin I/O, testeables contra
// tablas literales (balance, score) → importe.
package sizing

import (
	"math"

	"github.com/whaletracker/engine/internal/domain"
)

// Modos de sizing.
const (
	ModeTiered = "tiered"
	ModeKelly  = "kelly"
)

// TieredConfig es el modelo básico: porcentaje de balance por tramo de score.
type TieredConfig struct {
	HighScore       int               `yaml:"high_score"` // score de alta convicción
	HighPct         float64           `yaml:"high_pct"`
	BasePct         float64           `yaml:"base_pct"`
	BoostCategories []domain.Category `yaml:"boost_categories"` // categorías históricamente favorables
	BoostFactor     float64           `yaml:"boost_factor"`
}

// KellyConfig es el modelo avanzado: Kelly fraccional con boost temporal.
type KellyConfig struct {
	PMin             float64 `yaml:"p_min"` // probabilidad estimada en score mínimo
	PMax             float64 `yaml:"p_max"` // probabilidad estimada en score 100
	Fraction         float64 `yaml:"fraction"` // factor de seguridad fraccional
	MaxFraction      float64 `yaml:"max_fraction"` // cap de fracción del bankroll
	FlashBoostScore  int     `yaml:"flash_boost_score"` // señal fuerte que resuelve pronto
	FlashBoostHours  float64 `yaml:"flash_boost_hours"`
	FlashBoostFactor float64 `yaml:"flash_boost_factor"`
	MaxBetUSD        float64 `yaml:"max_bet_usd"` // cap absoluto de liquidez
}

// Config agrupa el tuning del sizer.
type Config struct {
	Mode          string       `yaml:"mode"`
	MinScoreToBet int          `yaml:"min_score_to_bet"`
	MinBetUSD     float64      `yaml:"min_bet_usd"`
	Tiered        TieredConfig `yaml:"tiered"`
	Kelly         KellyConfig  `yaml:"kelly"`
}

// DefaultConfig devuelve el sizing observado: tiered 10%/5% con umbral 75.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeTiered,
		MinScoreToBet: 75,
		MinBetUSD:     1,
		Tiered: TieredConfig{
			HighScore:   90,
			HighPct:     0.10,
			BasePct:     0.05,
			BoostFactor: 2.0,
		},
		Kelly: KellyConfig{
			PMin:             0.51,
			PMax:             0.90,
			Fraction:         0.25,
			MaxFraction:      0.15,
			FlashBoostScore:  85,
			FlashBoostHours:  6,
			FlashBoostFactor: 1.5,
			MaxBetUSD:        500,
		},
	}
}

// Sizer calcula stakes a partir de un Config inmutable.
type Sizer struct {
	cfg Config
}

func NewSizer(cfg Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// Size devuelve el stake para un score dado, o 0 si no hay apuesta.
// price y hoursRemaining solo influyen en modo kelly.
func (s *Sizer) Size(balance float64, score int, cat domain.Category, price, hoursRemaining float64) float64 {
	if score < s.cfg.MinScoreToBet || balance <= 0 {
		return 0
	}

	var bet float64
	if s.cfg.Mode == ModeKelly {
		bet = s.kelly(balance, score, price, hoursRemaining)
	} else {
		bet = s.tiered(balance, score, cat)
	}

	// Mínimo absoluto: si el balance no lo cubre, no hay apuesta
	if bet < s.cfg.MinBetUSD {
		if balance >= s.cfg.MinBetUSD {
			bet = s.cfg.MinBetUSD
		} else {
			return 0
		}
	}
	if bet > balance {
		bet = balance
	}
	return math.Floor(bet*100) / 100
}

func (s *Sizer) tiered(balance float64, score int, cat domain.Category) float64 {
	pct := s.cfg.Tiered.BasePct
	if score >= s.cfg.Tiered.HighScore {
		pct = s.cfg.Tiered.HighPct
	}
	for _, boosted := range s.cfg.Tiered.BoostCategories {
		if cat == boosted {
			pct *= s.cfg.Tiered.BoostFactor
			break
		}
	}
	return balance * pct
}

// kelly aplica el criterio de Kelly fraccional: f* = (b·p − q)/b con
// b = 1/price − 1, p mapeado linealmente desde el score.
func (s *Sizer) kelly(balance float64, score int, price, hoursRemaining float64) float64 {
	k := s.cfg.Kelly
	if price <= 0 || price >= 1 {
		return 0
	}

	// Score → probabilidad estimada, acotada en [PMin, PMax]
	span := float64(100 - s.cfg.MinScoreToBet)
	p := k.PMin
	if span > 0 {
		p += (float64(score-s.cfg.MinScoreToBet) / span) * (k.PMax - k.PMin)
	}
	p = math.Min(k.PMax, math.Max(k.PMin, p))

	b := 1/price - 1
	q := 1 - p
	f := (b*p - q) / b
	if f <= 0 {
		return 0
	}
	f *= k.Fraction

	// Flash boost: señal fuerte que resuelve pronto rota el capital más rápido
	if score >= k.FlashBoostScore && hoursRemaining > 0 && hoursRemaining < k.FlashBoostHours {
		f *= k.FlashBoostFactor
	}

	if f > k.MaxFraction {
		f = k.MaxFraction
	}

	bet := balance * f
	if k.MaxBetUSD > 0 && bet > k.MaxBetUSD {
		bet = k.MaxBetUSD
	}
	return bet
}
