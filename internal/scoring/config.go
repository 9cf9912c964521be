package scoring

import "github.com/whaletracker/engine/internal/domain"

// Weights son los pesos de los tres componentes base (suman 100).
type Weights struct {
	Winrate float64 `yaml:"winrate"` // Wilson lower bound
	Median  float64 `yaml:"median"`  // consistencia del PnL
	Volume  float64 `yaml:"volume"`  // experiencia
}

// Tuning son los thresholds de rampa específicos de una categoría.
type Tuning struct {
	LBBase             float64 `yaml:"lb_base"`   // lower bound que puntúa 0
	LBTarget           float64 `yaml:"lb_target"` // lower bound que puntúa el peso completo
	MedianTarget       float64 `yaml:"median_target"`
	VolumeTargetTrades int     `yaml:"volume_target_trades"`
}

// Tier es un bonus aditivo por tamaño absoluto del trade.
type Tier struct {
	MinValueUSD float64 `yaml:"min_value_usd"`
	Bonus       float64 `yaml:"bonus"`
}

// Config agrupa todos los thresholds del scorer. Son datos tuneados en vivo,
// no verdades del código: viven en configuración.
type Config struct {
	Weights       Weights                     `yaml:"weights"`
	DefaultTuning Tuning                      `yaml:"default_tuning"`
	Tuning        map[domain.Category]Tuning  `yaml:"tuning"`
	Multipliers   map[domain.Category]float64 `yaml:"multipliers"`

	// Hard bans
	Blacklist           []string `yaml:"blacklist"`
	BanSports           bool     `yaml:"ban_sports"`
	ToxicBandLow        float64  `yaml:"toxic_band_low"` // 0/0 desactiva la banda
	ToxicBandHigh       float64  `yaml:"toxic_band_high"`
	AntiLoserMinTrades  int      `yaml:"anti_loser_min_trades"`
	AntiLoserMaxWinrate float64  `yaml:"anti_loser_max_winrate"`

	// Penalizaciones y bonuses
	PriceHigh       float64 `yaml:"price_high"` // fuera de [PriceLow, PriceHigh] penaliza
	PriceLow        float64 `yaml:"price_low"`
	PricePenalty    float64 `yaml:"price_penalty"`
	TiltStreak      int     `yaml:"tilt_streak"` // streak <= este valor dispara la penalización
	TiltPenalty     float64 `yaml:"tilt_penalty"`
	ConvictionTiers []Tier  `yaml:"conviction_tiers"`
	Allowlist       []string `yaml:"allowlist"`
	AllowlistBonus  float64  `yaml:"allowlist_bonus"`
}

// DefaultConfig devuelve el tuning observado en producción.
func DefaultConfig() Config {
	return Config{
		Weights:       Weights{Winrate: 50, Median: 30, Volume: 20},
		DefaultTuning: Tuning{LBBase: 30, LBTarget: 60, MedianTarget: 50, VolumeTargetTrades: 20},
		Tuning: map[domain.Category]Tuning{
			domain.CategoryPolitics: {LBBase: 25, LBTarget: 55, MedianTarget: 40, VolumeTargetTrades: 25},
			domain.CategoryCrypto:   {LBBase: 20, LBTarget: 50, MedianTarget: 20, VolumeTargetTrades: 15},
			domain.CategorySports:   {LBBase: 35, LBTarget: 65, MedianTarget: 50, VolumeTargetTrades: 30},
			domain.CategoryWeather:  {LBBase: 30, LBTarget: 60, MedianTarget: 30, VolumeTargetTrades: 15},
			domain.CategoryOther:    {LBBase: 30, LBTarget: 60, MedianTarget: 30, VolumeTargetTrades: 15},
		},
		Multipliers: map[domain.Category]float64{
			domain.CategoryPolitics: 1.1, // históricamente rentable
			domain.CategoryCrypto:   1.1,
			domain.CategorySports:   0.9, // alta varianza
			domain.CategoryWeather:  1.0,
			domain.CategoryOther:    1.0,
		},
		AntiLoserMinTrades:  5,
		AntiLoserMaxWinrate: 20,
		PriceHigh:           0.75,
		PriceLow:            0.20,
		PricePenalty:        30,
		TiltStreak:          -3,
		TiltPenalty:         50,
		ConvictionTiers: []Tier{
			{MinValueUSD: 2000, Bonus: 10},
			{MinValueUSD: 500, Bonus: 5},
		},
		AllowlistBonus: 15,
	}
}

// tuningFor devuelve el tuning de la categoría o el default.
func (c Config) tuningFor(cat domain.Category) Tuning {
	if t, ok := c.Tuning[cat]; ok {
		return t
	}
	return c.DefaultTuning
}

// multiplierFor devuelve el multiplicador de la categoría o 1.0.
func (c Config) multiplierFor(cat domain.Category) float64 {
	if m, ok := c.Multipliers[cat]; ok {
		return m
	}
	return 1.0
}
