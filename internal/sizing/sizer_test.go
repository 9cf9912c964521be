package sizing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/sizing"
)

func TestTiered_ScoreTiers(t *testing.T) {
	s := sizing.NewSizer(sizing.DefaultConfig())

	cases := []struct {
		name    string
		balance float64
		score   int
		want    float64
	}{
		{"por debajo del umbral no apuesta", 1000, 74, 0},
		{"tramo base 5%", 1000, 80, 50},
		{"alta convicción 10%", 1000, 95, 100},
		{"justo en el umbral", 1000, 75, 50},
		{"justo en alta convicción", 1000, 90, 100},
		{"balance agotado", 0, 95, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Size(tc.balance, tc.score, domain.CategoryOther, 0.5, 12)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestTiered_MinimumAndRounding(t *testing.T) {
	s := sizing.NewSizer(sizing.DefaultConfig())

	// 5% de $10 son $0.50: se eleva al mínimo de $1 porque el balance lo cubre
	assert.InDelta(t, 1.0, s.Size(10, 80, domain.CategoryOther, 0.5, 12), 1e-9)

	// Con $0.50 de balance ni siquiera hay mínimo: no se apuesta
	assert.Zero(t, s.Size(0.5, 95, domain.CategoryOther, 0.5, 12))

	// El stake se trunca al céntimo, nunca se redondea hacia arriba
	assert.InDelta(t, 5.02, s.Size(100.555, 80, domain.CategoryOther, 0.5, 12), 1e-9)
}

func TestTiered_CategoryBoost(t *testing.T) {
	cfg := sizing.DefaultConfig()
	cfg.Tiered.BoostCategories = []domain.Category{domain.CategoryCrypto}

	s := sizing.NewSizer(cfg)

	// 5% * factor 2 = 10% en la categoría bonificada
	assert.InDelta(t, 100, s.Size(1000, 80, domain.CategoryCrypto, 0.5, 12), 1e-9)
	assert.InDelta(t, 50, s.Size(1000, 80, domain.CategoryPolitics, 0.5, 12), 1e-9)
}

func TestKelly_FractionByScore(t *testing.T) {
	cfg := sizing.DefaultConfig()
	cfg.Mode = sizing.ModeKelly
	s := sizing.NewSizer(cfg)

	// Score mínimo → p=0.51, b=1 a precio 0.50: f = 0.02 * 0.25 = 0.5% del bankroll
	assert.InDelta(t, 5.0, s.Size(1000, 75, domain.CategoryOther, 0.5, 48), 0.01)

	// Score 100 → p=0.90: f = 0.8 * 0.25 = 0.2, recortado al cap del 15%
	assert.InDelta(t, 150.0, s.Size(1000, 100, domain.CategoryOther, 0.5, 48), 0.01)
}

func TestKelly_TimeBoost(t *testing.T) {
	cfg := sizing.DefaultConfig()
	cfg.Mode = sizing.ModeKelly
	s := sizing.NewSizer(cfg)

	// Score 85 a precio 0.50: p=0.666, f base = 0.332*0.25 = 0.083
	sinBoost := s.Size(1000, 85, domain.CategoryOther, 0.5, 48)
	conBoost := s.Size(1000, 85, domain.CategoryOther, 0.5, 3)

	assert.InDelta(t, 83.0, sinBoost, 0.5)
	assert.InDelta(t, 124.5, conBoost, 0.5)
}

func TestKelly_AbsoluteLiquidityCap(t *testing.T) {
	cfg := sizing.DefaultConfig()
	cfg.Mode = sizing.ModeKelly
	s := sizing.NewSizer(cfg)

	// 15% de $10000 serían $1500: el cap absoluto lo deja en $500
	assert.InDelta(t, 500.0, s.Size(10000, 100, domain.CategoryOther, 0.5, 48), 1e-9)
}

func TestKelly_NegativeEdgeSkipsBet(t *testing.T) {
	cfg := sizing.DefaultConfig()
	cfg.Mode = sizing.ModeKelly
	s := sizing.NewSizer(cfg)

	// A precio 0.90 y p=0.51 el edge es negativo: Kelly manda no apostar
	assert.Zero(t, s.Size(1000, 75, domain.CategoryOther, 0.9, 48))

	// Precios degenerados tampoco producen stake
	assert.Zero(t, s.Size(1000, 90, domain.CategoryOther, 0, 48))
	assert.Zero(t, s.Size(1000, 90, domain.CategoryOther, 1, 48))
}
