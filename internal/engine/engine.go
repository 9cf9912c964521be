// Package engine orquesta el pipeline completo: tape → filtros → stats →
// scoring → estrategias → posiciones → settlement. Cada ciclo es una función
// independiente que el scheduler invoca a su ritmo.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/whaletracker/engine/internal/dedup"
	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/ports"
	"github.com/whaletracker/engine/internal/scoring"
	"github.com/whaletracker/engine/internal/sizing"
	"github.com/whaletracker/engine/internal/stats"
	"github.com/whaletracker/engine/internal/strategy"
)

// Config controla los filtros del ingest y el settlement.
type Config struct {
	IngestLimit      int           `yaml:"ingest_limit"`
	MaxEntryPrice    float64       `yaml:"max_entry_price"`    // favoritos caros no dejan edge
	MinTradeValueUSD float64       `yaml:"min_trade_value_usd"`
	StaleAfterSec    int           `yaml:"stale_after_sec"`    // trades viejos ya movieron el precio
	MaxMarketHours   float64       `yaml:"max_market_hours"`   // solo mercados que resuelven pronto
	BannedSlugParts  []string      `yaml:"banned_slug_parts"`
	StartBalance     float64       `yaml:"start_balance"`
	ShadowBetUSD     float64       `yaml:"shadow_bet_usd"`
	MaxPriceDrift    float64       `yaml:"max_price_drift"`    // pre-flight: deriva máxima vs precio de señal
	ShadowBatch      int           `yaml:"shadow_batch"`       // shadow bets por ciclo de resolución
	DedupCapacity    int           `yaml:"dedup_capacity"`
	ResolvePause     time.Duration `yaml:"-"`                  // cortesía entre lookups de mercado
	Conservative     bool          `yaml:"conservative_slippage"`
	StartPaused      bool          `yaml:"start_paused"`       // panic switch: arrancar sin abrir posiciones
}

// DefaultConfig devuelve el tuning de producción.
func DefaultConfig() Config {
	return Config{
		IngestLimit:      100,
		MaxEntryPrice:    0.75,
		MinTradeValueUSD: 50,
		StaleAfterSec:    60,
		MaxMarketHours:   24,
		BannedSlugParts:  []string{"updown-15m", "up-or-down", "nhl-", "nfl-"},
		StartBalance:     1000,
		ShadowBetUSD:     10,
		MaxPriceDrift:    0.10,
		ShadowBatch:      200,
		DedupCapacity:    2000,
		ResolvePause:     200 * time.Millisecond,
	}
}

// Slippage devuelve el modelo de slippage configurado.
func (c Config) Slippage() domain.SlippageModel {
	if c.Conservative {
		return domain.ConservativeSlippage
	}
	return domain.RealisticSlippage
}

// StaleAfter devuelve la edad máxima de un trade como Duration.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSec) * time.Second
}

// Engine es el orquestador. Stateless salvo el guard de dedup y el flag de
// pausa; todo lo demás vive en storage.
type Engine struct {
	cfg        Config
	storage    ports.Storage
	feed       ports.TradeFeed
	markets    ports.MarketSource
	stats      *stats.Aggregator
	scorer     *scoring.Scorer
	strategies []strategy.Strategy
	sizer      *sizing.Sizer
	notifier   ports.Notifier
	guard      *dedup.Guard
	paused     atomic.Bool
	now        func() time.Time
}

// Deps agrupa las dependencias del Engine.
type Deps struct {
	Storage    ports.Storage
	Feed       ports.TradeFeed
	Markets    ports.MarketSource
	Stats      *stats.Aggregator
	Scorer     *scoring.Scorer
	Strategies []strategy.Strategy
	Sizer      *sizing.Sizer
	Notifier   ports.Notifier
}

// New crea el Engine con todas las dependencias inyectadas.
func New(cfg Config, deps Deps) *Engine {
	capacity := cfg.DedupCapacity
	if capacity <= 0 {
		capacity = 2000
	}
	e := &Engine{
		cfg:        cfg,
		storage:    deps.Storage,
		feed:       deps.Feed,
		markets:    deps.Markets,
		stats:      deps.Stats,
		scorer:     deps.Scorer,
		strategies: deps.Strategies,
		sizer:      deps.Sizer,
		notifier:   deps.Notifier,
		guard:      dedup.NewGuard(capacity),
		now:        time.Now,
	}
	if cfg.StartPaused {
		e.paused.Store(true)
	}
	return e
}

// WithClock fija el reloj del engine. Solo para tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Pause detiene la apertura de posiciones nuevas. El settlement sigue
// corriendo: pausar nunca debe congelar posiciones ya abiertas.
func (e *Engine) Pause() {
	e.paused.Store(true)
	slog.Warn("engine paused: no new positions will be opened")
}

// Resume reactiva la apertura de posiciones.
func (e *Engine) Resume() {
	e.paused.Store(false)
	slog.Info("engine resumed")
}

// Paused reporta si el engine está en pausa.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

// SelfTest verifica storage y feed antes de arrancar los loops. Un fallo
// aquí es fatal: mejor morir en el arranque que correr ciego.
func (e *Engine) SelfTest(ctx context.Context) error {
	if err := e.storage.Ping(ctx); err != nil {
		return fmt.Errorf("engine.SelfTest: storage: %w", err)
	}
	if _, err := e.feed.RecentTrades(ctx, 1); err != nil {
		return fmt.Errorf("engine.SelfTest: trade feed: %w", err)
	}
	slog.Info("self-test passed")
	return nil
}

// sleepCtx espera la duración dada respetando el contexto.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
