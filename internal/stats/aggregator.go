// Package stats convierte el historial crudo de posiciones cerradas de una
// wallet en métricas de performance ajustadas por confianza, globales y por
// categoría de mercado.
package stats

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/ports"
)

const defaultTTL = time.Hour

// minTradeValueUSD: los trades por debajo de este valor no justifican
// consultar el historial upstream; se devuelve un stub saltado.
const minTradeValueUSD = 5.0

// Aggregator computa y cachea WalletStats bajo demanda.
type Aggregator struct {
	history ports.HistorySource
	cache   *cache
}

// Option configura el Aggregator.
type Option func(*Aggregator)

// WithTTL cambia el TTL de la cache.
func WithTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.cache.ttl = ttl }
}

// WithClock inyecta un reloj para tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.cache.now = now }
}

// NewAggregator crea un Aggregator sobre la fuente de historial dada.
func NewAggregator(history ports.HistorySource, opts ...Option) *Aggregator {
	a := &Aggregator{
		history: history,
		cache:   newCache(defaultTTL, time.Now),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute devuelve las stats de la wallet para un trade de valor dado.
//
// Guard de valor: trades < $5 devuelven un stub Skipped sin tocar upstream.
// Cache: TTL de 1h por dirección (case-insensitive); hit devuelve el snapshot.
// Degradación: un error del upstream devuelve stats a cero, nunca propaga:
// el engine degrada a "sin señal" en lugar de romper el ciclo.
func (a *Aggregator) Compute(ctx context.Context, wallet string, tradeValueUSD float64) domain.WalletStats {
	if tradeValueUSD < minTradeValueUSD {
		return domain.WalletStats{Wallet: wallet, Skipped: true}
	}

	key := strings.ToLower(wallet)
	if cached, ok := a.cache.get(key); ok {
		return cached
	}

	items, err := a.history.ClosedPositions(ctx, wallet)
	if err != nil {
		slog.Warn("stats: history fetch failed, degrading to zero stats",
			"wallet", wallet, "error", err)
		return domain.WalletStats{Wallet: wallet}
	}

	result := build(wallet, items)
	a.cache.set(key, result)
	a.cache.evictExpired()
	return result
}

// CacheSize devuelve el número de wallets actualmente cacheadas.
func (a *Aggregator) CacheSize() int {
	return a.cache.len()
}

// build agrega el historial en un bucket global más buckets por categoría.
// El upstream ordena por valor actual, no por fecha: se reordena
// cronológicamente antes de agregar, porque el streak cuenta desde el
// resultado más reciente. Timestamps cero (sin fecha) quedan primero.
func build(wallet string, items []domain.ClosedPosition) domain.WalletStats {
	ordered := make([]domain.ClosedPosition, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ClosedAt.Before(ordered[j].ClosedAt)
	})

	byCategory := make(map[domain.Category][]domain.ClosedPosition)
	for _, p := range ordered {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	stats := domain.WalletStats{
		Wallet:     wallet,
		Global:     domain.ComputeBucket(ordered),
		Categories: make(map[domain.Category]domain.BucketStats, len(byCategory)),
	}
	for cat, group := range byCategory {
		stats.Categories[cat] = domain.ComputeBucket(group)
	}
	return stats
}
