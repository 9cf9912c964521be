// Package dedup implementa la capa barata de idempotencia: un set acotado de
// ids de trade ya procesados, con evicción FIFO. Suprime trabajo redundante
// entre ciclos de polling solapados dentro de un mismo proceso; el backstop de
// correctitud entre reinicios es el UNIQUE(transaction_hash) de storage.
package dedup

import "sync"

// Guard es un set FIFO acotado de ids de trade. Seguro para uso concurrente.
type Guard struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

// NewGuard crea un Guard con la capacidad dada (mínimo 1).
func NewGuard(capacity int) *Guard {
	if capacity < 1 {
		capacity = 1
	}
	return &Guard{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Seen reporta si el id ya fue marcado.
func (g *Guard) Seen(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[id]
	return ok
}

// Mark registra el id, evictando el más antiguo si el set está lleno.
// Devuelve false si el id ya estaba presente.
func (g *Guard) Mark(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[id]; ok {
		return false
	}
	if len(g.order) >= g.capacity {
		oldest := g.order[0]
		g.order = g.order[1:]
		delete(g.seen, oldest)
	}
	g.seen[id] = struct{}{}
	g.order = append(g.order, id)
	return true
}

// Len devuelve el número de ids actualmente retenidos.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
