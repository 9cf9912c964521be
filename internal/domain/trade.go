package domain

import (
	"math"
	"time"
)

// Lados de un trade en el tape.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade es un trade crudo del feed público. Efímero: no se persiste tal cual,
// se consume para producir un Signal.
type Trade struct {
	TransactionHash string
	Wallet          string // maker / proxy wallet
	ConditionID     string
	Outcome         string
	Side            string // "BUY" o "SELL"
	Price           float64
	Size            float64
	Timestamp       time.Time
	Title           string
	Slug            string
	EventSlug       string
}

// ValueUSD devuelve el valor nominal del trade en USD.
func (t Trade) ValueUSD() float64 {
	return t.Price * t.Size
}

// Valid reporta si el trade tiene precio y tamaño utilizables.
// El feed es untrusted: precios fuera de (0,1] o valores no finitos se descartan.
func (t Trade) Valid() bool {
	if !isFinite(t.Price) || !isFinite(t.Size) {
		return false
	}
	return t.Price > 0 && t.Price <= 1.0 && t.Size > 0
}

// ValidEntryPrice reporta si un precio de entrada es utilizable para settlement.
func ValidEntryPrice(price float64) bool {
	return isFinite(price) && price >= 0.01 && price <= 1.0
}

// NormalizeUSDC corrige valores upstream escalados por 1e6 (micro-USDC crudos).
func NormalizeUSDC(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	if math.Abs(v) > 100_000_000 {
		return v / 1_000_000
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
