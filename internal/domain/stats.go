package domain

import (
	"math"
	"sort"
	"time"
)

// ClosedPosition es una posición cerrada del historial de una wallet,
// ya etiquetada con la categoría de su mercado.
type ClosedPosition struct {
	Profit   float64 // PnL realizado en USD
	Bought   float64 // total comprado en USD
	Category Category
	ClosedAt time.Time
}

// BucketStats son las métricas agregadas de un bucket (global o por categoría).
type BucketStats struct {
	PnL               float64 // suma de PnL realizado
	MedianPnL         float64
	Winrate           float64 // 0–100, cruda
	WinrateLowerBound float64 // 0–100, Wilson lower bound (z=1.96)
	TotalVolume       float64
	TotalTrades       int
	Streak            int // run con signo de resultados consecutivos, más reciente primero
	FirstTradeAt      time.Time
}

// WalletStats son las estadísticas de una wallet: bucket global siempre
// presente, más buckets opcionales por categoría.
type WalletStats struct {
	Wallet     string
	Skipped    bool // trade de bajo valor: stub sin consultar upstream
	Global     BucketStats
	Categories map[Category]BucketStats
}

// minTrustedTrades es el mínimo de trades para que un bucket de categoría
// tenga suficiente muestra; por debajo se usa el bucket global.
const minTrustedTrades = 3

// Bucket devuelve las stats de la categoría si su muestra es confiable
// (>= 3 trades), o las globales en caso contrario.
func (s WalletStats) Bucket(cat Category) BucketStats {
	if b, ok := s.Categories[cat]; ok && b.TotalTrades >= minTrustedTrades {
		return b
	}
	return s.Global
}

// ComputeBucket agrega una lista de posiciones cerradas (orden cronológico,
// la más antigua primero) en un BucketStats.
func ComputeBucket(items []ClosedPosition) BucketStats {
	var b BucketStats
	if len(items) == 0 {
		return b
	}

	wins := 0
	pnls := make([]float64, 0, len(items))
	for _, p := range items {
		b.PnL += p.Profit
		b.TotalVolume += p.Bought
		pnls = append(pnls, p.Profit)
		if p.Profit > 0 {
			wins++
		}
		if !p.ClosedAt.IsZero() && (b.FirstTradeAt.IsZero() || p.ClosedAt.Before(b.FirstTradeAt)) {
			b.FirstTradeAt = p.ClosedAt
		}
	}

	b.TotalTrades = len(items)
	b.Winrate = float64(wins) / float64(len(items)) * 100
	b.WinrateLowerBound = WilsonLowerBound(wins, len(items), 1.96) * 100
	b.MedianPnL = Median(pnls)
	b.Streak = Streak(pnls)
	return b
}

// WilsonLowerBound calcula el límite inferior del intervalo de Wilson para una
// proporción binomial. Estimación conservadora del winrate real: penaliza
// muestras pequeñas. Devuelve un valor en [0,1]; 0 si total es 0.
func WilsonLowerBound(wins, total int, z float64) float64 {
	if total == 0 {
		return 0
	}
	n := float64(total)
	phat := float64(wins) / n
	num := phat + z*z/(2*n) - z*math.Sqrt((phat*(1-phat)+z*z/(4*n))/n)
	return num / (1 + z*z/n)
}

// Median calcula la mediana. Preferida sobre la media para distribuciones
// sesgadas como el PnL. Devuelve 0 para input vacío.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 != 0 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Streak cuenta el run de resultados consecutivos del mismo signo empezando
// por el más reciente (pnls viene en orden cronológico, el último es el más
// reciente). Positivo = racha de wins, negativo = racha de losses.
// Las entradas con PnL exactamente 0 se saltan: no extienden ni rompen el run.
func Streak(pnls []float64) int {
	dir := 0
	count := 0
	for i := len(pnls) - 1; i >= 0; i-- {
		p := pnls[i]
		if p == 0 {
			continue
		}
		sign := 1
		if p < 0 {
			sign = -1
		}
		if dir == 0 {
			dir = sign
		}
		if sign != dir {
			break
		}
		count++
	}
	return count * dir
}
