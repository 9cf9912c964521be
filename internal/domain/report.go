package domain

// Filas de los rollups de performance. El ROI medio se reporta también capado
// a ±1000% para que un único outlier (longshot a 0.01 que gana) no distorsione
// la media.

// StrategyPerformance agrega resultados por estrategia.
type StrategyPerformance struct {
	StrategyID   string
	Total        int
	Wins         int
	Pending      int
	AvgROI       float64
	AvgROICapped float64
}

// OddsBucketPerformance agrega resultados por banda de precio de entrada.
type OddsBucketPerformance struct {
	Bucket       string // "0.00-0.20", "0.20-0.40", ...
	Total        int
	Wins         int
	AvgROICapped float64
}

// CategoryPerformance agrega resultados por categoría y liga.
type CategoryPerformance struct {
	Category     Category
	League       string
	Total        int
	Wins         int
	AvgROICapped float64
}

// PortfolioEquity es la foto mark-to-market de un (usuario, estrategia):
// las posiciones OPEN valoradas al quote actual, o al costo si no hay precio.
type PortfolioEquity struct {
	UserID     int64
	StrategyID string
	Balance    float64
	Locked     float64
	Unrealized float64 // valor actual de las posiciones OPEN
	Equity     float64 // balance + unrealized
}

// WinratePct devuelve el winrate del rollup en porcentaje.
func (s StrategyPerformance) WinratePct() float64 {
	settled := s.Total - s.Pending
	if settled <= 0 {
		return 0
	}
	return float64(s.Wins) / float64(settled) * 100
}
