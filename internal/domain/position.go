package domain

import "time"

// Estados de Signal y Position. Los estados CLOSED_* son terminales:
// no hay transición de salida.
const (
	StatusOpen        = "OPEN"
	StatusClosed      = "CLOSED"
	StatusClosedVoid  = "CLOSED_VOID"
	StatusClosedReset = "CLOSED_RESET"
	StatusError       = "ERROR"
)

// StrategyShadow es la estrategia reservada para shadow bets (data mining):
// posiciones virtuales que se settlean en silencio sin tocar ningún portfolio.
const StrategyShadow = "shadow_mining"

// ShadowUserID es el usuario virtual dueño de los shadow bets.
const ShadowUserID int64 = 0

// Signal es el registro persistido de un trade que mereció evaluación.
// Append-only: solo el settlement muta status y campos de resultado.
type Signal struct {
	ID              int64
	MarketSlug      string
	EventSlug       string
	ConditionID     string
	Outcome         string
	Side            string
	EntryPrice      float64
	SizeUSD         float64
	Wallet          string
	TokenIndex      *int
	TransactionHash string // único: un segundo trade con el mismo hash no crea otro Signal
	Status          string
	ResultPnLPct    *float64
	ResolvedOutcome string
	CreatedAt       time.Time
}

// Position es una apuesta simulada de un (usuario, estrategia) sobre un Signal.
// Invariante: como máximo una posición OPEN por (usuario, estrategia, conditionID).
type Position struct {
	ID              string // UUID
	UserID          int64
	StrategyID      string
	SignalID        int64
	ConditionID     string
	MarketSlug      string
	Outcome         string
	Side            string
	EntryPrice      float64
	SizeUSD         float64 // valor del trade original de la whale
	BetAmount       float64 // stake de la posición
	Category        Category
	League          string
	Score           int
	Reason          string
	Status          string
	ExitPrice       *float64
	ResultPnLPct    *float64
	ResolvedOutcome string
	CreatedAt       time.Time
	ClosedAt        *time.Time
}

// Portfolio es el bankroll virtual de un (usuario, estrategia).
// Invariantes: balance >= 0; locked == suma de BetAmount de las posiciones OPEN.
type Portfolio struct {
	UserID     int64
	StrategyID string
	Balance    float64
	Locked     float64
	IsActive   bool
	UpdatedAt  time.Time
}

// Equity es el valor total del portfolio (balance + fondos bloqueados).
func (p Portfolio) Equity() float64 {
	return p.Balance + p.Locked
}

// SettlementExitPrice devuelve el precio de salida de una resolución normal:
// 1.0 si el outcome de la posición coincide con el ganador, 0.0 si no.
func SettlementExitPrice(positionOutcome, winnerOutcome string) float64 {
	if MatchOutcome(positionOutcome, winnerOutcome) {
		return 1.0
	}
	return 0
}

// Shares devuelve las participaciones implícitas de una posición.
func Shares(betAmount, entryPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	return betAmount / entryPrice
}

// Payout devuelve el cobro al settlear: shares * exitPrice.
func Payout(betAmount, entryPrice, exitPrice float64) float64 {
	return Shares(betAmount, entryPrice) * exitPrice
}

// PayoutFromROI convierte un ROI porcentual en el cobro del portfolio,
// redondeado a centavos y nunca negativo.
func PayoutFromROI(betAmount, roiPct float64) float64 {
	factor := 1 + roiPct/100
	if factor < 0 {
		factor = 0
	}
	return roundCents(betAmount * factor)
}

// InverseOutcome devuelve el outcome binario opuesto ("Yes" ↔ "No").
// Para outcomes no binarios devuelve el original sin tocar.
func InverseOutcome(outcome string) string {
	switch NormalizeOutcome(outcome) {
	case "yes":
		return "No"
	case "no":
		return "Yes"
	}
	return outcome
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
