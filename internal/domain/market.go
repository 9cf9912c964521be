package domain

import "time"

// MarketToken es un outcome de un mercado con su estado de resolución.
type MarketToken struct {
	TokenID string
	Outcome string
	Winner  bool
	Price   float64
}

// MarketStatus es el estado de resolución de un mercado según el venue.
type MarketStatus struct {
	ConditionID string
	Closed      bool
	Void        bool // voided / refunded / invalid: se devuelven los stakes
	Tokens      []MarketToken
	EndDate     time.Time
}

// WinnerOutcome devuelve el outcome ganador, o "" si aún no hay ganador.
func (m MarketStatus) WinnerOutcome() string {
	for _, tok := range m.Tokens {
		if tok.Winner {
			return tok.Outcome
		}
	}
	return ""
}

// Resolved reporta si el mercado cerró con un ganador declarado.
func (m MarketStatus) Resolved() bool {
	return m.Closed && m.WinnerOutcome() != ""
}

// TokenIndex localiza el índice del token cuyo outcome matchea el label dado.
// Match exacto primero, fuzzy (inclusión / alias binarios) después.
// Devuelve -1 si no hay match.
func (m MarketStatus) TokenIndex(outcome string) int {
	target := NormalizeOutcome(outcome)
	for i, tok := range m.Tokens {
		if NormalizeOutcome(tok.Outcome) == target {
			return i
		}
	}
	for i, tok := range m.Tokens {
		if MatchOutcome(tok.Outcome, outcome) {
			return i
		}
	}
	return -1
}

// HoursToEnd devuelve las horas hasta la fecha de fin del mercado desde now.
// Sin fecha de fin devuelve un horizonte efectivamente infinito.
func (m MarketStatus) HoursToEnd(now time.Time) float64 {
	if m.EndDate.IsZero() {
		return 999
	}
	return m.EndDate.Sub(now).Hours()
}
