package polymarket

import "encoding/json"

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete;
// la conversión a domain entities ocurre en cada adapter.

// --- Data API ---

// rawTrade es una fila de GET /trades. La API mezcla números y strings según
// el día, así que todo campo numérico va como json.Number.
type rawTrade struct {
	ProxyWallet     string      `json:"proxyWallet"`
	Side            string      `json:"side"`
	ConditionID     string      `json:"conditionId"`
	Size            json.Number `json:"size"`
	Price           json.Number `json:"price"`
	Timestamp       json.Number `json:"timestamp"`
	Title           string      `json:"title"`
	Slug            string      `json:"slug"`
	EventSlug       string      `json:"eventSlug"`
	Outcome         string      `json:"outcome"`
	OutcomeIndex    json.Number `json:"outcomeIndex"`
	TransactionHash string      `json:"transactionHash"`
}

// rawPosition es una fila de GET /positions de un wallet.
type rawPosition struct {
	ConditionID string      `json:"conditionId"`
	Size        json.Number `json:"size"`
	TotalBought json.Number `json:"totalBought"`
	RealizedPnL json.Number `json:"realizedPnl"`
	CurPrice    json.Number `json:"curPrice"`
	Redeemable  bool        `json:"redeemable"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	EventSlug   string      `json:"eventSlug"`
	EndDate     string      `json:"endDate"`
}

// rawValue es la respuesta de GET /value: el valor total del wallet en USD.
type rawValue struct {
	User  string      `json:"user"`
	Value json.Number `json:"value"`
}

// --- CLOB API ---

// clobMarket es la respuesta de GET /markets/{condition_id}.
type clobMarket struct {
	ConditionID     string      `json:"condition_id"`
	Question        string      `json:"question"`
	MarketSlug      string      `json:"market_slug"`
	EndDateISO      string      `json:"end_date_iso"`
	Active          bool        `json:"active"`
	Closed          bool        `json:"closed"`
	AcceptingOrders bool        `json:"accepting_orders"`
	Tokens          []clobToken `json:"tokens"`
}

// clobToken representa un token (outcome) del mercado en el CLOB.
type clobToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// clobPrice es la respuesta de GET /price.
type clobPrice struct {
	Price json.Number `json:"price"`
}

// --- Gamma API ---

// gammaMarket contiene la metadata de resolución de un mercado. Solo se
// consulta cuando el CLOB reporta closed sin winner, para distinguir una
// anulación de un mercado aún no resuelto.
type gammaMarket struct {
	ConditionID         string `json:"conditionId"`
	Slug                string `json:"slug"`
	UMAResolutionStatus string `json:"umaResolutionStatus"`
	Closed              bool   `json:"closed"`
}
