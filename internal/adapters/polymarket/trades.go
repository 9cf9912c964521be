package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/whaletracker/engine/internal/domain"
)

// Feed implementa ports.TradeFeed sobre GET /trades de la Data API.
// Pide solo fills de taker con valor mínimo: el ruido de micro-trades se
// filtra en el servidor, no en el bot.
type Feed struct {
	client     *Client
	minCashUSD float64
}

// NewFeed crea el feed de trades. minCashUSD filtra en servidor los fills por
// debajo de ese valor (0 desactiva el filtro).
func NewFeed(client *Client, minCashUSD float64) *Feed {
	return &Feed{client: client, minCashUSD: minCashUSD}
}

// RecentTrades devuelve los últimos fills del tape global, el más reciente
// primero. Filas que no parsean se descartan en silencio: el tape público
// trae basura ocasional y un trade malo no debe tumbar el ciclo.
func (f *Feed) RecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	url := fmt.Sprintf("%s/trades?limit=%d&takerOnly=true", f.client.dataBase, limit)
	if f.minCashUSD > 0 {
		url += fmt.Sprintf("&filterType=CASH&filterAmount=%.0f", f.minCashUSD)
	}

	var resp []rawTrade
	if err := f.client.get(ctx, f.client.dataLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.RecentTrades: %w", err)
	}

	trades := make([]domain.Trade, 0, len(resp))
	for _, rt := range resp {
		t, ok := mapTrade(rt)
		if !ok {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// mapTrade convierte una fila raw en domain.Trade. Devuelve false si la fila
// no tiene los campos mínimos para ser evaluable.
func mapTrade(rt rawTrade) (domain.Trade, bool) {
	price, _ := rt.Price.Float64()
	size, _ := rt.Size.Float64()

	t := domain.Trade{
		TransactionHash: rt.TransactionHash,
		Wallet:          rt.ProxyWallet,
		ConditionID:     rt.ConditionID,
		Outcome:         rt.Outcome,
		Side:            rt.Side,
		Price:           price,
		Size:            size,
		Timestamp:       parseTimestamp(rt.Timestamp),
		Title:           rt.Title,
		Slug:            rt.Slug,
		EventSlug:       rt.EventSlug,
	}
	return t, t.Valid()
}

// parseTimestamp tolera unix en segundos, milisegundos y strings ISO.
func parseTimestamp(n json.Number) time.Time {
	s := n.String()
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		if sec > 1e12 {
			return time.Unix(sec/1000, (sec%1000)*int64(time.Millisecond))
		}
		return time.Unix(sec, 0)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec)
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
