package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/ports"
)

// Telegram implementa ports.Notifier empujando mensajes por la Bot API.
// Fire-and-forget: un Telegram caído degrada a un warning en el log, nunca
// corta el ciclo de trading.
type Telegram struct {
	http    *http.Client
	baseURL string
	token   string
	chatID  string
}

// NewTelegram crea el notificador. baseURL vacío usa api.telegram.org.
func NewTelegram(token, chatID, baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		token:   token,
		chatID:  chatID,
	}
}

// PositionOpened notifica la apertura de una posición.
func (t *Telegram) PositionOpened(ctx context.Context, ev ports.PositionEvent) error {
	pos := ev.Position
	msg := fmt.Sprintf("🎯 *%s* abrió posición\n%s\n%s @ %.3f — $%.2f (score %d)\n%s",
		pos.StrategyID, marketLabel(pos), pos.Outcome, pos.EntryPrice,
		pos.BetAmount, ev.Score, ev.Reason)
	return t.send(ctx, msg)
}

// PositionSettled notifica el resultado de una posición resuelta.
func (t *Telegram) PositionSettled(ctx context.Context, ev ports.PositionEvent) error {
	pos := ev.Position
	pnl := 0.0
	if pos.ResultPnLPct != nil {
		pnl = *pos.ResultPnLPct
	}

	icon := "❌"
	switch {
	case pos.Status == domain.StatusClosedVoid:
		icon = "↩️"
	case pnl > 0:
		icon = "✅"
	}
	msg := fmt.Sprintf("%s *%s* settled\n%s\n%s — PnL %+.1f%% — payout $%.2f",
		icon, pos.StrategyID, marketLabel(pos), pos.Outcome, pnl, ev.Payout)
	return t.send(ctx, msg)
}

// EmergencyExit notifica una salida anticipada.
func (t *Telegram) EmergencyExit(ctx context.Context, ev ports.PositionEvent) error {
	pos := ev.Position
	msg := fmt.Sprintf("🚨 *EXIT* %s\n%s\n%s — proceeds $%.2f\n%s",
		pos.StrategyID, marketLabel(pos), pos.Outcome, ev.Payout, ev.Reason)
	return t.send(ctx, msg)
}

// Heartbeat notifica la señal de vida periódica.
func (t *Telegram) Heartbeat(ctx context.Context, userIDs []int64) error {
	return t.send(ctx, fmt.Sprintf("💓 bot vivo — %d usuarios activos", len(userIDs)))
}

// send empuja un mensaje al chat configurado. Los errores se loguean y se
// tragan: la notificación nunca es parte del camino crítico.
func (t *Telegram) send(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("notify.Telegram: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.Telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		slog.Warn("telegram send failed", "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Warn("telegram rejected message", "status", resp.StatusCode)
	}
	return nil
}
