package polymarket

// stream.go: tape en vivo por websocket.
//
// Complemento opcional del polling REST: cuando está activo, los fills llegan
// con latencia de milisegundos en lugar de esperar al próximo ciclo. El feed
// REST sigue siendo la fuente de verdad; el stream solo adelanta señales.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/whaletracker/engine/internal/domain"
)

const (
	defaultStreamURL = "wss://ws-live-data.polymarket.com"

	streamBuffer      = 256
	reconnectMinWait  = time.Second
	reconnectMaxWait  = 30 * time.Second
	streamHealthySpan = time.Minute
	pongWait          = 60 * time.Second
	pingPeriod        = 25 * time.Second
)

// Stream consume el tape en vivo de Polymarket y lo expone como canal de
// domain.Trade. Reconecta solo con backoff; los trades que no parsean se
// descartan.
type Stream struct {
	url    string
	trades chan domain.Trade
}

// NewStream crea el stream. url vacío usa el endpoint de producción.
func NewStream(url string) *Stream {
	if url == "" {
		url = defaultStreamURL
	}
	return &Stream{
		url:    url,
		trades: make(chan domain.Trade, streamBuffer),
	}
}

// Trades devuelve el canal de fills en vivo. Se cierra cuando Run termina.
func (s *Stream) Trades() <-chan domain.Trade {
	return s.trades
}

// Run mantiene la conexión viva hasta que el contexto se cancele.
// Bloqueante: pensado para correr en su propio goroutine.
func (s *Stream) Run(ctx context.Context) {
	defer close(s.trades)

	var wait time.Duration
	for {
		started := time.Now()
		if err := s.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			wait = nextReconnectWait(wait, time.Since(started))
			slog.Warn("live stream disconnected, reconnecting", "err", err, "wait", wait)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// nextReconnectWait decide la espera antes del próximo dial. Las caídas
// rápidas duplican la espera hasta el tope; una sesión que se mantuvo viva
// streamHealthySpan o más vuelve al mínimo, porque una desconexión tras una
// hora sana no es la misma falla que un rechazo inmediato.
func nextReconnectWait(prev, session time.Duration) time.Duration {
	if session >= streamHealthySpan || prev < reconnectMinWait {
		return reconnectMinWait
	}
	next := prev * 2
	if next > reconnectMaxWait {
		next = reconnectMaxWait
	}
	return next
}

// streamEnvelope es el sobre genérico de los mensajes del websocket.
type streamEnvelope struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// subscribeMsg suscribe al topic de actividad global de trades.
type subscribeMsg struct {
	Action        string              `json:"action"`
	Subscriptions []map[string]string `json:"subscriptions"`
}

func (s *Stream) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	sub := subscribeMsg{
		Action: "subscribe",
		Subscriptions: []map[string]string{
			{"topic": "activity", "type": "trades"},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	slog.Info("live stream connected", "url", s.url)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Pings periódicos y cierre por contexto
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		var env streamEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if env.Topic != "activity" || env.Type != "trades" {
			continue
		}

		var rt rawTrade
		if err := json.Unmarshal(env.Payload, &rt); err != nil {
			continue
		}
		trade, ok := mapTrade(rt)
		if !ok {
			continue
		}

		select {
		case s.trades <- trade:
		default:
			// Canal lleno: el consumidor va atrasado, soltar el fill
			// más viejo es mejor que bloquear el read loop.
			select {
			case <-s.trades:
			default:
			}
			s.trades <- trade
		}
	}
}
