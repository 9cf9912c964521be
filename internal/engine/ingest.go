package engine

// ingest.go: el ciclo caliente. Lee el tape, filtra ruido y convierte los
// fills de whales en señales y posiciones.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/ports"
	"github.com/whaletracker/engine/internal/strategy"
)

// IngestResult resume un ciclo de ingest.
type IngestResult struct {
	Fetched   int // trades leídos del tape
	Evaluated int // trades que pasaron todos los filtros
	Signals   int // señales nuevas persistidas
	Bets      int // posiciones reales abiertas
	Exits     int // emergency exits ejecutados
}

// IngestCycle procesa el tape una vez. Los errores por-trade se loguean y se
// siguen: un trade podrido no puede tumbar el ciclo.
func (e *Engine) IngestCycle(ctx context.Context) (IngestResult, error) {
	var res IngestResult

	trades, err := e.feed.RecentTrades(ctx, e.cfg.IngestLimit)
	if err != nil {
		return res, fmt.Errorf("engine.IngestCycle: fetch tape: %w", err)
	}
	res.Fetched = len(trades)

	// El tape llega del más reciente al más viejo: procesar en orden
	// cronológico para que el dedup FIFO evicte lo correcto.
	for i := len(trades) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		e.processTrade(ctx, trades[i], &res)
	}

	slog.Info("ingest cycle complete",
		"fetched", res.Fetched,
		"evaluated", res.Evaluated,
		"signals", res.Signals,
		"bets", res.Bets,
		"exits", res.Exits,
	)
	return res, nil
}

// ProcessLiveTrade evalúa un fill que llegó por el stream websocket.
// Mismo pipeline que el polling; el dedup absorbe el solape entre ambos.
func (e *Engine) ProcessLiveTrade(ctx context.Context, t domain.Trade) {
	var res IngestResult
	e.processTrade(ctx, t, &res)
}

func (e *Engine) processTrade(ctx context.Context, t domain.Trade, res *IngestResult) {
	if !t.Valid() {
		return
	}
	if e.guard.Seen(t.TransactionHash) {
		return
	}

	if strings.EqualFold(t.Side, domain.SideSell) {
		e.guard.Mark(t.TransactionHash)
		res.Exits += e.handleSell(ctx, t)
		return
	}

	// --- filtros baratos primero ---
	if !domain.ValidEntryPrice(t.Price) || t.Price > e.cfg.MaxEntryPrice {
		return
	}
	if t.ValueUSD() < e.cfg.MinTradeValueUSD {
		return
	}
	if age := e.now().Sub(t.Timestamp); age > e.cfg.StaleAfter() {
		return
	}
	if e.bannedSlug(t.Slug) || e.bannedSlug(t.EventSlug) {
		return
	}

	// El guard en memoria se marca recién cuando el resultado es definitivo
	// (persistido o descartado por una razón determinista): un error
	// transitorio de storage o de red no puede quemar el hash para siempre.
	exists, err := e.storage.SignalExists(ctx, t.TransactionHash)
	if err != nil {
		slog.Warn("signal lookup failed", "hash", t.TransactionHash, "err", err)
		return
	}
	if exists {
		e.guard.Mark(t.TransactionHash)
		return
	}

	// --- el mercado tiene que existir, estar abierto y resolver pronto ---
	status, err := e.markets.Status(ctx, t.ConditionID)
	if err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			e.guard.Mark(t.TransactionHash)
		} else {
			slog.Warn("market lookup failed", "condition_id", t.ConditionID, "err", err)
		}
		return
	}
	if status.Closed {
		e.guard.Mark(t.TransactionHash)
		return
	}
	hoursLeft := status.HoursToEnd(e.now())
	if hoursLeft > e.cfg.MaxMarketHours {
		e.guard.Mark(t.TransactionHash)
		return
	}

	wstats := e.stats.Compute(ctx, t.Wallet, t.ValueUSD())
	if wstats.Skipped {
		e.guard.Mark(t.TransactionHash)
		return
	}
	res.Evaluated++

	cat := domain.Categorize(t.Title, t.Slug)
	league := domain.ExtractLeague(t.Title, t.Slug)
	score := e.scorer.Evaluate(t, wstats, cat)

	sigID, err := e.storage.SaveSignal(ctx, domain.Signal{
		MarketSlug:      t.Slug,
		EventSlug:       t.EventSlug,
		ConditionID:     t.ConditionID,
		Outcome:         t.Outcome,
		Side:            t.Side,
		EntryPrice:      t.Price,
		SizeUSD:         t.ValueUSD(),
		Wallet:          t.Wallet,
		TransactionHash: t.TransactionHash,
		CreatedAt:       t.Timestamp,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSignal) {
			e.guard.Mark(t.TransactionHash)
		} else {
			slog.Error("save signal failed", "hash", t.TransactionHash, "err", err)
		}
		return
	}
	e.guard.Mark(t.TransactionHash)
	res.Signals++

	// Shadow bet: toda señal guardada recibe una apuesta virtual fija para
	// minar datos de calibración, pase o no pase los umbrales de estrategia.
	e.placeShadowBet(ctx, t, sigID, cat, league, score)

	if e.Paused() {
		return
	}

	users, err := e.storage.ActiveUsers(ctx)
	if err != nil {
		slog.Error("list active users failed", "err", err)
		return
	}
	for _, userID := range users {
		for _, strat := range e.strategies {
			if e.evaluateFor(ctx, userID, strat, t, wstats, sigID, cat, league, hoursLeft, status) {
				res.Bets++
			}
		}
	}
}

// evaluateFor corre una estrategia para un usuario sobre un trade. Devuelve
// true si abrió posición.
func (e *Engine) evaluateFor(
	ctx context.Context,
	userID int64,
	strat strategy.Strategy,
	t domain.Trade,
	wstats domain.WalletStats,
	sigID int64,
	cat domain.Category,
	league string,
	hoursLeft float64,
	status domain.MarketStatus,
) bool {
	portfolio, err := e.storage.Portfolio(ctx, userID, strat.ID(), e.cfg.StartBalance)
	if err != nil {
		slog.Error("load portfolio failed", "user", userID, "strategy", strat.ID(), "err", err)
		return false
	}
	if !portfolio.IsActive {
		return false
	}

	dec := strat.Evaluate(ctx, t, wstats)
	if !dec.ShouldBet {
		return false
	}

	outcome := t.Outcome
	signalPrice := t.Price
	if dec.OverrideOutcome != "" && !domain.MatchOutcome(dec.OverrideOutcome, t.Outcome) {
		// Estrategia inversa: apostar el lado contrario al de la whale
		outcome = dec.OverrideOutcome
		signalPrice = 1 - t.Price
	}

	if open, err := e.storage.HasOpenPosition(ctx, userID, strat.ID(), t.ConditionID); err != nil || open {
		return false
	}

	bet := e.sizer.Size(portfolio.Balance, dec.Score, cat, signalPrice, hoursLeft)
	if bet <= 0 {
		return false
	}

	entry, ok := e.preFlightPrice(ctx, t.ConditionID, outcome, signalPrice)
	if !ok {
		return false
	}

	pos := domain.Position{
		ID:          uuid.NewString(),
		UserID:      userID,
		StrategyID:  strat.ID(),
		SignalID:    sigID,
		ConditionID: t.ConditionID,
		MarketSlug:  t.Slug,
		Outcome:     outcome,
		Side:        domain.SideBuy,
		EntryPrice:  entry,
		SizeUSD:     t.ValueUSD(),
		BetAmount:   bet,
		Category:    cat,
		League:      league,
		Score:       dec.Score,
		Reason:      dec.Reason,
		CreatedAt:   e.now().UTC(),
	}
	if err := e.storage.OpenPositionAtomic(ctx, pos); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			slog.Debug("insufficient balance", "user", userID, "strategy", strat.ID(), "bet", bet)
		} else {
			slog.Error("open position failed", "user", userID, "strategy", strat.ID(), "err", err)
		}
		return false
	}

	slog.Info("position opened",
		"user", userID,
		"strategy", strat.ID(),
		"market", t.Slug,
		"outcome", outcome,
		"entry", entry,
		"bet", bet,
		"score", dec.Score,
	)
	if err := e.notifier.PositionOpened(ctx, ports.PositionEvent{
		Position: pos,
		Score:    dec.Score,
		Reason:   dec.Reason,
	}); err != nil {
		slog.Warn("open notification failed", "err", err)
	}
	return true
}

// preFlightPrice verifica el precio actual del outcome justo antes de abrir.
// Sin quote directo intenta el complementario (1 − precio del otro lado);
// sin nada de eso, usa el precio de la señal. Una deriva mayor que
// MaxPriceDrift o un precio fuera del cap aborta la apuesta.
func (e *Engine) preFlightPrice(ctx context.Context, conditionID, outcome string, signalPrice float64) (float64, bool) {
	price := signalPrice

	quote, err := e.markets.Quote(ctx, conditionID, outcome)
	if err != nil {
		if inv, invErr := e.markets.Quote(ctx, conditionID, domain.InverseOutcome(outcome)); invErr == nil {
			quote = 1 - inv
			err = nil
		}
	}
	if err == nil && domain.ValidEntryPrice(quote) {
		price = quote
	}

	if !domain.ValidEntryPrice(price) || price > e.cfg.MaxEntryPrice {
		return 0, false
	}
	if drift := price - signalPrice; drift > e.cfg.MaxPriceDrift || drift < -e.cfg.MaxPriceDrift {
		slog.Debug("pre-flight drift too large",
			"condition_id", conditionID, "signal", signalPrice, "current", price)
		return 0, false
	}
	return price, true
}

func (e *Engine) bannedSlug(slug string) bool {
	s := strings.ToLower(slug)
	for _, part := range e.cfg.BannedSlugParts {
		if part != "" && strings.Contains(s, strings.ToLower(part)) {
			return true
		}
	}
	return false
}

// placeShadowBet abre la posición virtual de data mining. Los fallos solo se
// loguean: el shadow mining nunca bloquea el flujo real.
func (e *Engine) placeShadowBet(ctx context.Context, t domain.Trade, sigID int64, cat domain.Category, league string, score int) {
	if e.cfg.ShadowBetUSD <= 0 {
		return
	}
	pos := domain.Position{
		ID:          uuid.NewString(),
		UserID:      domain.ShadowUserID,
		StrategyID:  domain.StrategyShadow,
		SignalID:    sigID,
		ConditionID: t.ConditionID,
		MarketSlug:  t.Slug,
		Outcome:     t.Outcome,
		Side:        t.Side,
		EntryPrice:  t.Price,
		SizeUSD:     t.ValueUSD(),
		BetAmount:   e.cfg.ShadowBetUSD,
		Category:    cat,
		League:      league,
		Score:       score,
		Reason:      "shadow mining",
		CreatedAt:   e.now().UTC(),
	}
	if err := e.storage.OpenPositionAtomic(ctx, pos); err != nil {
		slog.Warn("shadow bet failed", "condition_id", t.ConditionID, "err", err)
	}
}

// handleSell ejecuta el flujo de emergency exit: si una whale que seguimos
// vende el outcome que tenemos abierto, salimos al precio de su venta.
// Devuelve cuántas posiciones se cerraron.
func (e *Engine) handleSell(ctx context.Context, t domain.Trade) int {
	any, err := e.storage.AnyPositionOnCondition(ctx, t.ConditionID)
	if err != nil || !any {
		return 0
	}

	positions, err := e.storage.OpenPositionsOnCondition(ctx, t.ConditionID)
	if err != nil {
		slog.Error("load positions for sell failed", "condition_id", t.ConditionID, "err", err)
		return 0
	}

	// Stats del vendedor: solo importa si no es la whale original
	sellerStats := e.stats.Compute(ctx, t.Wallet, t.ValueUSD())
	strongSeller := sellerStats.Global.Winrate > 60 && sellerStats.Global.PnL > 5000

	exits := 0
	for _, pos := range positions {
		if !domain.MatchOutcome(pos.Outcome, t.Outcome) {
			continue
		}

		isOriginal := false
		if sig, err := e.storage.Signal(ctx, pos.SignalID); err == nil {
			isOriginal = strings.EqualFold(sig.Wallet, t.Wallet)
		}
		if !isOriginal && !strongSeller {
			continue
		}

		closed, proceeds, err := e.storage.CloseEarly(ctx, pos.ID, t.Price)
		if err != nil {
			if !errors.Is(err, domain.ErrPositionNotOpen) {
				slog.Error("emergency exit failed", "position", pos.ID, "err", err)
			}
			continue
		}
		exits++

		reason := "whale original vendió"
		if !isOriginal {
			reason = fmt.Sprintf("smart money vendiendo (winrate %.0f%%, pnl $%.0f)",
				sellerStats.Global.Winrate, sellerStats.Global.PnL)
		}
		slog.Warn("emergency exit",
			"position", pos.ID,
			"strategy", closed.StrategyID,
			"exit_price", t.Price,
			"proceeds", proceeds,
			"reason", reason,
		)
		if err := e.notifier.EmergencyExit(ctx, ports.PositionEvent{
			Position: closed,
			Payout:   proceeds,
			Reason:   reason,
		}); err != nil {
			slog.Warn("emergency exit notification failed", "err", err)
		}
	}
	return exits
}
