package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/engine"
	"github.com/whaletracker/engine/internal/ports"
	"github.com/whaletracker/engine/internal/scoring"
	"github.com/whaletracker/engine/internal/sizing"
	"github.com/whaletracker/engine/internal/stats"
	"github.com/whaletracker/engine/internal/strategy"
)

// --- fakes ---

type memStorage struct {
	mu         sync.Mutex
	signals    map[int64]domain.Signal
	byHash     map[string]int64
	nextSigID  int64
	positions  map[string]domain.Position
	portfolios map[string]*domain.Portfolio
	users      []int64
	lookupErr  error // si está seteado, el próximo SignalExists falla una vez
}

func newMemStorage(users ...int64) *memStorage {
	return &memStorage{
		signals:    make(map[int64]domain.Signal),
		byHash:     make(map[string]int64),
		positions:  make(map[string]domain.Position),
		portfolios: make(map[string]*domain.Portfolio),
		users:      users,
	}
}

func pkey(userID int64, strategyID string) string {
	return fmt.Sprintf("%d/%s", userID, strategyID)
}

func (m *memStorage) Ping(context.Context) error { return nil }
func (m *memStorage) Close() error               { return nil }

func (m *memStorage) SignalExists(_ context.Context, txHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		err := m.lookupErr
		m.lookupErr = nil
		return false, err
	}
	_, ok := m.byHash[txHash]
	return ok, nil
}

func (m *memStorage) SaveSignal(_ context.Context, sig domain.Signal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHash[sig.TransactionHash]; ok {
		return 0, domain.ErrDuplicateSignal
	}
	m.nextSigID++
	sig.ID = m.nextSigID
	sig.Status = domain.StatusOpen
	m.signals[sig.ID] = sig
	m.byHash[sig.TransactionHash] = sig.ID
	return sig.ID, nil
}

func (m *memStorage) Signal(_ context.Context, id int64) (domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sig, ok := m.signals[id]
	if !ok {
		return domain.Signal{}, fmt.Errorf("signal %d not found", id)
	}
	return sig, nil
}

func (m *memStorage) PendingSignals(context.Context) ([]domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Signal
	for _, sig := range m.signals {
		if sig.Status == domain.StatusOpen {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (m *memStorage) UpdateSignalResult(_ context.Context, id int64, status string, pnl *float64, resolved string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sig := m.signals[id]
	sig.Status = status
	sig.ResultPnLPct = pnl
	sig.ResolvedOutcome = resolved
	m.signals[id] = sig
	return nil
}

func (m *memStorage) HasOpenPosition(_ context.Context, userID int64, strategyID, conditionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pos := range m.positions {
		if pos.UserID == userID && pos.StrategyID == strategyID &&
			pos.ConditionID == conditionID && pos.Status == domain.StatusOpen {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStorage) OpenPositionAtomic(_ context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pos.StrategyID != domain.StrategyShadow {
		p, ok := m.portfolios[pkey(pos.UserID, pos.StrategyID)]
		if !ok {
			return fmt.Errorf("portfolio %d/%s not found", pos.UserID, pos.StrategyID)
		}
		if p.Balance < pos.BetAmount {
			return domain.ErrInsufficientBalance
		}
		p.Balance -= pos.BetAmount
		p.Locked += pos.BetAmount
	}
	pos.Status = domain.StatusOpen
	m.positions[pos.ID] = pos
	return nil
}

func (m *memStorage) openByFilter(keep func(domain.Position) bool) []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, pos := range m.positions {
		if pos.Status == domain.StatusOpen && keep(pos) {
			out = append(out, pos)
		}
	}
	return out
}

func (m *memStorage) OpenPositions(context.Context) ([]domain.Position, error) {
	return m.openByFilter(func(p domain.Position) bool {
		return p.StrategyID != domain.StrategyShadow
	}), nil
}

func (m *memStorage) OpenShadowPositions(_ context.Context, limit int) ([]domain.Position, error) {
	out := m.openByFilter(func(p domain.Position) bool {
		return p.StrategyID == domain.StrategyShadow
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStorage) AnyPositionOnCondition(_ context.Context, conditionID string) (bool, error) {
	out := m.openByFilter(func(p domain.Position) bool {
		return p.ConditionID == conditionID && p.StrategyID != domain.StrategyShadow
	})
	return len(out) > 0, nil
}

func (m *memStorage) OpenPositionsOnCondition(_ context.Context, conditionID string) ([]domain.Position, error) {
	return m.openByFilter(func(p domain.Position) bool {
		return p.ConditionID == conditionID && p.StrategyID != domain.StrategyShadow
	}), nil
}

func (m *memStorage) closeLocked(id string, status string, exit *float64, pnl *float64, resolved string, credit float64) error {
	pos, ok := m.positions[id]
	if !ok || pos.Status != domain.StatusOpen {
		return domain.ErrPositionNotOpen
	}
	pos.Status = status
	pos.ExitPrice = exit
	pos.ResultPnLPct = pnl
	pos.ResolvedOutcome = resolved
	now := time.Now()
	pos.ClosedAt = &now
	m.positions[id] = pos

	if pos.StrategyID != domain.StrategyShadow {
		if p, ok := m.portfolios[pkey(pos.UserID, pos.StrategyID)]; ok {
			p.Balance += credit
			p.Locked -= pos.BetAmount
		}
	}
	return nil
}

func (m *memStorage) SettlePosition(_ context.Context, id string, exitPrice float64, resolved string, roiPct, payout float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked(id, domain.StatusClosed, &exitPrice, &roiPct, resolved, payout)
}

func (m *memStorage) SettleVoid(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.positions[id]
	zero := 0.0
	return m.closeLocked(id, domain.StatusClosedVoid, nil, &zero, "", pos.BetAmount)
}

func (m *memStorage) CloseEarly(_ context.Context, id string, exitPrice float64) (domain.Position, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok || pos.Status != domain.StatusOpen {
		return domain.Position{}, 0, domain.ErrPositionNotOpen
	}
	proceeds := domain.Payout(pos.BetAmount, pos.EntryPrice, exitPrice)
	pnl := (proceeds - pos.BetAmount) / pos.BetAmount * 100
	if err := m.closeLocked(id, domain.StatusClosed, &exitPrice, &pnl, "EARLY_EXIT", proceeds); err != nil {
		return domain.Position{}, 0, err
	}
	return m.positions[id], proceeds, nil
}

func (m *memStorage) MarkPositionError(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.positions[id]
	zero := 0.0
	return m.closeLocked(id, domain.StatusError, nil, &zero, "", pos.BetAmount)
}

func (m *memStorage) Portfolio(_ context.Context, userID int64, strategyID string, startBalance float64) (domain.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pkey(userID, strategyID)
	if p, ok := m.portfolios[key]; ok {
		return *p, nil
	}
	p := &domain.Portfolio{UserID: userID, StrategyID: strategyID, Balance: startBalance, IsActive: true}
	m.portfolios[key] = p
	return *p, nil
}

func (m *memStorage) UpdatePortfolio(_ context.Context, userID int64, strategyID string, balanceDelta, lockedDelta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.portfolios[pkey(userID, strategyID)]; ok {
		p.Balance += balanceDelta
		p.Locked += lockedDelta
	}
	return nil
}

func (m *memStorage) ResetPortfolio(_ context.Context, userID int64, strategyID string, startBalance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios[pkey(userID, strategyID)] = &domain.Portfolio{
		UserID: userID, StrategyID: strategyID, Balance: startBalance, IsActive: true,
	}
	return nil
}

func (m *memStorage) SetStrategyActive(_ context.Context, userID int64, strategyID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.portfolios[pkey(userID, strategyID)]; ok {
		p.IsActive = active
	}
	return nil
}

func (m *memStorage) ActiveUsers(context.Context) ([]int64, error) {
	return m.users, nil
}

func (m *memStorage) UnnotifiedSettled(context.Context) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, pos := range m.positions {
		if pos.StrategyID == domain.StrategyShadow {
			continue
		}
		if pos.Status == domain.StatusClosed || pos.Status == domain.StatusClosedVoid {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (m *memStorage) MarkNotified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, id)
	return nil
}

func (m *memStorage) StrategyReport(context.Context, int) ([]domain.StrategyPerformance, error) {
	return nil, nil
}
func (m *memStorage) OddsBucketReport(context.Context, int) ([]domain.OddsBucketPerformance, error) {
	return nil, nil
}
func (m *memStorage) CategoryReport(context.Context, int) ([]domain.CategoryPerformance, error) {
	return nil, nil
}

type fakeFeed struct {
	trades []domain.Trade
}

func (f *fakeFeed) RecentTrades(context.Context, int) ([]domain.Trade, error) {
	return f.trades, nil
}

type fakeMarkets struct {
	statuses map[string]domain.MarketStatus
	quotes   map[string]float64
}

func (f *fakeMarkets) Status(_ context.Context, conditionID string) (domain.MarketStatus, error) {
	status, ok := f.statuses[conditionID]
	if !ok {
		return domain.MarketStatus{}, domain.ErrMarketNotFound
	}
	return status, nil
}

func (f *fakeMarkets) Quote(_ context.Context, conditionID, outcome string) (float64, error) {
	q, ok := f.quotes[conditionID+"/"+strings.ToLower(outcome)]
	if !ok {
		return 0, domain.ErrNoQuote
	}
	return q, nil
}

type fakeHistory struct {
	positions map[string][]domain.ClosedPosition
}

func (f *fakeHistory) ClosedPositions(_ context.Context, wallet string) ([]domain.ClosedPosition, error) {
	return f.positions[strings.ToLower(wallet)], nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	opened  []ports.PositionEvent
	settled []ports.PositionEvent
	exits   []ports.PositionEvent
	beats   int
}

func (f *fakeNotifier) PositionOpened(_ context.Context, ev ports.PositionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, ev)
	return nil
}

func (f *fakeNotifier) PositionSettled(_ context.Context, ev ports.PositionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, ev)
	return nil
}

func (f *fakeNotifier) EmergencyExit(_ context.Context, ev ports.PositionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits = append(f.exits, ev)
	return nil
}

func (f *fakeNotifier) Heartbeat(_ context.Context, _ []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beats++
	return nil
}

// --- fixtures ---

// strongTrackRecord: 41 wins de 51 trades con median positiva. Suficiente
// para que el sniper supere su umbral.
func strongTrackRecord() []domain.ClosedPosition {
	var out []domain.ClosedPosition
	for i := 0; i < 41; i++ {
		out = append(out, domain.ClosedPosition{Profit: 120, Bought: 300, Category: domain.CategoryPolitics})
	}
	for i := 0; i < 10; i++ {
		out = append(out, domain.ClosedPosition{Profit: -40, Bought: 300, Category: domain.CategoryPolitics})
	}
	return out
}

func whaleTrade(hash string) domain.Trade {
	return domain.Trade{
		TransactionHash: hash,
		Wallet:          "0xWhale",
		ConditionID:     "0xc1",
		Outcome:         "Yes",
		Side:            domain.SideBuy,
		Price:           0.45,
		Size:            2500, // $1125
		Timestamp:       time.Now().Add(-5 * time.Second),
		Title:           "Will the bill pass the senate?",
		Slug:            "bill-pass-senate",
	}
}

type fixture struct {
	eng     *engine.Engine
	store   *memStorage
	feed    *fakeFeed
	markets *fakeMarkets
	notes   *fakeNotifier
}

func newFixture(t *testing.T, trades ...domain.Trade) *fixture {
	t.Helper()

	store := newMemStorage(1)
	feed := &fakeFeed{trades: trades}
	markets := &fakeMarkets{
		statuses: map[string]domain.MarketStatus{
			"0xc1": {
				ConditionID: "0xc1",
				Tokens: []domain.MarketToken{
					{TokenID: "t1", Outcome: "Yes", Price: 0.45},
					{TokenID: "t2", Outcome: "No", Price: 0.55},
				},
				EndDate: time.Now().Add(6 * time.Hour),
			},
		},
		quotes: map[string]float64{"0xc1/yes": 0.45, "0xc1/no": 0.55},
	}
	history := &fakeHistory{positions: map[string][]domain.ClosedPosition{
		"0xwhale": strongTrackRecord(),
	}}
	notes := &fakeNotifier{}

	eng := engine.New(engine.DefaultConfig(), engine.Deps{
		Storage:    store,
		Feed:       feed,
		Markets:    markets,
		Stats:      stats.NewAggregator(history),
		Scorer:     scoring.NewScorer(scoring.DefaultConfig()),
		Strategies: []strategy.Strategy{strategy.NewSniper(strategy.DefaultSniperConfig())},
		Sizer:      sizing.NewSizer(sizing.DefaultConfig()),
		Notifier:   notes,
	})
	return &fixture{eng: eng, store: store, feed: feed, markets: markets, notes: notes}
}

// --- tests ---

func TestIngestCycle_StrongWhaleOpensPosition(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))

	res, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Signals)
	assert.Equal(t, 1, res.Bets)

	// Señal + shadow bet + posición real del sniper
	shadow, err := fx.store.OpenShadowPositions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, shadow, 1)
	assert.InDelta(t, 10.0, shadow[0].BetAmount, 0.001)

	open, err := fx.store.OpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "strategy_sniper", open[0].StrategyID)
	assert.Equal(t, "Yes", open[0].Outcome)

	// El portfolio quedó debitado
	p, err := fx.store.Portfolio(context.Background(), 1, "strategy_sniper", 1000)
	require.NoError(t, err)
	assert.InDelta(t, 1000, p.Balance+p.Locked, 0.001)
	assert.Positive(t, p.Locked)

	require.Len(t, fx.notes.opened, 1)
}

func TestIngestCycle_DedupByHash(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"), whaleTrade("0xaaa"))

	res, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Signals)

	// Segundo ciclo con el mismo tape: nada nuevo
	res, err = fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Signals)
	assert.Zero(t, res.Bets)
}

func TestIngestCycle_StorageErrorDoesNotBurnHash(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	fx.store.lookupErr = errors.New("database is locked")

	// El lookup falla: el trade se descarta este ciclo sin quemar el hash.
	res, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Signals)

	// Mismo tape en el ciclo siguiente: ahora sí se persiste la señal.
	res, err = fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Signals)
}

func TestIngestCycle_Filters(t *testing.T) {
	caro := whaleTrade("0xcaro")
	caro.Price = 0.80 // favorito sin edge

	viejo := whaleTrade("0xviejo")
	viejo.Timestamp = time.Now().Add(-5 * time.Minute)

	chico := whaleTrade("0xchico")
	chico.Size = 50 // $22.50

	banned := whaleTrade("0xbanned")
	banned.Slug = "btc-updown-15m-0800"

	fx := newFixture(t, caro, viejo, chico, banned)
	res, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Signals)
	assert.Zero(t, res.Bets)
}

func TestIngestCycle_FarMarketRejected(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	status := fx.markets.statuses["0xc1"]
	status.EndDate = time.Now().Add(72 * time.Hour)
	fx.markets.statuses["0xc1"] = status

	res, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Signals)
}

func TestIngestCycle_PauseBlocksBetsNotSignals(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	fx.eng.Pause()

	res, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	// El mining sigue: señal y shadow bet guardadas, sin posición real
	assert.Equal(t, 1, res.Signals)
	assert.Zero(t, res.Bets)

	open, _ := fx.store.OpenPositions(context.Background())
	assert.Empty(t, open)
	shadow, _ := fx.store.OpenShadowPositions(context.Background(), 10)
	assert.Len(t, shadow, 1)
}

func TestIngestCycle_OriginalWhaleSellExitsPosition(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	_, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	sell := whaleTrade("0xbbb")
	sell.Side = domain.SideSell
	sell.Price = 0.38
	fx.feed.trades = []domain.Trade{sell}

	res, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Exits)

	open, _ := fx.store.OpenPositions(context.Background())
	assert.Empty(t, open)
	require.Len(t, fx.notes.exits, 1)
	assert.Contains(t, fx.notes.exits[0].Reason, "original")
}

func TestResolveCycle_WinnerPaysAndClosesSignal(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	_, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	// El mercado resuelve Yes
	fx.markets.statuses["0xc1"] = domain.MarketStatus{
		ConditionID: "0xc1",
		Closed:      true,
		Tokens: []domain.MarketToken{
			{TokenID: "t1", Outcome: "Yes", Winner: true, Price: 1.0},
			{TokenID: "t2", Outcome: "No", Price: 0.0},
		},
	}

	res, err := fx.eng.ResolveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Settled) // posición real + shadow bet
	assert.Zero(t, res.Pending)

	// El balance creció: payout > stake con entry 0.45 y exit 1.0
	p, _ := fx.store.Portfolio(context.Background(), 1, "strategy_sniper", 1000)
	assert.Greater(t, p.Balance, 1000.0)
	assert.Zero(t, p.Locked)

	// La señal pasó a CLOSED con ROI positivo
	sig, err := fx.store.Signal(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, sig.Status)
	require.NotNil(t, sig.ResultPnLPct)
	assert.Positive(t, *sig.ResultPnLPct)
}

func TestResolveCycle_VoidRefundsStake(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	_, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	fx.markets.statuses["0xc1"] = domain.MarketStatus{
		ConditionID: "0xc1",
		Closed:      true,
		Void:        true,
		Tokens: []domain.MarketToken{
			{TokenID: "t1", Outcome: "Yes", Price: 0.5},
			{TokenID: "t2", Outcome: "No", Price: 0.5},
		},
	}

	res, err := fx.eng.ResolveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Voided)

	p, _ := fx.store.Portfolio(context.Background(), 1, "strategy_sniper", 1000)
	assert.InDelta(t, 1000, p.Balance, 0.001)
	assert.Zero(t, p.Locked)
}

func TestResolveCycle_VanishedMarketReleasesFunds(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	_, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	delete(fx.markets.statuses, "0xc1")

	res, err := fx.eng.ResolveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Errored)

	p, _ := fx.store.Portfolio(context.Background(), 1, "strategy_sniper", 1000)
	assert.InDelta(t, 1000, p.Balance, 0.001)
	assert.Zero(t, p.Locked)

	sig, _ := fx.store.Signal(context.Background(), 1)
	assert.Equal(t, domain.StatusError, sig.Status)
}

func TestNotifyCycle_DeliversAndMarks(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	_, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	fx.markets.statuses["0xc1"] = domain.MarketStatus{
		ConditionID: "0xc1",
		Closed:      true,
		Tokens: []domain.MarketToken{
			{TokenID: "t1", Outcome: "Yes", Winner: true, Price: 1.0},
			{TokenID: "t2", Outcome: "No", Price: 0.0},
		},
	}
	_, err = fx.eng.ResolveCycle(context.Background())
	require.NoError(t, err)

	sent, err := fx.eng.NotifyCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, fx.notes.settled, 1)
	assert.Positive(t, fx.notes.settled[0].Payout)

	// Segundo ciclo: nada pendiente
	sent, err = fx.eng.NotifyCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestEquityReport_ValuesAtCurrentQuote(t *testing.T) {
	fx := newFixture(t, whaleTrade("0xaaa"))
	_, err := fx.eng.IngestCycle(context.Background())
	require.NoError(t, err)

	// Quote == entry: la posición vale su costo, la equity total es el
	// balance inicial.
	rows, err := fx.eng.EquityReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "strategy_sniper", rows[0].StrategyID)
	assert.InDelta(t, 1000, rows[0].Equity, 0.01)

	// El quote sube a 0.90: shares × 0.90 = bet/0.45 × 0.90 = 2× el stake.
	fx.markets.quotes["0xc1/yes"] = 0.90
	rows, err = fx.eng.EquityReport(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, rows[0].Balance+2*rows[0].Locked, rows[0].Equity, 0.01)
}

func TestSelfTest(t *testing.T) {
	fx := newFixture(t)
	assert.NoError(t, fx.eng.SelfTest(context.Background()))
}
