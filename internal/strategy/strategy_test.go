package strategy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/strategy"
)

var ctx = context.Background()

func globalStats(b domain.BucketStats) domain.WalletStats {
	return domain.WalletStats{Wallet: "0xwhale", Global: b}
}

// --- Sniper ---

func TestSniper_FollowsProvenWinner(t *testing.T) {
	s := strategy.NewSniper(strategy.DefaultSniperConfig())

	d := s.Evaluate(ctx, domain.Trade{}, globalStats(domain.BucketStats{
		PnL:               8000,
		MedianPnL:         40,
		Winrate:           68,
		WinrateLowerBound: 58,
		TotalTrades:       60,
	}))

	// 50 (LB cap) + 30 (mediana > 0) + 20 (> 50 trades) = 100
	require.True(t, d.ShouldBet)
	assert.Equal(t, 100, d.Score)
}

func TestSniper_LoserPenalty(t *testing.T) {
	s := strategy.NewSniper(strategy.DefaultSniperConfig())

	d := s.Evaluate(ctx, domain.Trade{}, globalStats(domain.BucketStats{
		PnL:               -2000,
		MedianPnL:         10,
		Winrate:           55,
		WinrateLowerBound: 48,
		TotalTrades:       30,
	}))

	// 48 + 30 + 10 - 50 (PnL negativo) = 38
	assert.False(t, d.ShouldBet)
	assert.Equal(t, 38, d.Score)
}

func TestSniper_SmallSampleBelowThreshold(t *testing.T) {
	s := strategy.NewSniper(strategy.DefaultSniperConfig())

	// 3/3 wins: winrate crudo 100 pero Wilson LB ~43.8 → no llega a 75
	lb := domain.WilsonLowerBound(3, 3, 1.96) * 100
	d := s.Evaluate(ctx, domain.Trade{}, globalStats(domain.BucketStats{
		PnL:               300,
		MedianPnL:         100,
		Winrate:           100,
		WinrateLowerBound: lb,
		TotalTrades:       3,
	}))

	assert.False(t, d.ShouldBet)
}

// --- Insider ---

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestInsider_ExtremeLongshotTriggers(t *testing.T) {
	s := strategy.NewInsider(strategy.DefaultInsiderConfig(), nil)

	d := s.Evaluate(ctx, domain.Trade{Price: 0.08, Size: 20000}, globalStats(domain.BucketStats{}))

	// $1600 @ 0.08 → +70, sin edad de wallet
	require.True(t, d.ShouldBet)
	assert.Equal(t, 70, d.Score)
}

func TestInsider_ValueBetNeedsCorroboration(t *testing.T) {
	s := strategy.NewInsider(strategy.DefaultInsiderConfig(), nil)

	// $1500 @ 0.30 → +40, por debajo del umbral 60
	d := s.Evaluate(ctx, domain.Trade{Price: 0.30, Size: 5000}, globalStats(domain.BucketStats{}))
	assert.False(t, d.ShouldBet)
	assert.Equal(t, 40, d.Score)
}

func TestInsider_FreshWalletBonus(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := strategy.NewInsider(strategy.DefaultInsiderConfig(), nil).WithClock(fixedClock(now))

	stats := globalStats(domain.BucketStats{FirstTradeAt: now.Add(-20 * time.Hour)})
	d := s.Evaluate(ctx, domain.Trade{Price: 0.30, Size: 5000}, stats)

	// 40 (value bet) + 50 (cuenta < 36h) = 90
	require.True(t, d.ShouldBet)
	assert.Equal(t, 90, d.Score)
}

type fakeOracle struct {
	balance float64
	err     error
}

func (f fakeOracle) BalanceUSD(context.Context, string) (float64, error) {
	return f.balance, f.err
}

func TestInsider_SmartMoneyRatio(t *testing.T) {
	// $1600 @ 0.08 = score base 70; balance $100k → ratio < 0.1 → +20
	s := strategy.NewInsider(strategy.DefaultInsiderConfig(), fakeOracle{balance: 100_000})
	d := s.Evaluate(ctx, domain.Trade{Price: 0.08, Size: 20000}, globalStats(domain.BucketStats{}))
	assert.Equal(t, 90, d.Score)

	// All-in: balance $1800 → ratio > 0.8 → -20
	s = strategy.NewInsider(strategy.DefaultInsiderConfig(), fakeOracle{balance: 1800})
	d = s.Evaluate(ctx, domain.Trade{Price: 0.08, Size: 20000}, globalStats(domain.BucketStats{}))
	assert.Equal(t, 50, d.Score)
}

func TestInsider_OracleFailureIgnored(t *testing.T) {
	s := strategy.NewInsider(strategy.DefaultInsiderConfig(), fakeOracle{err: errors.New("rpc down")})
	d := s.Evaluate(ctx, domain.Trade{Price: 0.08, Size: 20000}, globalStats(domain.BucketStats{}))
	assert.Equal(t, 70, d.Score)
}

func TestInsider_InvalidInputs(t *testing.T) {
	s := strategy.NewInsider(strategy.DefaultInsiderConfig(), nil)
	d := s.Evaluate(ctx, domain.Trade{Price: 0, Size: 1000}, globalStats(domain.BucketStats{}))
	assert.False(t, d.ShouldBet)
	assert.Zero(t, d.Score)
}

// --- Inverse ---

func TestInverse_FadesConsistentLoser(t *testing.T) {
	s := strategy.NewInverse(strategy.DefaultInverseConfig())

	d := s.Evaluate(ctx, domain.Trade{Outcome: "Yes"}, globalStats(domain.BucketStats{
		PnL:         -1200,
		Winrate:     28,
		TotalTrades: 25,
	}))

	require.True(t, d.ShouldBet)
	assert.Equal(t, 80, d.Score)
	assert.Equal(t, "No", d.OverrideOutcome)
}

func TestInverse_SuperBadTraderScoresHigher(t *testing.T) {
	s := strategy.NewInverse(strategy.DefaultInverseConfig())

	d := s.Evaluate(ctx, domain.Trade{Outcome: "No"}, globalStats(domain.BucketStats{
		PnL:         -5000,
		Winrate:     12,
		TotalTrades: 40,
	}))

	require.True(t, d.ShouldBet)
	assert.Equal(t, 95, d.Score)
	assert.Equal(t, "Yes", d.OverrideOutcome)
}

func TestInverse_RequiresAllThreeConditions(t *testing.T) {
	s := strategy.NewInverse(strategy.DefaultInverseConfig())

	// Perdedor pero sin muestra suficiente
	d := s.Evaluate(ctx, domain.Trade{Outcome: "Yes"}, globalStats(domain.BucketStats{
		PnL: -1200, Winrate: 20, TotalTrades: 5,
	}))
	assert.False(t, d.ShouldBet)

	// Mal winrate pero PnL no tan malo
	d = s.Evaluate(ctx, domain.Trade{Outcome: "Yes"}, globalStats(domain.BucketStats{
		PnL: -100, Winrate: 20, TotalTrades: 25,
	}))
	assert.False(t, d.ShouldBet)
}

// --- TrendSurfer ---

func TestTrendSurfer_RidesTheBand(t *testing.T) {
	s := strategy.NewTrendSurfer(strategy.DefaultTrendConfig())

	d := s.Evaluate(ctx, domain.Trade{Price: 0.50, Size: 5000}, globalStats(domain.BucketStats{
		Winrate:     58,
		TotalTrades: 20,
	}))

	// 50 + (58-50)*2 + 10 (sweet spot) + 10 ($2500 > $2000) = 86
	require.True(t, d.ShouldBet)
	assert.Equal(t, 86, d.Score)
}

func TestTrendSurfer_Filters(t *testing.T) {
	s := strategy.NewTrendSurfer(strategy.DefaultTrendConfig())
	good := domain.BucketStats{Winrate: 58, TotalTrades: 20}

	// Fuera de la banda
	assert.False(t, s.Evaluate(ctx, domain.Trade{Price: 0.85, Size: 5000}, globalStats(good)).ShouldBet)
	// Winrate insuficiente
	assert.False(t, s.Evaluate(ctx, domain.Trade{Price: 0.50, Size: 5000},
		globalStats(domain.BucketStats{Winrate: 40, TotalTrades: 20})).ShouldBet)
	// Valor insuficiente ($100)
	assert.False(t, s.Evaluate(ctx, domain.Trade{Price: 0.50, Size: 200}, globalStats(good)).ShouldBet)
	// Wallet poco activa
	assert.False(t, s.Evaluate(ctx, domain.Trade{Price: 0.50, Size: 5000},
		globalStats(domain.BucketStats{Winrate: 58, TotalTrades: 4})).ShouldBet)
}

// --- Build ---

func TestBuild_EnabledStrategies(t *testing.T) {
	cfg := strategy.DefaultConfig()
	cfg.Insider.Enabled = false

	built := strategy.Build(cfg, nil)
	require.Len(t, built, 3)

	ids := []string{built[0].ID(), built[1].ID(), built[2].ID()}
	assert.Equal(t, []string{"strategy_sniper", "strategy_inverse", "strategy_trend"}, ids)
}
