package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/whaletracker/engine/config"
	"github.com/whaletracker/engine/internal/adapters/notify"
	"github.com/whaletracker/engine/internal/adapters/polymarket"
	"github.com/whaletracker/engine/internal/adapters/storage"
	"github.com/whaletracker/engine/internal/engine"
	"github.com/whaletracker/engine/internal/scheduler"
	"github.com/whaletracker/engine/internal/scoring"
	"github.com/whaletracker/engine/internal/sizing"
	"github.com/whaletracker/engine/internal/stats"
	"github.com/whaletracker/engine/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one ingest+resolve cycle and exit")
	report := flag.Bool("report", false, "print performance reports and exit")
	days := flag.Int("days", 30, "report window in days")
	reset := flag.String("reset", "", "reset a portfolio to its starting balance: userID/strategyID")
	activate := flag.String("activate", "", "reactivate a strategy: userID/strategyID")
	deactivate := flag.String("deactivate", "", "pause a strategy: userID/strategyID")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *reset != "" || *activate != "" || *deactivate != "" {
		runAdmin(ctx, store, cfg.Engine.StartBalance, *reset, *activate, *deactivate)
		return
	}

	console := notify.NewConsole()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.DataBase, cfg.API.GammaBase)
	feed := polymarket.NewFeed(client, cfg.Engine.MinTradeValueUSD)
	markets := polymarket.NewMarkets(client)
	history := polymarket.NewHistory(client)
	balances := polymarket.NewBalances(client)

	var notifier = notify.NewMulti(console)
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = notify.NewMulti(console, notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, ""))
		slog.Info("telegram notifications enabled")
	}

	eng := engine.New(cfg.Engine, engine.Deps{
		Storage:    store,
		Feed:       feed,
		Markets:    markets,
		Stats:      stats.NewAggregator(history),
		Scorer:     scoring.NewScorer(cfg.Scoring),
		Strategies: strategy.Build(cfg.Strategies, balances),
		Sizer:      sizing.NewSizer(cfg.Sizing),
		Notifier:   notifier,
	})

	if *report {
		runReports(ctx, eng, store, console, *days)
		return
	}

	slog.Info("whale tracker starting",
		"config", *configPath,
		"dsn", cfg.Storage.DSN,
		"stream", cfg.API.StreamURL != "",
		"once", *once,
	)

	if err := eng.SelfTest(ctx); err != nil {
		slog.Error("self-test failed", "err", err)
		os.Exit(1)
	}

	if *once {
		runOnce(ctx, eng)
		return
	}

	sched := scheduler.New(ctx, eng)
	if err := sched.Register(cfg.Scheduler); err != nil {
		slog.Error("failed to register jobs", "err", err)
		os.Exit(1)
	}
	sched.Start()

	// El websocket es un acelerador del polling, no un reemplazo: ambos
	// caminos pasan por el mismo guard de dedup.
	if cfg.API.StreamURL != "" {
		stream := polymarket.NewStream(cfg.API.StreamURL)
		go stream.Run(ctx)
		go func() {
			for t := range stream.Trades() {
				eng.ProcessLiveTrade(ctx, t)
			}
		}()
	}

	<-ctx.Done()
	sched.Stop()
	slog.Info("whale tracker stopped cleanly")
}

func runOnce(ctx context.Context, eng *engine.Engine) {
	if _, err := eng.IngestCycle(ctx); err != nil {
		slog.Error("ingest cycle failed", "err", err)
		os.Exit(1)
	}
	if _, err := eng.ResolveCycle(ctx); err != nil {
		slog.Error("resolve cycle failed", "err", err)
		os.Exit(1)
	}
	if _, err := eng.NotifyCycle(ctx); err != nil {
		slog.Error("notify cycle failed", "err", err)
		os.Exit(1)
	}
}

func runReports(ctx context.Context, eng *engine.Engine, store *storage.SQLiteStorage, console *notify.Console, days int) {
	strategies, err := store.StrategyReport(ctx, days)
	if err != nil {
		slog.Error("strategy report failed", "err", err)
		os.Exit(1)
	}
	console.PrintStrategyReport(strategies, days)

	odds, err := store.OddsBucketReport(ctx, days)
	if err != nil {
		slog.Error("odds report failed", "err", err)
		os.Exit(1)
	}
	console.PrintOddsReport(odds, days)

	categories, err := store.CategoryReport(ctx, days)
	if err != nil {
		slog.Error("category report failed", "err", err)
		os.Exit(1)
	}
	console.PrintCategoryReport(categories, days)

	equity, err := eng.EquityReport(ctx)
	if err != nil {
		slog.Error("equity report failed", "err", err)
		os.Exit(1)
	}
	console.PrintEquityReport(equity)
}

func runAdmin(ctx context.Context, store *storage.SQLiteStorage, startBalance float64, reset, activate, deactivate string) {
	if reset != "" {
		userID, strategyID, err := parseOwner(reset)
		if err != nil {
			slog.Error("invalid -reset value", "err", err)
			os.Exit(1)
		}
		if err := store.ResetPortfolio(ctx, userID, strategyID, startBalance); err != nil {
			slog.Error("reset failed", "err", err)
			os.Exit(1)
		}
		slog.Info("portfolio reset", "user", userID, "strategy", strategyID, "balance", startBalance)
	}
	if activate != "" {
		toggleStrategy(ctx, store, activate, true)
	}
	if deactivate != "" {
		toggleStrategy(ctx, store, deactivate, false)
	}
}

func toggleStrategy(ctx context.Context, store *storage.SQLiteStorage, target string, active bool) {
	userID, strategyID, err := parseOwner(target)
	if err != nil {
		slog.Error("invalid strategy target", "err", err)
		os.Exit(1)
	}
	if err := store.SetStrategyActive(ctx, userID, strategyID, active); err != nil {
		slog.Error("set strategy active failed", "err", err)
		os.Exit(1)
	}
	slog.Info("strategy toggled", "user", userID, "strategy", strategyID, "active", active)
}

// parseOwner parsea "userID/strategyID".
func parseOwner(s string) (int64, string, error) {
	userStr, strategyID, ok := strings.Cut(s, "/")
	if !ok || strategyID == "" {
		return 0, "", fmt.Errorf("expected userID/strategyID, got %q", s)
	}
	userID, err := strconv.ParseInt(userStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid user id %q: %w", userStr, err)
	}
	return userID, strategyID, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
