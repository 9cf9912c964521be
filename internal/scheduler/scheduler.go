// Package scheduler programa los ciclos periódicos del engine sobre cron.
// Cada job lleva un guard de reentrada: si un ciclo sigue corriendo cuando
// llega el siguiente tick, el tick se salta en vez de apilarse.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/whaletracker/engine/internal/engine"
)

// Config son las cron specs (con campo de segundos) de cada ciclo.
type Config struct {
	IngestSpec    string `yaml:"ingest_spec"`
	ResolveSpec   string `yaml:"resolve_spec"`
	NotifySpec    string `yaml:"notify_spec"`
	HeartbeatSpec string `yaml:"heartbeat_spec"`
}

// DefaultConfig devuelve la cadencia de producción: tape cada 2s,
// settlement cada 5min, notificaciones cada minuto, heartbeat cada hora.
func DefaultConfig() Config {
	return Config{
		IngestSpec:    "*/2 * * * * *",
		ResolveSpec:   "0 */5 * * * *",
		NotifySpec:    "0 * * * * *",
		HeartbeatSpec: "0 0 * * * *",
	}
}

// Scheduler es el wrapper de cron que dispara los ciclos del engine.
type Scheduler struct {
	cron *cron.Cron
	eng  *engine.Engine
	ctx  context.Context

	ingestRunning  atomic.Bool
	resolveRunning atomic.Bool
	notifyRunning  atomic.Bool
}

// New crea el scheduler sin registrar ningún job.
func New(ctx context.Context, eng *engine.Engine) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		eng:  eng,
		ctx:  ctx,
	}
}

// Register registra los cuatro ciclos con las specs dadas.
func (s *Scheduler) Register(cfg Config) error {
	if _, err := s.cron.AddFunc(cfg.IngestSpec, s.ingestJob); err != nil {
		return fmt.Errorf("scheduler.Register: ingest: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.ResolveSpec, s.resolveJob); err != nil {
		return fmt.Errorf("scheduler.Register: resolve: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.NotifySpec, s.notifyJob); err != nil {
		return fmt.Errorf("scheduler.Register: notify: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.HeartbeatSpec, s.heartbeatJob); err != nil {
		return fmt.Errorf("scheduler.Register: heartbeat: %w", err)
	}
	return nil
}

// Start arranca el cron. No bloquea.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop para el cron y espera a que terminen los jobs en curso.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// --- jobs ---

func (s *Scheduler) ingestJob() {
	if !s.ingestRunning.CompareAndSwap(false, true) {
		slog.Debug("ingest cycle still running, tick skipped")
		return
	}
	defer s.ingestRunning.Store(false)

	if _, err := s.eng.IngestCycle(s.ctx); err != nil {
		slog.Error("ingest cycle failed", "error", err)
	}
}

func (s *Scheduler) resolveJob() {
	if !s.resolveRunning.CompareAndSwap(false, true) {
		slog.Debug("resolve cycle still running, tick skipped")
		return
	}
	defer s.resolveRunning.Store(false)

	if _, err := s.eng.ResolveCycle(s.ctx); err != nil {
		slog.Error("resolve cycle failed", "error", err)
	}
}

func (s *Scheduler) notifyJob() {
	if !s.notifyRunning.CompareAndSwap(false, true) {
		return
	}
	defer s.notifyRunning.Store(false)

	if _, err := s.eng.NotifyCycle(s.ctx); err != nil {
		slog.Error("notify cycle failed", "error", err)
	}
}

func (s *Scheduler) heartbeatJob() {
	if err := s.eng.HeartbeatCycle(s.ctx); err != nil {
		slog.Error("heartbeat failed", "error", err)
	}
}
