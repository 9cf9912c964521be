package scheduler

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSpecsAreValid(t *testing.T) {
	parser := cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)
	cfg := DefaultConfig()
	for name, spec := range map[string]string{
		"ingest":    cfg.IngestSpec,
		"resolve":   cfg.ResolveSpec,
		"notify":    cfg.NotifySpec,
		"heartbeat": cfg.HeartbeatSpec,
	} {
		_, err := parser.Parse(spec)
		assert.NoError(t, err, "spec %s", name)
	}
}

func TestRegisterRejectsInvalidSpec(t *testing.T) {
	s := New(context.Background(), nil)
	cfg := DefaultConfig()
	cfg.IngestSpec = "cada dos segundos"
	err := s.Register(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest")
}

func TestReentryGuard(t *testing.T) {
	s := New(context.Background(), nil)

	// Primer claim gana, el segundo tick se salta.
	require.True(t, s.ingestRunning.CompareAndSwap(false, true))
	assert.False(t, s.ingestRunning.CompareAndSwap(false, true))
	s.ingestRunning.Store(false)
	assert.True(t, s.ingestRunning.CompareAndSwap(false, true))
}
