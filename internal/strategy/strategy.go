// Package strategy define las políticas intercambiables que convierten un
// (trade, stats) en una decisión de apuesta. Las estrategias son stateless:
// el bookkeeping por (usuario, estrategia) vive aislado en storage.
package strategy

import (
	"context"

	"github.com/whaletracker/engine/internal/domain"
)

// Decision es el resultado de evaluar un trade con una estrategia.
type Decision struct {
	ShouldBet       bool
	Score           int
	Reason          string
	OverrideOutcome string // no vacío: apostar a este outcome en vez del de la señal
}

// Strategy es una política de evaluación independiente. El engine ejecuta
// todas las estrategias activas por (usuario, trade) de forma aislada.
type Strategy interface {
	ID() string
	Name() string
	Evaluate(ctx context.Context, trade domain.Trade, stats domain.WalletStats) Decision
}

// Config habilita estrategias y sus parámetros.
type Config struct {
	Sniper  SniperConfig  `yaml:"sniper"`
	Insider InsiderConfig `yaml:"insider"`
	Inverse InverseConfig `yaml:"inverse"`
	Trend   TrendConfig   `yaml:"trend"`
}

// DefaultConfig habilita las cuatro estrategias con el tuning observado.
func DefaultConfig() Config {
	return Config{
		Sniper:  DefaultSniperConfig(),
		Insider: DefaultInsiderConfig(),
		Inverse: DefaultInverseConfig(),
		Trend:   DefaultTrendConfig(),
	}
}

// Build construye las estrategias habilitadas. El oracle puede ser nil:
// el Insider degrada a su señal base sin chequeo de balance.
func Build(cfg Config, oracle BalanceOracle) []Strategy {
	var out []Strategy
	if cfg.Sniper.Enabled {
		out = append(out, NewSniper(cfg.Sniper))
	}
	if cfg.Insider.Enabled {
		out = append(out, NewInsider(cfg.Insider, oracle))
	}
	if cfg.Inverse.Enabled {
		out = append(out, NewInverse(cfg.Inverse))
	}
	if cfg.Trend.Enabled {
		out = append(out, NewTrendSurfer(cfg.Trend))
	}
	return out
}

// BalanceOracle es el subconjunto de ports.BalanceOracle que usa el Insider.
// Redeclarado aquí para no acoplar el paquete a ports.
type BalanceOracle interface {
	BalanceUSD(ctx context.Context, wallet string) (float64, error)
}
