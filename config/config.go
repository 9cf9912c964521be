// Package config carga la configuración del bot desde YAML + .env.
// El YAML se aplica sobre los defaults de cada paquete, así un archivo
// parcial solo pisa lo que menciona.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/whaletracker/engine/internal/engine"
	"github.com/whaletracker/engine/internal/scheduler"
	"github.com/whaletracker/engine/internal/scoring"
	"github.com/whaletracker/engine/internal/sizing"
	"github.com/whaletracker/engine/internal/strategy"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine     engine.Config    `yaml:"engine"`
	Scoring    scoring.Config   `yaml:"scoring"`
	Strategies strategy.Config  `yaml:"strategies"`
	Sizing     sizing.Config    `yaml:"sizing"`
	Scheduler  scheduler.Config `yaml:"scheduler"`
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Log        LogConfig        `yaml:"log"`
}

// APIConfig contiene los base URLs de las APIs del venue.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	DataBase  string `yaml:"data_base"`
	GammaBase string `yaml:"gamma_base"`
	StreamURL string `yaml:"stream_url"` // vacío: polling puro, sin websocket
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// TelegramConfig habilita el canal de notificaciones de Telegram.
// Token o chat id vacíos degradan a consola solamente.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default devuelve la configuración de producción completa.
func Default() *Config {
	return &Config{
		Engine:     engine.DefaultConfig(),
		Scoring:    scoring.DefaultConfig(),
		Strategies: strategy.DefaultConfig(),
		Sizing:     sizing.DefaultConfig(),
		Scheduler:  scheduler.DefaultConfig(),
		Storage:    StorageConfig{DSN: "whaletracker.db"},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. El YAML pisa los defaults; el .env pisa al YAML para las keys
// soportadas. Un path vacío devuelve los defaults con overrides de entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos
// incluso si el YAML los dejó en blanco.
func setDefaults(cfg *Config) {
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "whaletracker.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Scheduler.IngestSpec == "" {
		cfg.Scheduler = scheduler.DefaultConfig()
	}
}
