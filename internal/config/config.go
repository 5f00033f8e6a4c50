package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Mode selects the storage strategy: "standalone" (offline,
	// authoritative) or "networked" (orchestrator-backed cache).
	Mode string `env:"MODE" envDefault:"standalone"`

	// Standalone mode.
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"` // sqlite | bolt | memory
	TokensPath  string `env:"TOKENS_PATH" envDefault:"data/tokens.json"`

	// Networked mode.
	OrchestratorURL string `env:"ORCHESTRATOR_URL" envDefault:"ws://localhost:3000/ws"`

	// DeviceID identifies this station in transactions and broadcasts.
	DeviceID string `env:"DEVICE_ID" envDefault:"GM_STATION_1"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
