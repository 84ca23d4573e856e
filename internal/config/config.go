package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port              string        `env:"PORT" envDefault:"3001"`
	DefaultPrizes     []string      `env:"PRIZEROOM_DEFAULT_PRIZES" envDefault:"Grand Prize,Second Prize,Third Prize,Consolation Prize" envSeparator:","`
	DefaultQuantities []string      `env:"PRIZEROOM_DEFAULT_QUANTITIES" envDefault:"1,2,3,5" envSeparator:","`
	RevealDelay       time.Duration `env:"PRIZEROOM_REVEAL_DELAY" envDefault:"0s"`
	RoomIdleTTL       time.Duration `env:"PRIZEROOM_ROOM_IDLE_TTL" envDefault:"0s"`
	JanitorInterval   time.Duration `env:"PRIZEROOM_JANITOR_INTERVAL" envDefault:"10m"`
	SendBuffer        int           `env:"PRIZEROOM_SEND_BUFFER" envDefault:"32"`
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SendBuffer <= 0 {
		return Config{}, fmt.Errorf("PRIZEROOM_SEND_BUFFER must be positive, got %d", cfg.SendBuffer)
	}
	if cfg.RoomIdleTTL > 0 && cfg.JanitorInterval <= 0 {
		return Config{}, fmt.Errorf("PRIZEROOM_JANITOR_INTERVAL must be positive when PRIZEROOM_ROOM_IDLE_TTL is set, got %v", cfg.JanitorInterval)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}
