package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("Test defaults", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if cfg.Addr() != ":3001" {
			t.Errorf("Expected addr :3001, but got %s", cfg.Addr())
		}
		if len(cfg.DefaultPrizes) != 4 {
			t.Errorf("Expected 4 default prizes, but got %v", cfg.DefaultPrizes)
		}
		if cfg.RoomIdleTTL != 0 {
			t.Errorf("Expected idle eviction to be off, but got %v", cfg.RoomIdleTTL)
		}
	})

	t.Run("Test overrides", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("PRIZEROOM_DEFAULT_QUANTITIES", "10,20")
		t.Setenv("PRIZEROOM_REVEAL_DELAY", "1500ms")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if cfg.Addr() != ":9000" {
			t.Errorf("Expected addr :9000, but got %s", cfg.Addr())
		}
		if len(cfg.DefaultQuantities) != 2 || cfg.DefaultQuantities[1] != "20" {
			t.Errorf("Expected quantities [10 20], but got %v", cfg.DefaultQuantities)
		}
		if cfg.RevealDelay != 1500*time.Millisecond {
			t.Errorf("Expected reveal delay 1.5s, but got %v", cfg.RevealDelay)
		}
	})

	t.Run("Test invalid buffer", func(t *testing.T) {
		t.Setenv("PRIZEROOM_SEND_BUFFER", "0")
		if _, err := Load(); err == nil {
			t.Fatal("Expected an error for a zero send buffer, but got nil")
		}
	})

	t.Run("Test idle eviction needs a janitor interval", func(t *testing.T) {
		t.Setenv("PRIZEROOM_ROOM_IDLE_TTL", "1h")
		t.Setenv("PRIZEROOM_JANITOR_INTERVAL", "0s")
		if _, err := Load(); err == nil {
			t.Fatal("Expected an error for a zero janitor interval, but got nil")
		}

		t.Setenv("PRIZEROOM_ROOM_IDLE_TTL", "0s")
		if _, err := Load(); err != nil {
			t.Fatalf("Expected a zero interval to be fine with eviction off, but got %v", err)
		}
	})
}
