package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRandomDraw(t *testing.T) {
	t.Run("Test picks the chosen index", func(t *testing.T) {
		got, err := RandomDraw([]string{"a", "b", "c"}, func(n int) int { return 2 })
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if got != "c" {
			t.Errorf("Expected c, but got %s", got)
		}
	})

	t.Run("Test default picker stays in range", func(t *testing.T) {
		pool := []string{"x", "y"}
		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			got, err := RandomDraw(pool, nil)
			if err != nil {
				t.Fatalf("Expected no error, but got %v", err)
			}
			seen[got] = true
		}
		if len(seen) != 2 {
			t.Errorf("Expected both values to be drawn, but saw %v", seen)
		}
	})

	t.Run("Test empty pool", func(t *testing.T) {
		if _, err := RandomDraw(nil, nil); !errors.Is(err, ErrEmptyPool) {
			t.Fatalf("Expected ErrEmptyPool, but got %v", err)
		}
	})
}

func TestRoomRegistry(t *testing.T) {
	t.Run("Test create uses defaults and copies pools", func(t *testing.T) {
		prizes := []string{"大獎"}
		registry := NewRoomRegistry(prizes, []string{"1"})
		prizes[0] = "changed"

		id, err := registry.Create(nil, []string{"3", "4"})
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if !strings.HasPrefix(id, "room_") || len(id) != len("room_")+6 {
			t.Errorf("Expected a room_ id with a 6 character suffix, but got %s", id)
		}

		room, err := registry.Get(id)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		snap := room.snapshot()
		if !equalQueue(snap.PrizePool, "大獎") || !equalQueue(snap.QuantityPool, "3", "4") {
			t.Errorf("Expected pools [大獎] [3 4], but got %v %v", snap.PrizePool, snap.QuantityPool)
		}
		if snap.DealerID != "" || len(snap.TurnQueue) != 0 || len(snap.Ledger) != 0 {
			t.Errorf("Expected an empty room, but got %+v", snap)
		}
	})

	t.Run("Test get unknown room", func(t *testing.T) {
		registry := NewRoomRegistry(nil, nil)
		if _, err := registry.Get("room_missing"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("Expected ErrRoomNotFound, but got %v", err)
		}
	})

	t.Run("Test create retries on collision", func(t *testing.T) {
		registry := NewRoomRegistry(nil, nil)
		ids := []string{"room_aaaaaa", "room_aaaaaa", "room_bbbbbb"}
		registry.newID = func() (string, error) {
			id := ids[0]
			ids = ids[1:]
			return id, nil
		}

		first, _ := registry.Create(nil, nil)
		second, err := registry.Create(nil, nil)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if first != "room_aaaaaa" || second != "room_bbbbbb" {
			t.Errorf("Expected room_aaaaaa then room_bbbbbb, but got %s %s", first, second)
		}
	})

	t.Run("Test create gives up after repeated collisions", func(t *testing.T) {
		registry := NewRoomRegistry(nil, nil)
		registry.newID = func() (string, error) { return "room_same00", nil }
		if _, err := registry.Create(nil, nil); err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if _, err := registry.Create(nil, nil); err == nil {
			t.Fatal("Expected an error when no id is free, but got nil")
		}
	})

	t.Run("Test concurrent creates are unique", func(t *testing.T) {
		registry := NewRoomRegistry(nil, nil)
		var mu sync.Mutex
		seen := make(map[string]bool)
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := registry.Create(nil, nil)
				if err != nil {
					t.Errorf("Expected no error, but got %v", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if seen[id] {
					t.Errorf("Expected unique ids, but %s repeated", id)
				}
				seen[id] = true
			}()
		}
		wg.Wait()
		if registry.Len() != 100 {
			t.Errorf("Expected 100 rooms, but got %d", registry.Len())
		}
	})

	t.Run("Test clean up idle rooms", func(t *testing.T) {
		registry := NewRoomRegistry(nil, nil)
		c := NewSessionCoordinator(registry, newRecordingPort())

		idle, _ := registry.Create(nil, nil)
		busy, _ := registry.Create(nil, nil)
		if err := c.Join(busy, "A"); err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		for _, id := range []string{idle, busy} {
			room, _ := registry.Get(id)
			room.mu.Lock()
			room.lastActivity = time.Now().Add(-2 * time.Hour)
			room.mu.Unlock()
		}

		stale, _ := registry.Get(idle)
		if removed := registry.CleanUpIdleRooms(time.Hour); removed != 1 {
			t.Fatalf("Expected 1 room removed, but got %d", removed)
		}
		if _, err := registry.Get(idle); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("Expected idle room to be gone, but got %v", err)
		}
		if _, err := registry.Get(busy); err != nil {
			t.Errorf("Expected occupied room to stay, but got %v", err)
		}
		if !stale.closed {
			t.Error("Expected evicted room to be marked closed")
		}
	})
}
