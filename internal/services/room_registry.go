package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"prizeroom/internal/models"

	"github.com/google/logger"
)

const (
	roomIDPrefix   = "room_"
	roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	roomIDLength   = 6
	roomIDAttempts = 16
)

// Room holds the state of a single session. All fields are guarded by mu,
// and only the SessionCoordinator mutates them.
type Room struct {
	mu sync.Mutex

	id           string
	dealerID     string
	participants map[string]*models.Participant
	turnQueue    []string
	prizePool    []string
	quantityPool []string
	pending      models.PendingTurn
	ledger       []models.LedgerEntry
	lastActivity time.Time
	// closed is set when the janitor evicts the room while a caller still
	// holds a reference to it.
	closed bool
}

func newRoom(id string, prizes, quantities []string) *Room {
	return &Room{
		id:           id,
		participants: make(map[string]*models.Participant),
		turnQueue:    make([]string, 0),
		prizePool:    append([]string(nil), prizes...),
		quantityPool: append([]string(nil), quantities...),
		ledger:       make([]models.LedgerEntry, 0),
		lastActivity: time.Now(),
	}
}

func (r *Room) pool(axis models.Axis) []string {
	if axis == models.AxisPrize {
		return r.prizePool
	}
	return r.quantityPool
}

func (r *Room) front() string {
	if len(r.turnQueue) == 0 {
		return ""
	}
	return r.turnQueue[0]
}

func (r *Room) removeFromQueue(connectionID string) {
	for i, id := range r.turnQueue {
		if id == connectionID {
			r.turnQueue = append(r.turnQueue[:i:i], r.turnQueue[i+1:]...)
			return
		}
	}
}

func (r *Room) hasLedgerName(name string) bool {
	for _, e := range r.ledger {
		if e.Name == name {
			return true
		}
	}
	return false
}

// nameHolder returns the participant other than except holding name, if any.
func (r *Room) nameHolder(name, except string) (string, bool) {
	for id, p := range r.participants {
		if id != except && p.DisplayName == name {
			return id, true
		}
	}
	return "", false
}

// snapshot copies the room state. The caller must hold mu.
func (r *Room) snapshot() models.RoomSnapshot {
	participants := make([]models.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, *p)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ConnectionID < participants[j].ConnectionID
	})

	return models.RoomSnapshot{
		ID:           r.id,
		DealerID:     r.dealerID,
		Participants: participants,
		TurnQueue:    append(make([]string, 0, len(r.turnQueue)), r.turnQueue...),
		PrizePool:    append(make([]string, 0, len(r.prizePool)), r.prizePool...),
		QuantityPool: append(make([]string, 0, len(r.quantityPool)), r.quantityPool...),
		Ledger:       append(make([]models.LedgerEntry, 0, len(r.ledger)), r.ledger...),
		Turn: models.TurnProgress{
			PlayerID:      r.pending.PlayerID,
			PrizeDrawn:    r.pending.PrizeDrawn,
			QuantityDrawn: r.pending.QuantityDrawn,
		},
	}
}

// RoomRegistry maps room identifiers to rooms.
type RoomRegistry struct {
	mu                sync.RWMutex
	rooms             map[string]*Room
	defaultPrizes     []string
	defaultQuantities []string
	newID             func() (string, error)
}

// NewRoomRegistry creates a registry whose rooms start with the given pools.
func NewRoomRegistry(defaultPrizes, defaultQuantities []string) *RoomRegistry {
	return &RoomRegistry{
		rooms:             make(map[string]*Room),
		defaultPrizes:     append([]string(nil), defaultPrizes...),
		defaultQuantities: append([]string(nil), defaultQuantities...),
		newID:             generateRoomID,
	}
}

// generateRoomID returns "room_" followed by a random lowercase alphanumeric suffix.
func generateRoomID() (string, error) {
	suffix := make([]byte, roomIDLength)
	base := big.NewInt(int64(len(roomIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		suffix[i] = roomIDAlphabet[n.Int64()]
	}
	return roomIDPrefix + string(suffix), nil
}

// Create allocates a new room. Empty pools fall back to the registry defaults.
func (s *RoomRegistry) Create(prizes, quantities []string) (string, error) {
	if len(prizes) == 0 {
		prizes = s.defaultPrizes
	}
	if len(quantities) == 0 {
		quantities = s.defaultQuantities
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < roomIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if _, exists := s.rooms[id]; exists {
			logger.Warningf("room id collision on %s, retrying", id)
			continue
		}
		s.rooms[id] = newRoom(id, prizes, quantities)
		logger.Infof("New room created: %s", id)
		return id, nil
	}
	return "", fmt.Errorf("create room: no free id after %d attempts", roomIDAttempts)
}

// Get returns the room with the given id.
func (s *RoomRegistry) Get(roomID string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Len returns the number of live rooms.
func (s *RoomRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// CleanUpIdleRooms removes rooms that have no participants and have been
// inactive for longer than ttl. It returns the number of rooms removed.
func (s *RoomRegistry) CleanUpIdleRooms(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, room := range s.rooms {
		room.mu.Lock()
		if len(room.participants) == 0 && time.Since(room.lastActivity) > ttl {
			room.closed = true
			delete(s.rooms, id)
			removed++
			logger.Infof("Evicted idle room: %s", id)
		}
		room.mu.Unlock()
	}
	return removed
}
