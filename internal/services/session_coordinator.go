package services

import (
	"strings"
	"time"

	"prizeroom/internal/models"

	"github.com/google/logger"
)

// SessionCoordinator applies room events. It is the only component that
// mutates a Room. Each transition holds the room lock from validation through
// broadcast, so events for one room are applied one at a time in arrival
// order while different rooms proceed independently.
type SessionCoordinator struct {
	rooms *RoomRegistry
	port  BroadcastPort
	pick  Picker
}

// NewSessionCoordinator creates a coordinator over rooms that publishes through port.
func NewSessionCoordinator(rooms *RoomRegistry, port BroadcastPort) *SessionCoordinator {
	return &SessionCoordinator{
		rooms: rooms,
		port:  port,
	}
}

// withRoom runs fn with the room locked. Every check in fn must happen before
// its first mutation.
func (c *SessionCoordinator) withRoom(roomID string, fn func(room *Room) error) error {
	room, err := c.rooms.Get(roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed {
		return ErrRoomNotFound
	}
	room.lastActivity = time.Now()
	return fn(room)
}

func (c *SessionCoordinator) broadcastState(room *Room) {
	c.port.Broadcast(room.id, models.Notification{
		Type:    models.NoticeRoomState,
		Payload: room.snapshot(),
	})
}

// Snapshot returns the current state of a room.
func (c *SessionCoordinator) Snapshot(roomID string) (models.RoomSnapshot, error) {
	var snap models.RoomSnapshot
	err := c.withRoom(roomID, func(room *Room) error {
		snap = room.snapshot()
		return nil
	})
	return snap, err
}

// Join adds a connection to a room. The first connection into a room without
// a dealer becomes the dealer; everyone else queues at the tail. Joining twice
// only re-broadcasts the state.
func (c *SessionCoordinator) Join(roomID, connectionID string) error {
	return c.withRoom(roomID, func(room *Room) error {
		if _, ok := room.participants[connectionID]; ok {
			logger.Infof("room %s: %s already joined", roomID, connectionID)
			c.port.Subscribe(roomID, connectionID)
			c.broadcastState(room)
			return nil
		}

		room.participants[connectionID] = &models.Participant{ConnectionID: connectionID}
		if room.dealerID == "" {
			room.dealerID = connectionID
			room.removeFromQueue(connectionID)
			logger.Infof("room %s: %s joined as dealer", roomID, connectionID)
		} else {
			room.turnQueue = append(room.turnQueue, connectionID)
			logger.Infof("room %s: %s joined at queue position %d", roomID, connectionID, len(room.turnQueue))
		}

		c.port.Subscribe(roomID, connectionID)
		c.broadcastState(room)
		return nil
	})
}

// SetDisplayName gives a participant a name that no other connected
// participant holds. A name can be set once.
func (c *SessionCoordinator) SetDisplayName(roomID, connectionID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	return c.withRoom(roomID, func(room *Room) error {
		p, ok := room.participants[connectionID]
		if !ok {
			return ErrPlayerNotFound
		}
		if p.DisplayName == name {
			c.broadcastState(room)
			return nil
		}
		if p.DisplayName != "" {
			return ErrNameAlreadySet
		}
		if _, taken := room.nameHolder(name, connectionID); taken {
			return ErrNameTaken
		}

		p.DisplayName = name
		logger.Infof("room %s: %s is now %q", roomID, connectionID, name)
		c.broadcastState(room)
		return nil
	})
}

// ConfigurePrizes replaces the prize pool. Only the dealer may do so; anyone
// else is ignored.
func (c *SessionCoordinator) ConfigurePrizes(roomID, connectionID string, prizes []string) error {
	return c.configure(roomID, connectionID, models.AxisPrize, prizes)
}

// ConfigureQuantities replaces the quantity pool. Only the dealer may do so.
func (c *SessionCoordinator) ConfigureQuantities(roomID, connectionID string, quantities []string) error {
	return c.configure(roomID, connectionID, models.AxisQuantity, quantities)
}

// Configure replaces the pool for axis.
func (c *SessionCoordinator) Configure(roomID, connectionID string, axis models.Axis, labels []string) error {
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	return c.configure(roomID, connectionID, axis, labels)
}

func (c *SessionCoordinator) configure(roomID, connectionID string, axis models.Axis, labels []string) error {
	return c.withRoom(roomID, func(room *Room) error {
		if connectionID == "" || connectionID != room.dealerID {
			logger.Infof("room %s: ignored %s pool change from non-dealer %s", roomID, axis, connectionID)
			return nil
		}

		pool := append(make([]string, 0, len(labels)), labels...)
		if axis == models.AxisPrize {
			room.prizePool = pool
		} else {
			room.quantityPool = pool
		}
		logger.Infof("room %s: dealer set %s pool to %d entries", roomID, axis, len(pool))
		c.broadcastState(room)
		return nil
	})
}

// Draw picks a value on axis for the active drawer and sends it to them
// privately. The result stays in the pending turn until ConfirmTurn; drawing
// the same axis again overwrites it. Out-of-turn draws, dealer draws and
// empty pools are ignored. ErrAlreadyDrew is returned when the drawer's name
// is already in the ledger.
func (c *SessionCoordinator) Draw(roomID, connectionID string, axis models.Axis, drawerName string) error {
	if !axis.Valid() {
		return ErrInvalidAxis
	}

	return c.withRoom(roomID, func(room *Room) error {
		if room.front() != connectionID || connectionID == "" {
			logger.Infof("room %s: ignored draw from %s, not the active drawer", roomID, connectionID)
			return nil
		}
		if connectionID == room.dealerID {
			logger.Infof("room %s: ignored draw from dealer %s", roomID, connectionID)
			return nil
		}
		pool := room.pool(axis)
		if len(pool) == 0 {
			logger.Infof("room %s: ignored draw on empty %s pool", roomID, axis)
			return nil
		}

		name, err := c.resolveDrawerName(room, connectionID, drawerName)
		if err != nil {
			return err
		}
		if name == "" {
			logger.Infof("room %s: ignored draw from %s without a name", roomID, connectionID)
			return nil
		}
		if room.hasLedgerName(name) {
			logger.Infof("room %s: rejected second draw for %q", roomID, name)
			return ErrAlreadyDrew
		}

		value, err := RandomDraw(pool, c.pick)
		if err != nil {
			return err
		}

		// A supplied name becomes the drawer's display name so no one else
		// can take it while the turn is pending or after it is committed.
		if p, ok := room.participants[connectionID]; ok && p.DisplayName == "" {
			p.DisplayName = name
			logger.Infof("room %s: %s is now %q", roomID, connectionID, name)
		}
		if room.pending.PlayerID != connectionID {
			room.pending = models.PendingTurn{PlayerID: connectionID, DrawerName: name}
		}
		if axis == models.AxisPrize {
			room.pending.PrizeResult = value
			room.pending.PrizeDrawn = true
		} else {
			room.pending.QuantityResult = value
			room.pending.QuantityDrawn = true
		}

		c.port.SendTo(connectionID, models.Notification{
			Type:    models.NoticeDrawResult,
			Payload: models.DrawResult{Axis: axis, Value: value},
		})
		return nil
	})
}

// resolveDrawerName returns the name a draw is recorded under: the name
// latched by an earlier axis of this turn, else the participant's display
// name, else the name supplied with the draw.
func (c *SessionCoordinator) resolveDrawerName(room *Room, connectionID, supplied string) (string, error) {
	if room.pending.PlayerID == connectionID && room.pending.DrawerName != "" {
		return room.pending.DrawerName, nil
	}
	if p, ok := room.participants[connectionID]; ok && p.DisplayName != "" {
		return p.DisplayName, nil
	}

	name := strings.TrimSpace(supplied)
	if name == "" {
		return "", nil
	}
	if _, taken := room.nameHolder(name, connectionID); taken {
		return "", ErrNameTaken
	}
	return name, nil
}

// ConfirmTurn commits the active drawer's pending turn to the ledger and
// removes them from the rotation. It does nothing unless the caller is the
// active drawer and both axes have been drawn. The returned entry is nil when
// nothing was committed.
func (c *SessionCoordinator) ConfirmTurn(roomID, connectionID string) (*models.LedgerEntry, error) {
	var committed *models.LedgerEntry
	err := c.withRoom(roomID, func(room *Room) error {
		if room.front() != connectionID || connectionID == "" {
			logger.Infof("room %s: ignored confirm from %s, not the active drawer", roomID, connectionID)
			return nil
		}
		if room.pending.PlayerID != connectionID || !room.pending.Complete() {
			logger.Infof("room %s: ignored early confirm from %s", roomID, connectionID)
			return nil
		}
		if room.hasLedgerName(room.pending.DrawerName) {
			logger.Warningf("room %s: pending turn for %q already in ledger", roomID, room.pending.DrawerName)
			return ErrAlreadyDrew
		}

		entry := models.LedgerEntry{
			Name:     room.pending.DrawerName,
			Prize:    room.pending.PrizeResult,
			Quantity: room.pending.QuantityResult,
		}
		room.ledger = append(room.ledger, entry)
		room.turnQueue = room.turnQueue[1:]
		room.pending = models.PendingTurn{}
		committed = &entry

		logger.Infof("room %s: %q won %s x %s", roomID, entry.Name, entry.Prize, entry.Quantity)
		c.broadcastState(room)
		return nil
	})
	return committed, err
}

// Leave removes a disconnected participant. A departing dealer hands over to
// the front of the queue, if any. An unconfirmed turn owned by the departing
// connection, or no longer owned by the queue front, is discarded.
func (c *SessionCoordinator) Leave(roomID, connectionID string) error {
	return c.withRoom(roomID, func(room *Room) error {
		if _, ok := room.participants[connectionID]; !ok {
			return ErrPlayerNotFound
		}

		delete(room.participants, connectionID)
		if connectionID == room.dealerID {
			room.dealerID = ""
			if next := room.front(); next != "" {
				room.dealerID = next
				room.turnQueue = room.turnQueue[1:]
				logger.Infof("room %s: dealer %s left, %s promoted", roomID, connectionID, next)
			} else {
				logger.Infof("room %s: dealer %s left, no one to promote", roomID, connectionID)
			}
		} else {
			room.removeFromQueue(connectionID)
		}

		if !room.pending.Empty() && (room.pending.PlayerID == connectionID || room.pending.PlayerID != room.front()) {
			logger.Infof("room %s: discarded unconfirmed turn of %s", roomID, room.pending.PlayerID)
			room.pending = models.PendingTurn{}
		}

		c.port.Unsubscribe(roomID, connectionID)
		c.broadcastState(room)
		return nil
	})
}

// Ledger returns a copy of the committed turns of a room.
func (c *SessionCoordinator) Ledger(roomID string) ([]models.LedgerEntry, error) {
	var ledger []models.LedgerEntry
	err := c.withRoom(roomID, func(room *Room) error {
		ledger = append(make([]models.LedgerEntry, 0, len(room.ledger)), room.ledger...)
		return nil
	})
	return ledger, err
}
