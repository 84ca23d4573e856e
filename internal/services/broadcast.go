package services

import "prizeroom/internal/models"

// BroadcastPort delivers notifications to room members and single connections.
// Implementations must not block: the coordinator calls them while holding a
// room lock so that notifications leave in the same order as the transitions.
type BroadcastPort interface {
	// Subscribe adds the connection to the room's broadcast group.
	Subscribe(roomID, connectionID string)
	// Unsubscribe removes the connection from the room's broadcast group.
	Unsubscribe(roomID, connectionID string)
	Broadcast(roomID string, n models.Notification)
	SendTo(connectionID string, n models.Notification)
}
