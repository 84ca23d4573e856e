package models

// Notification types sent to clients.
const (
	NoticeWelcome       = "welcome"
	NoticeRoomState     = "roomState"
	NoticeDrawResult    = "drawResult"
	NoticeJoinRejected  = "joinRejected"
	NoticeNameRejected  = "nameRejected"
	NoticeDuplicateDraw = "duplicateDrawRejected"
	NoticeTurnRevealed  = "turnRevealed"
	NoticeError         = "error"
)

// Notification is the envelope for every outbound message.
type Notification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Rejection is the payload of the targeted error notices.
type Rejection struct {
	RoomID  string `json:"roomId,omitempty"`
	Message string `json:"message"`
}

// TurnRevealed is the deferred room notice announcing the latest ledger entry.
type TurnRevealed struct {
	RoomID string      `json:"roomId"`
	Entry  LedgerEntry `json:"entry"`
}
