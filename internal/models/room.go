package models

// Axis names one of the two independent draw dimensions.
type Axis string

const (
	AxisPrize    Axis = "prize"
	AxisQuantity Axis = "quantity"
)

// Valid reports whether a is a known axis.
func (a Axis) Valid() bool {
	return a == AxisPrize || a == AxisQuantity
}

// Participant is one connection that has joined a room.
// DisplayName is empty until the participant picks one.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName,omitempty"`
}

// PendingTurn holds the active drawer's results until they confirm.
// Labels are opaque and may be empty, so each axis carries its own flag.
type PendingTurn struct {
	PlayerID       string `json:"playerId,omitempty"`
	DrawerName     string `json:"drawerName,omitempty"`
	PrizeResult    string `json:"prizeResult,omitempty"`
	QuantityResult string `json:"quantityResult,omitempty"`
	PrizeDrawn     bool   `json:"prizeDrawn"`
	QuantityDrawn  bool   `json:"quantityDrawn"`
}

// Empty reports whether nothing has been drawn in the current turn.
func (p PendingTurn) Empty() bool {
	return p == PendingTurn{}
}

// Complete reports whether both axes have been drawn.
func (p PendingTurn) Complete() bool {
	return p.PrizeDrawn && p.QuantityDrawn
}

// LedgerEntry is one committed turn.
type LedgerEntry struct {
	Name     string `json:"name"`
	Prize    string `json:"prize"`
	Quantity string `json:"quantity"`
}

// TurnProgress is the public view of the pending turn. Drawn values stay
// private to the drawer until the turn is confirmed.
type TurnProgress struct {
	PlayerID      string `json:"playerId,omitempty"`
	PrizeDrawn    bool   `json:"prizeDrawn"`
	QuantityDrawn bool   `json:"quantityDrawn"`
}

// RoomSnapshot is the full room state sent to every member.
type RoomSnapshot struct {
	ID           string        `json:"id"`
	DealerID     string        `json:"dealerId,omitempty"`
	Participants []Participant `json:"participants"`
	TurnQueue    []string      `json:"turnQueue"`
	PrizePool    []string      `json:"prizePool"`
	QuantityPool []string      `json:"quantityPool"`
	Ledger       []LedgerEntry `json:"ledger"`
	Turn         TurnProgress  `json:"turn"`
}

// DrawResult is sent privately to the drawer.
type DrawResult struct {
	Axis  Axis   `json:"axis"`
	Value string `json:"value"`
}
