package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"prizeroom/internal/hub"
	"prizeroom/internal/models"
	"prizeroom/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	maxMessage   = 64 * 1024
)

// Inbound event types.
const (
	EventJoin                = "join"
	EventSetDisplayName      = "setDisplayName"
	EventConfigurePrizes     = "configurePrizes"
	EventConfigureQuantities = "configureQuantities"
	EventDraw                = "draw"
	EventConfirmTurn         = "confirmTurn"
)

// InboundEvent is a message read from a participant's socket.
type InboundEvent struct {
	Type       string      `json:"type"`
	RoomID     string      `json:"roomId"`
	Name       string      `json:"name,omitempty"`
	Prizes     []string    `json:"prizes,omitempty"`
	Quantities []string    `json:"quantities,omitempty"`
	Axis       models.Axis `json:"axis,omitempty"`
	DrawerName string      `json:"drawerName,omitempty"`
}

// WSHandler serves the websocket endpoint and routes events to the coordinator.
type WSHandler struct {
	coordinator *services.SessionCoordinator
	hub         *hub.Hub
	upgrader    websocket.Upgrader
	revealDelay time.Duration
}

// NewWSHandler creates a WSHandler. A positive revealDelay schedules a
// turnRevealed room notice that long after each confirmed turn.
func NewWSHandler(coordinator *services.SessionCoordinator, h *hub.Hub, revealDelay time.Duration) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		hub:         h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		revealDelay: revealDelay,
	}
}

// RegisterRoutes registers the websocket route.
func (h *WSHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/ws", h.Serve)
}

// Serve upgrades the request and runs the connection until it closes.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("WS upgrade error: %v", err)
		return
	}

	session := newConnSession(uuid.NewString())
	client := h.hub.Register(session.id)
	logger.Infof("Connection opened: %s", session.id)

	go h.writePump(conn, client)
	h.hub.SendTo(session.id, models.Notification{
		Type:    models.NoticeWelcome,
		Payload: gin.H{"connectionId": session.id},
	})
	h.readPump(conn, session)
}

// connSession tracks the rooms one connection has joined.
type connSession struct {
	id    string
	rooms map[string]struct{}
}

func newConnSession(id string) *connSession {
	return &connSession{id: id, rooms: make(map[string]struct{})}
}

func (h *WSHandler) readPump(conn *websocket.Conn, session *connSession) {
	defer func() {
		h.disconnect(session)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Infof("WS read error for %s: %v", session.id, err)
			}
			return
		}

		var ev InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			h.reject(session.id, models.NoticeError, "", "invalid json")
			continue
		}
		h.handleEvent(session, ev)
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect leaves every joined room and releases the connection.
func (h *WSHandler) disconnect(session *connSession) {
	for roomID := range session.rooms {
		if err := h.coordinator.Leave(roomID, session.id); err != nil && !errors.Is(err, services.ErrPlayerNotFound) && !errors.Is(err, services.ErrRoomNotFound) {
			logger.Errorf("Leave %s for %s: %v", roomID, session.id, err)
		}
	}
	h.hub.Unregister(session.id)
	logger.Infof("Connection closed: %s", session.id)
}

func (h *WSHandler) handleEvent(session *connSession, ev InboundEvent) {
	switch ev.Type {
	case EventJoin:
		if err := h.coordinator.Join(ev.RoomID, session.id); err != nil {
			h.reject(session.id, models.NoticeJoinRejected, ev.RoomID, err.Error())
			return
		}
		session.rooms[ev.RoomID] = struct{}{}

	case EventSetDisplayName:
		if err := h.coordinator.SetDisplayName(ev.RoomID, session.id, ev.Name); err != nil {
			h.rejectError(session.id, ev.RoomID, err)
		}

	case EventConfigurePrizes:
		if err := h.coordinator.ConfigurePrizes(ev.RoomID, session.id, ev.Prizes); err != nil {
			h.rejectError(session.id, ev.RoomID, err)
		}

	case EventConfigureQuantities:
		if err := h.coordinator.ConfigureQuantities(ev.RoomID, session.id, ev.Quantities); err != nil {
			h.rejectError(session.id, ev.RoomID, err)
		}

	case EventDraw:
		if err := h.coordinator.Draw(ev.RoomID, session.id, ev.Axis, ev.DrawerName); err != nil {
			h.rejectError(session.id, ev.RoomID, err)
		}

	case EventConfirmTurn:
		entry, err := h.coordinator.ConfirmTurn(ev.RoomID, session.id)
		if err != nil {
			h.rejectError(session.id, ev.RoomID, err)
			return
		}
		if entry != nil && h.revealDelay > 0 {
			h.hub.Schedule(ev.RoomID, h.revealDelay, models.Notification{
				Type:    models.NoticeTurnRevealed,
				Payload: models.TurnRevealed{RoomID: ev.RoomID, Entry: *entry},
			})
		}

	default:
		h.reject(session.id, models.NoticeError, ev.RoomID, "unknown event type: "+ev.Type)
	}
}

// rejectError maps a coordinator error to the notice the caller receives.
func (h *WSHandler) rejectError(connectionID, roomID string, err error) {
	notice := models.NoticeError
	switch {
	case errors.Is(err, services.ErrNameTaken),
		errors.Is(err, services.ErrNameAlreadySet),
		errors.Is(err, services.ErrInvalidName):
		notice = models.NoticeNameRejected
	case errors.Is(err, services.ErrAlreadyDrew):
		notice = models.NoticeDuplicateDraw
	}
	h.reject(connectionID, notice, roomID, err.Error())
}

func (h *WSHandler) reject(connectionID, notice, roomID, message string) {
	h.hub.SendTo(connectionID, models.Notification{
		Type:    notice,
		Payload: models.Rejection{RoomID: roomID, Message: message},
	})
}
