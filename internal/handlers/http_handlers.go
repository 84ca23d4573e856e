package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"

	"prizeroom/internal/hub"
	"prizeroom/internal/models"
	"prizeroom/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// ConnectionHeader carries the websocket connection id on HTTP requests
// made on behalf of a participant.
const ConnectionHeader = "X-Connection-ID"

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	rooms       *services.RoomRegistry
	coordinator *services.SessionCoordinator
	hub         *hub.Hub
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(rooms *services.RoomRegistry, coordinator *services.SessionCoordinator, h *hub.Hub) *HTTPHandler {
	return &HTTPHandler{
		rooms:       rooms,
		coordinator: coordinator,
		hub:         h,
	}
}

// RegisterRoutes registers all the HTTP routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/", h.ShowIndex)
	router.POST("/create-room", h.CreateRoom)
	router.GET("/rooms/:roomId", h.GetRoom)
	router.GET("/rooms/:roomId/ledger.csv", h.ExportLedgerCSV)
	router.POST("/rooms/:roomId/pools/:axis", h.UploadPoolCSV)
	router.GET("/rooms/:roomId/events", h.StreamRoomEvents)
}

// CORSMiddleware allows browser clients from any origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+ConnectionHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ShowIndex answers the liveness page.
func (h *HTTPHandler) ShowIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<h1>抽獎房間伺服器已啟動</h1>"))
}

type createRoomRequest struct {
	Prizes     []string `json:"prizes"`
	Quantities []string `json:"quantities"`
}

// CreateRoom allocates a new room, optionally with its own pools.
func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
			return
		}
	}

	roomID, err := h.rooms.Create(req.Prizes, req.Quantities)
	if err != nil {
		logger.Errorf("Error creating room: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not create room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "roomId": roomID})
}

// GetRoom returns the room snapshot.
func (h *HTTPHandler) GetRoom(c *gin.Context) {
	snap, err := h.coordinator.Snapshot(c.Param("roomId"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ExportLedgerCSV handles the request to download a room's ledger as a CSV file.
func (h *HTTPHandler) ExportLedgerCSV(c *gin.Context) {
	roomID := c.Param("roomId")
	ledger, err := h.coordinator.Ledger(roomID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename="+roomID+"_ledger.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"名稱", "獎項", "數量"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		return
	}
	for _, entry := range ledger {
		if err := w.Write([]string{entry.Name, entry.Prize, entry.Quantity}); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			return
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
	}
}

// UploadPoolCSV replaces a pool from an uploaded CSV, one label per row in
// the first column. Requests from anyone but the dealer are accepted and
// ignored.
func (h *HTTPHandler) UploadPoolCSV(c *gin.Context) {
	roomID := c.Param("roomId")
	axis := models.Axis(c.Param("axis"))
	if !axis.Valid() {
		h.abortWithError(c, services.ErrInvalidAxis)
		return
	}

	file, _, err := c.Request.FormFile("poolCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Error retrieving file"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	var labels []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Error reading CSV"})
			return
		}

		label := strings.TrimSpace(record[0])
		if label == "" {
			logger.Infof("Skipping empty pool CSV record: %v", record)
			continue
		}
		labels = append(labels, label)
	}

	if err := h.coordinator.Configure(roomID, c.GetHeader(ConnectionHeader), axis, labels); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "entries": len(labels)})
}

// StreamRoomEvents streams every broadcast of a room as server-sent events,
// starting with the current snapshot.
func (h *HTTPHandler) StreamRoomEvents(c *gin.Context) {
	roomID := c.Param("roomId")
	snap, err := h.coordinator.Snapshot(roomID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	events, stop := h.hub.Watch(roomID)
	defer stop()

	c.SSEvent(models.NoticeRoomState, snap)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		}
	})
}

func (h *HTTPHandler) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrRoomNotFound), errors.Is(err, services.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidAxis):
		status = http.StatusBadRequest
	default:
		logger.Errorf("Unexpected error: %v", err)
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}
