package main

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"prizeroom/internal/config"
	"prizeroom/internal/handlers"
	"prizeroom/internal/hub"
	"prizeroom/internal/services"
)

func main() {
	defer logger.Init("prizeroom", true, false, io.Discard).Close()

	// 1. Load configuration from the environment
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// 2. Initialize the room registry, broadcast hub and coordinator
	rooms := services.NewRoomRegistry(cfg.DefaultPrizes, cfg.DefaultQuantities)
	broadcasts := hub.New(cfg.SendBuffer)
	defer broadcasts.Close()
	coordinator := services.NewSessionCoordinator(rooms, broadcasts)

	// 3. Initialize the HTTP and websocket handlers
	httpHandler := handlers.NewHTTPHandler(rooms, coordinator, broadcasts)
	wsHandler := handlers.NewWSHandler(coordinator, broadcasts, cfg.RevealDelay)

	// 4. Set up the Gin router
	r := gin.Default()
	r.Use(handlers.CORSMiddleware())
	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	// 5. Start the background janitor to evict idle empty rooms
	if cfg.RoomIdleTTL > 0 {
		go func() {
			for {
				time.Sleep(cfg.JanitorInterval)
				removed := rooms.CleanUpIdleRooms(cfg.RoomIdleTTL)
				logger.Infof("Performed cleanup of idle rooms, removed %d.", removed)
			}
		}()
	}

	// 6. Run the server
	logger.Infof("Server starting on http://localhost%s", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		logger.Fatalf("Failed to run server: %v", err)
	}
}
