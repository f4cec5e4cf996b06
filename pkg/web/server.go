// Package web exposes the minimal command-trigger and status surface for
// the follower core: REST endpoints for the state-machine triggers and a
// websocket stream of telemetry snapshots.
package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/skylarkuav/go-follow/internal/log"
	"github.com/skylarkuav/go-follow/pkg/follow"
	"github.com/skylarkuav/go-follow/pkg/hub"
)

// Controller is the slice of the follower manager the web layer drives.
type Controller interface {
	StartTracking(mode string) error
	StopTracking() error
	CancelActivities() error
	Redetect()
	ToggleSegmentation() bool
	ToggleSmartMode() bool
	Status() follow.Snapshot
	Profiles() []follow.Profile
}

// Server is the follower command/status server.
type Server struct {
	app        *fiber.App
	port       string
	controller Controller
	statusHub  *hub.Hub
}

// NewServer creates a server over the given controller.
func NewServer(port string, controller Controller) *Server {
	s := &Server{
		port:       port,
		controller: controller,
		statusHub:  hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-follow",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/profiles", s.handleProfiles)
	api.Post("/follow/start/:mode", s.handleStart)
	api.Post("/follow/stop", s.handleStop)
	api.Post("/follow/cancel", s.handleCancel)
	api.Post("/follow/redetect", s.handleRedetect)
	api.Post("/toggle/segmentation", s.handleToggleSegmentation)
	api.Post("/toggle/smart", s.handleToggleSmartMode)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the server and blocks.
func (s *Server) Start() error {
	log.Info("command surface listening", "port", s.port)
	go s.statusHub.Run()
	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server stopped", "error", err)
		}
	}()
}

// PublishStatus broadcasts a telemetry snapshot to websocket clients.
// Called from the telemetry loop; never blocks.
func (s *Server) PublishStatus(snap follow.Snapshot) {
	s.statusHub.BroadcastJSON(snap)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PublishLoop polls the controller at the given interval and broadcasts
// snapshots until stop is closed.
func (s *Server) PublishLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() > 0 {
				s.PublishStatus(s.controller.Status())
			}
		}
	}
}
