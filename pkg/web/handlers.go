package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/skylarkuav/go-follow/pkg/follow"
	"github.com/skylarkuav/go-follow/pkg/hub"
)

// handleStatus returns the current telemetry snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.controller.Status())
}

// handleProfiles lists the registered follower profiles.
func (s *Server) handleProfiles(c *fiber.Ctx) error {
	return c.JSON(s.controller.Profiles())
}

// handleStart activates a follower mode. Configuration errors map to 4xx;
// the state machine stays idle on failure.
func (s *Server) handleStart(c *fiber.Ctx) error {
	mode := c.Params("mode")

	if err := s.controller.StartTracking(mode); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, follow.ErrUnknownMode) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"mode": mode, "status": "starting"})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.controller.StopTracking(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "stopping"})
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	if err := s.controller.CancelActivities(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

func (s *Server) handleRedetect(c *fiber.Ctx) error {
	s.controller.Redetect()
	return c.JSON(fiber.Map{"status": "redetect requested"})
}

func (s *Server) handleToggleSegmentation(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"segmentation": s.controller.ToggleSegmentation()})
}

func (s *Server) handleToggleSmartMode(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"smart_mode": s.controller.ToggleSmartMode()})
}

// handleStatusWS streams telemetry snapshots over a websocket.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send the current snapshot immediately so clients render without
	// waiting for the next publish tick.
	if err := c.WriteJSON(s.controller.Status()); err != nil {
		c.Close()
		return
	}
	hub.NewClient(s.statusHub, c).Run()
}
