package server

import (
	"log/slog"

	"sherise/internal/featureflags"
	"sherise/internal/middleware"
	"sherise/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LiveEventsEnabled hides the event stream from users outside the live_events rollout.
func (s *Server) LiveEventsEnabled() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.LiveEvents, currentUserID(c)) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Feature", featureflags.LiveEvents))
		}
		return c.Next()
	}
}

// RequireUpgrade rejects plain HTTP requests to WebSocket routes.
func (s *Server) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebsocketHandler streams bus events addressed to the user, and shared ones, as JSON frames.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("WebSocket registration refused",
				slog.Uint64("user_id", uint64(uid)),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// GetFeatureFlags returns the flag values as evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(currentUserID(c)))
}
