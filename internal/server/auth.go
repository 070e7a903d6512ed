package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 60 * time.Second

var errRedisUnavailable = errors.New("redis unavailable")

func wsTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}

// AuthRequired returns the authentication middleware.
// It accepts a single-use WebSocket ticket, a Bearer token, or a token query parameter.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Already authenticated by an outer group; a ticket must not be consumed twice.
		if _, ok := c.Locals("userID").(uint); ok {
			return c.Next()
		}

		if ticket := c.Query("ticket"); ticket != "" && s.redis != nil {
			key := wsTicketKey(ticket)
			raw, err := s.redis.GetDel(c.UserContext(), key).Result()
			if err == nil {
				if id, perr := strconv.ParseUint(raw, 10, 64); perr == nil && id > 0 {
					return s.authenticated(c, uint(id))
				}
			}
			if strings.HasPrefix(c.Path(), "/api/ws") {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		token := middleware.BearerToken(c.Get("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		return s.authenticated(c, claims.UserID)
	}
}

func (s *Server) authenticated(c *fiber.Ctx, userID uint) error {
	c.Locals("userID", userID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
	return c.Next()
}

// IssueWSTicket hands out a short-lived single-use ticket for opening the event stream.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errRedisUnavailable))
	}
	ticket := uuid.NewString()
	uid := strconv.FormatUint(uint64(currentUserID(c)), 10)
	if err := s.redis.Set(c.UserContext(), wsTicketKey(ticket), uid, wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// Signup creates an account and returns a token and the stored profile.
func (s *Server) Signup(c *fiber.Ctx) error {
	in, err := service.ParseSignup(c.Body())
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.accounts.Signup(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login checks credentials. Unknown emails are rejected.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := s.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Logout clears the session slices of the caller.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.accounts.Logout(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
