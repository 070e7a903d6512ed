package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetCoachTranscript returns the caller's coach conversation, starting with the greeting.
func (s *Server) GetCoachTranscript(c *fiber.Ctx) error {
	return c.JSON(s.coach.Transcript(c.UserContext(), currentUserID(c)))
}

// SendCoachMessage asks the coach and returns its reply with the updated transcript.
func (s *Server) SendCoachMessage(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx := c.UserContext()
	uid := currentUserID(c)

	reply, err := s.coach.Send(ctx, uid, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"reply":      reply,
		"transcript": s.coach.Transcript(ctx, uid),
	})
}

// ResetCoach clears the conversation.
func (s *Server) ResetCoach(c *fiber.Ctx) error {
	if err := s.coach.Reset(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetCoachSuggestions returns growth tips for ?business= or the caller's own business.
func (s *Server) GetCoachSuggestions(c *fiber.Ctx) error {
	return c.JSON(s.coach.Suggestions(c.UserContext(), currentUserID(c), c.Query("business")))
}

// GetThread returns the conversation with another member.
func (s *Server) GetThread(c *fiber.Ctx) error {
	peer, err := recordParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.messages.Thread(c.UserContext(), currentUserID(c), peer))
}

// SendMessage appends the caller's line; the canned reply arrives later as a conversationUpdated event.
func (s *Server) SendMessage(c *fiber.Ctx) error {
	peer, err := recordParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	thread, err := s.messages.Send(c.UserContext(), currentUserID(c), peer, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(thread)
}
