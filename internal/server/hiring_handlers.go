package server

import (
	"sherise/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListHirings returns fixture and posted hiring requests, filtered by ?category=.
func (s *Server) ListHirings(c *fiber.Ctx) error {
	return c.JSON(s.hirings.ListHirings(c.UserContext(), c.Query("category")))
}

// CreateHiring posts a hiring request for the caller.
func (s *Server) CreateHiring(c *fiber.Ctx) error {
	var in service.HiringInput
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	post, err := s.hirings.CreateHiring(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetHiringCategories lists the categories in use, in first-seen order.
func (s *Server) GetHiringCategories(c *fiber.Ctx) error {
	return c.JSON(s.hirings.Categories(c.UserContext()))
}

// OpenHiringForm asks the caller's other views to show the hiring form.
func (s *Server) OpenHiringForm(c *fiber.Ctx) error {
	s.hirings.OpenHiringForm(c.UserContext(), currentUserID(c))
	return c.SendStatus(fiber.StatusAccepted)
}
