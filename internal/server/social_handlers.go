package server

import (
	"sherise/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFollows returns the caller's follow graph.
func (s *Server) GetFollows(c *fiber.Ctx) error {
	return c.JSON(s.follows.Following(c.UserContext(), currentUserID(c)))
}

// ToggleFollow follows or unfollows a profile.
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	target, err := recordParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	following, err := s.follows.ToggleFollow(c.UserContext(), currentUserID(c), target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// GetConnections lists followed profiles with their last message, filtered by ?q=.
func (s *Server) GetConnections(c *fiber.Ctx) error {
	return c.JSON(s.follows.Connections(c.UserContext(), currentUserID(c), c.Query("q")))
}

// ListExplore returns the explore grid with the caller's likes and saves.
func (s *Server) ListExplore(c *fiber.Ctx) error {
	return c.JSON(s.explore.List(c.UserContext(), currentUserID(c)))
}

func (s *Server) ToggleExploreLike(c *fiber.Ctx) error {
	id, err := recordParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	liked, err := s.explore.ToggleLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

func (s *Server) ToggleExploreSave(c *fiber.Ctx) error {
	id, err := recordParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	saved, err := s.explore.ToggleSave(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"saved": saved})
}

// ListProfiles returns the directory, searched by ?q= over name, business and city.
func (s *Server) ListProfiles(c *fiber.Ctx) error {
	return c.JSON(s.profiles.Search(c.UserContext(), c.Query("q")))
}

// GetMyProfile returns the signed-in user's profile.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	p, err := s.profiles.Me(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// UpdateMyProfile saves the caller's profile. Both stored user layouts are accepted.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	p, err := models.NormalizeProfile(c.Body())
	if err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	saved, err := s.profiles.Save(c.UserContext(), currentUserID(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(saved)
}

// GetProfile returns a profile page with one page (?page=, from 1) of previous posts.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := recordParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.profiles.View(c.UserContext(), currentUserID(c), id, c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}
