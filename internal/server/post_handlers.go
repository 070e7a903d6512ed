package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListPosts returns the community feed for the caller.
func (s *Server) ListPosts(c *fiber.Ctx) error {
	return c.JSON(s.feed.ListPosts(c.UserContext(), currentUserID(c)))
}

// CreatePost adds a post at the top of the feed.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
		Image   string `json:"image"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	post, err := s.feed.AddPost(c.UserContext(), currentUserID(c), req.Content, req.Image)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// CreateComment comments on a post. Blank comments are ignored and reported with added=false.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := recordParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	post, added, err := s.feed.AddComment(c.UserContext(), currentUserID(c), postID, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"post": post, "added": added})
}

// TogglePostLike flips the caller's like on a post.
func (s *Server) TogglePostLike(c *fiber.Ctx) error {
	postID, err := recordParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	liked, err := s.feed.ToggleLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}
