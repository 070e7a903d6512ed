package server

import (
	"log/slog"

	"sherise/internal/middleware"
	"sherise/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFixture serves one fixture file as stored, for clients that read the static JSON directly.
func (s *Server) GetFixture(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := s.catalog.Raw(c.UserContext(), name)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "Fixture not served",
				slog.String("fixture", name),
				slog.String("error", err.Error()),
			)
			return respondError(c, models.NewNotFoundError("Fixture", name))
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderCacheControl, "public, max-age=300")
		return c.Send(data)
	}
}

// GetTrends returns the trends chart rows. ?limit=n keeps the n highest scores.
func (s *Server) GetTrends(c *fiber.Ctx) error {
	return c.JSON(s.shop.Trends(c.UserContext(), c.QueryInt("limit", 0)))
}

// GetProducts returns the shop listing for ?category= (All when empty).
func (s *Server) GetProducts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tabs":     models.ShopTabs,
		"products": s.shop.Products(c.UserContext(), c.Query("category")),
	})
}
