package server

import (
	"errors"
	"strconv"
	"strings"

	"sherise/internal/models"
	"sherise/internal/store"

	"github.com/gofiber/fiber/v2"
)

// respondError maps err to its status. Lost update races answer 409.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrConflict) {
		err = models.NewConflictError("The data changed while saving, please retry", err)
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// currentUserID returns the authenticated user. Handlers behind AuthRequired always have one.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// recordParam reads a route parameter as a record id.
func recordParam(c *fiber.Ctx, param string) (models.RecordID, error) {
	raw := strings.TrimSpace(c.Params(param))
	if raw == "" {
		return "", models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return models.RecordID(raw), nil
}

// indexParam reads a zero-based list index from the route.
func indexParam(c *fiber.Ctx, param string) (int, error) {
	n, err := strconv.Atoi(c.Params(param))
	if err != nil || n < 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return n, nil
}

// humanizeParam converts a route param name into a label: "id" -> "ID", "userId" -> "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(prefix) + " ID"
	}
	return param
}

// isSharedQuery reports whether the request addresses the shared scope.
func isSharedQuery(c *fiber.Ctx) bool {
	switch strings.ToLower(c.Query("shared")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// bindJSON parses the body into dest, answering 400 for malformed input.
func bindJSON(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
