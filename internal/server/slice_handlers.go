package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/observability"
	"sherise/internal/store"
	"sherise/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

// sliceScope resolves the scope addressed by ?shared=1, defaulting to the caller's own.
func (s *Server) sliceScope(c *fiber.Ctx) string {
	if isSharedQuery(c) {
		return store.SharedScope
	}
	return store.UserScope(currentUserID(c))
}

func sliceKeyParam(c *fiber.Ctx) (string, error) {
	key := strings.TrimSpace(c.Params("key"))
	if err := validation.ValidateSliceKey(key); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	return key, nil
}

func etag(version int64) string {
	return strconv.Quote(strconv.FormatInt(version, 10))
}

// parseIfMatch reads an If-Match version. ok is false when the header is absent or "*".
func parseIfMatch(header string) (version int64, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return 0, false, nil
	}
	header = strings.TrimPrefix(header, "W/")
	header = strings.Trim(header, `"`)
	v, perr := strconv.ParseInt(header, 10, 64)
	if perr != nil || v < 0 {
		return 0, false, models.NewValidationError("If-Match must carry a slice version")
	}
	return v, true, nil
}

// GetSlice returns a stored slice as raw JSON with its version as ETag.
func (s *Server) GetSlice(c *fiber.Ctx) error {
	key, err := sliceKeyParam(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, scope := c.UserContext(), s.sliceScope(c)
	observability.Annotate(ctx, observability.SliceAttrs(scope, key)...)

	raw, version, found := s.store.Snapshot(ctx, scope, key)
	if !found {
		return respondError(c, models.NewNotFoundError("Slice", key))
	}
	observability.Annotate(ctx, observability.AttrSliceVersion.Int64(version))
	c.Set(fiber.HeaderETag, etag(version))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

// PutSlice overwrites a slice. With If-Match the write only happens if the version still matches.
func (s *Server) PutSlice(c *fiber.Ctx) error {
	key, err := sliceKeyParam(c)
	if err != nil {
		return respondError(c, err)
	}
	expect, conditional, err := parseIfMatch(c.Get(fiber.HeaderIfMatch))
	if err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()
	scope := s.sliceScope(c)
	body := json.RawMessage(c.Body())
	observability.Annotate(ctx, append(observability.SliceAttrs(scope, key),
		attribute.Bool("sherise.slice.conditional", conditional))...)

	var version int64
	if conditional {
		version, err = s.store.CompareAndSet(ctx, scope, key, body, expect)
	} else {
		version, err = s.store.Replace(ctx, scope, key, body)
	}
	if errors.Is(err, models.ErrVersionMismatch) {
		return respondError(c, models.NewPreconditionFailedError("Slice version does not match"))
	}
	if err != nil {
		return respondError(c, err)
	}

	observability.Annotate(ctx, observability.AttrSliceVersion.Int64(version))
	s.publishSliceChange(c, scope, key, version)
	c.Set(fiber.HeaderETag, etag(version))
	return c.JSON(fiber.Map{"key": key, "version": version})
}

// DeleteSlice removes a slice; deleting an absent slice succeeds.
func (s *Server) DeleteSlice(c *fiber.Ctx) error {
	key, err := sliceKeyParam(c)
	if err != nil {
		return respondError(c, err)
	}
	scope := s.sliceScope(c)
	observability.Annotate(c.UserContext(), observability.SliceAttrs(scope, key)...)
	if err := s.store.Delete(c.UserContext(), scope, key); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	s.publishSliceChange(c, scope, key, 0)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) publishSliceChange(c *fiber.Ctx, scope, key string, version int64) {
	s.bus.Publish(c.UserContext(), notifications.NewEvent(notifications.EventSliceUpdated, scope, fiber.Map{
		"key":     key,
		"version": version,
	}))
}

// PublishEvent lets a client announce a change it made, e.g. openHiringForm.
// The JSON body, if any, becomes the event detail.
func (s *Server) PublishEvent(c *fiber.Ctx) error {
	name := c.Params("name")
	if !notifications.IsKnownEvent(name) {
		return respondError(c, models.NewValidationError("Unknown event "+strconv.Quote(name)))
	}

	var detail any
	if body := c.Body(); len(body) > 0 {
		if !json.Valid(body) {
			return respondError(c, models.NewValidationError("Event detail must be valid JSON"))
		}
		detail = json.RawMessage(body)
	}

	var e notifications.Event
	if isSharedQuery(c) {
		e = notifications.SharedEvent(name, detail)
	} else {
		e = notifications.UserEvent(name, currentUserID(c), detail)
	}
	s.bus.Publish(c.UserContext(), e)
	return c.Status(fiber.StatusAccepted).JSON(e)
}
