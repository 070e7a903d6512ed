package service

import (
	"context"
	"strings"
	"time"

	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"
)

// HiringService runs the hiring marketplace.
type HiringService struct {
	store    *store.Store
	bus      *notifications.Bus
	fixtures Fixtures
	now      func() time.Time
}

// HiringInput is the hiring form.
type HiringInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Budget      string `json:"budget"`
	Contact     string `json:"contact"`
}

func NewHiringService(s *store.Store, bus *notifications.Bus, fixtures Fixtures) *HiringService {
	return &HiringService{store: s, bus: bus, fixtures: fixtures, now: time.Now}
}

// CreateHiring appends a hiring post to the shared list and publishes hiringUpdated.
// The poster's name and email come from their current profile.
func (s *HiringService) CreateHiring(ctx context.Context, userID uint, in HiringInput) (models.HiringPost, error) {
	switch {
	case blank(in.Title):
		return models.HiringPost{}, models.NewValidationError("Title is required")
	case blank(in.Category):
		return models.HiringPost{}, models.NewValidationError("Category is required")
	case blank(in.Contact):
		return models.HiringPost{}, models.NewValidationError("Contact is required")
	}

	var poster models.Profile
	s.store.Get(ctx, store.UserScope(userID), models.SliceCurrentUser, &poster)

	post := models.HiringPost{
		ID:          models.NewRecordID(),
		UserID:      models.IDFromUint(userID),
		UserName:    poster.Name,
		UserEmail:   poster.Email,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Budget:      in.Budget,
		Contact:     in.Contact,
		Timestamp:   models.Timestamp(s.now()),
	}

	_, err := store.Update(ctx, s.store, store.SharedScope, models.SliceHirings, []models.HiringPost{},
		func(list []models.HiringPost) ([]models.HiringPost, error) {
			return append(list, post), nil
		})
	if err != nil {
		return models.HiringPost{}, err
	}

	s.bus.Publish(ctx, notifications.SharedEvent(notifications.EventHiringUpdated, map[string]any{"id": post.ID}))
	return post, nil
}

// ListHirings returns fixture posts then stored posts, de-duplicated by id and
// filtered by category ("" or "All" keeps everything).
func (s *HiringService) ListHirings(ctx context.Context, category string) []models.HiringPost {
	local := store.Read(ctx, s.store, store.SharedScope, models.SliceHirings, []models.HiringPost{})

	seen := make(map[models.RecordID]bool)
	out := []models.HiringPost{}
	for _, list := range [][]models.HiringPost{s.fixtures.Hirings(ctx), local} {
		for _, h := range list {
			if seen[h.ID] {
				continue
			}
			seen[h.ID] = true
			if isAll(category) || strings.EqualFold(h.Category, category) {
				out = append(out, h)
			}
		}
	}
	return out
}

// Categories lists the distinct categories of all hiring posts in first-seen order.
func (s *HiringService) Categories(ctx context.Context) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, h := range s.ListHirings(ctx, "") {
		if h.Category == "" || seen[h.Category] {
			continue
		}
		seen[h.Category] = true
		out = append(out, h.Category)
	}
	return out
}

// OpenHiringForm asks the user's other views to switch to the hiring form.
func (s *HiringService) OpenHiringForm(ctx context.Context, userID uint) {
	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventOpenHiringForm, userID, nil))
}
