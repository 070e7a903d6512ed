package service

import (
	"context"

	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"
)

// ExploreService serves the explore grid and its per-user likes and saves.
type ExploreService struct {
	store    *store.Store
	bus      *notifications.Bus
	fixtures Fixtures
	profiles *ProfileService
}

// ExploreCard is an explore item joined with its owner and the viewer's marks.
type ExploreCard struct {
	models.ExploreItem
	Owner *models.Profile `json:"owner,omitempty"`
	Liked bool            `json:"liked"`
	Saved bool            `json:"saved"`
}

func NewExploreService(s *store.Store, bus *notifications.Bus, fixtures Fixtures, profiles *ProfileService) *ExploreService {
	return &ExploreService{store: s, bus: bus, fixtures: fixtures, profiles: profiles}
}

// List returns every explore item as seen by userID.
func (s *ExploreService) List(ctx context.Context, userID uint) []ExploreCard {
	scope := store.UserScope(userID)
	likes := store.Read(ctx, s.store, scope, models.SliceExploreLikes, models.LikeSet{})
	saved := store.Read(ctx, s.store, scope, models.SliceExploreSaved, models.LikeSet{})
	owners := s.profiles.Index(ctx)

	items := s.fixtures.Explore(ctx)
	out := make([]ExploreCard, 0, len(items))
	for _, item := range items {
		card := ExploreCard{
			ExploreItem: item,
			Liked:       likes[item.ID.String()],
			Saved:       saved[item.ID.String()],
		}
		if owner, ok := owners[item.OwnerID]; ok {
			card.Owner = &owner
		}
		out = append(out, card)
	}
	return out
}

// ToggleLike flips the like mark on an explore item.
func (s *ExploreService) ToggleLike(ctx context.Context, userID uint, id models.RecordID) (bool, error) {
	return s.toggle(ctx, userID, models.SliceExploreLikes, id)
}

// ToggleSave flips the saved mark on an explore item.
func (s *ExploreService) ToggleSave(ctx context.Context, userID uint, id models.RecordID) (bool, error) {
	return s.toggle(ctx, userID, models.SliceExploreSaved, id)
}

func (s *ExploreService) toggle(ctx context.Context, userID uint, key string, id models.RecordID) (bool, error) {
	if id == "" {
		return false, models.NewValidationError("Item id is required")
	}
	on, err := toggleMark(ctx, s.store, userID, key, id)
	if err != nil {
		return false, err
	}
	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventLikesUpdated, userID,
		map[string]any{"slice": key, "id": id, "on": on}))
	return on, nil
}

// toggleMark flips id in the like-set stored under key.
func toggleMark(ctx context.Context, s *store.Store, userID uint, key string, id models.RecordID) (bool, error) {
	var on bool
	_, err := store.Update(ctx, s, store.UserScope(userID), key, models.LikeSet{},
		func(set models.LikeSet) (models.LikeSet, error) {
			if set == nil {
				set = models.LikeSet{}
			}
			on = set.Toggle(id.String())
			return set, nil
		})
	return on, err
}
