package service

import (
	"context"

	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"
)

// FollowService manages the per-user follow graph.
type FollowService struct {
	store    *store.Store
	bus      *notifications.Bus
	profiles *ProfileService
}

// Connection is a followed profile with the latest message exchanged with it.
type Connection struct {
	Profile     models.Profile        `json:"profile"`
	LastMessage *models.DirectMessage `json:"lastMessage,omitempty"`
}

func NewFollowService(s *store.Store, bus *notifications.Bus, profiles *ProfileService) *FollowService {
	return &FollowService{store: s, bus: bus, profiles: profiles}
}

// Following returns the follow graph of userID.
func (s *FollowService) Following(ctx context.Context, userID uint) models.FollowGraph {
	return store.Read(ctx, s.store, store.UserScope(userID), models.SliceFollows, models.FollowGraph{})
}

// ToggleFollow flips whether userID follows target and reports the new state.
func (s *FollowService) ToggleFollow(ctx context.Context, userID uint, target models.RecordID) (bool, error) {
	if target == "" {
		return false, models.NewValidationError("User id is required")
	}
	if target == models.IDFromUint(userID) {
		return false, models.NewValidationError("Cannot follow yourself")
	}

	var following bool
	_, err := store.Update(ctx, s.store, store.UserScope(userID), models.SliceFollows, models.FollowGraph{},
		func(g models.FollowGraph) (models.FollowGraph, error) {
			if g == nil {
				g = models.FollowGraph{}
			}
			following = models.LikeSet(g).Toggle(target.String())
			return g, nil
		})
	if err != nil {
		return false, err
	}

	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventFollowsUpdated, userID,
		map[string]any{"userId": target, "following": following}))
	return following, nil
}

// Connections lists followed profiles matching query, each with its last message preview.
func (s *FollowService) Connections(ctx context.Context, userID uint, query string) []Connection {
	follows := s.Following(ctx, userID)
	convos := store.Read(ctx, s.store, store.UserScope(userID), models.SliceConversations, models.Conversations{})

	out := []Connection{}
	for _, p := range s.profiles.Directory(ctx) {
		if !follows[p.ID.String()] || !p.Matches(query) {
			continue
		}
		c := Connection{Profile: p}
		if last, ok := convos.Last(p.ID.String()); ok {
			c.LastMessage = &last
		}
		out = append(out, c)
	}
	return out
}
