package service

import (
	"context"
	"errors"
	"time"

	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"
)

var errPostNotFound = errors.New("post not found")

// FeedService runs the community feed: posts, comments and per-user likes.
type FeedService struct {
	store    *store.Store
	bus      *notifications.Bus
	fixtures Fixtures
	profiles *ProfileService
	now      func() time.Time
}

// FeedPost is a post with its resolved author and the viewer's like mark.
type FeedPost struct {
	models.Post
	Author *models.Profile `json:"author,omitempty"`
	Liked  bool            `json:"liked"`
}

func NewFeedService(s *store.Store, bus *notifications.Bus, fixtures Fixtures, profiles *ProfileService) *FeedService {
	return &FeedService{store: s, bus: bus, fixtures: fixtures, profiles: profiles, now: time.Now}
}

// posts returns stored posts (newest first) followed by fixture posts not shadowed by a stored copy.
func (s *FeedService) posts(ctx context.Context) []models.Post {
	local := store.Read(ctx, s.store, store.SharedScope, models.SlicePosts, []models.Post{})

	seen := make(map[models.RecordID]bool, len(local))
	out := make([]models.Post, 0, len(local))
	for _, list := range [][]models.Post{local, s.fixtures.Posts(ctx)} {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			if p.Comments == nil {
				p.Comments = []models.Comment{}
			}
			out = append(out, p)
		}
	}
	return out
}

// ListPosts returns the feed as seen by userID.
func (s *FeedService) ListPosts(ctx context.Context, userID uint) []FeedPost {
	authors := s.profiles.Index(ctx)
	likes := store.Read(ctx, s.store, store.UserScope(userID), models.SlicePostLikes, models.LikeSet{})

	posts := s.posts(ctx)
	out := make([]FeedPost, 0, len(posts))
	for _, p := range posts {
		fp := FeedPost{Post: p, Liked: likes[p.ID.String()]}
		if a, ok := authors[p.UserID]; ok {
			fp.Author = &a
		}
		out = append(out, fp)
	}
	return out
}

// AddPost puts a new post at the top of the feed.
func (s *FeedService) AddPost(ctx context.Context, userID uint, content, image string) (models.Post, error) {
	if blank(content) {
		return models.Post{}, models.NewValidationError("Post content is required")
	}
	post := models.Post{
		ID:        models.NewRecordID(),
		UserID:    models.IDFromUint(userID),
		Content:   content,
		Image:     image,
		Timestamp: models.Timestamp(s.now()),
		Comments:  []models.Comment{},
	}

	_, err := store.Update(ctx, s.store, store.SharedScope, models.SlicePosts, []models.Post{},
		func(posts []models.Post) ([]models.Post, error) {
			return append([]models.Post{post}, posts...), nil
		})
	if err != nil {
		return models.Post{}, err
	}

	s.bus.Publish(ctx, notifications.SharedEvent(notifications.EventPostsUpdated, map[string]any{"id": post.ID}))
	return post, nil
}

// AddComment appends a comment to a post. Blank text is ignored and reported as added=false.
// Commenting on a fixture post stores a copy of it so the comment survives.
func (s *FeedService) AddComment(ctx context.Context, userID uint, postID models.RecordID, text string) (post models.Post, added bool, err error) {
	if blank(text) {
		return models.Post{}, false, nil
	}
	comment := models.Comment{
		UserID:    models.IDFromUint(userID),
		Text:      text,
		Timestamp: models.Timestamp(s.now()),
	}

	var fixture *models.Post
	for _, p := range s.fixtures.Posts(ctx) {
		if p.ID == postID {
			p := p
			fixture = &p
			break
		}
	}

	_, err = store.Update(ctx, s.store, store.SharedScope, models.SlicePosts, []models.Post{},
		func(posts []models.Post) ([]models.Post, error) {
			for i := range posts {
				if posts[i].ID == postID {
					posts[i].Comments = append(posts[i].Comments, comment)
					post = posts[i]
					return posts, nil
				}
			}
			if fixture == nil {
				return nil, errPostNotFound
			}
			post = *fixture
			post.Comments = append(append([]models.Comment{}, fixture.Comments...), comment)
			return append(posts, post), nil
		})
	if errors.Is(err, errPostNotFound) {
		return models.Post{}, false, models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return models.Post{}, false, err
	}

	s.bus.Publish(ctx, notifications.SharedEvent(notifications.EventPostsUpdated, map[string]any{"id": postID}))
	return post, true, nil
}

// ToggleLike flips the viewer's like on a post.
func (s *FeedService) ToggleLike(ctx context.Context, userID uint, postID models.RecordID) (bool, error) {
	if postID == "" {
		return false, models.NewValidationError("Post id is required")
	}
	on, err := toggleMark(ctx, s.store, userID, models.SlicePostLikes, postID)
	if err != nil {
		return false, err
	}
	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventLikesUpdated, userID,
		map[string]any{"slice": models.SlicePostLikes, "id": postID, "on": on}))
	return on, nil
}
