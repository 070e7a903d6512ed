package service

import (
	"context"
	"sort"
	"strconv"

	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"
)

// PostsPerPage is the page size of a profile's previous posts.
const PostsPerPage = 6

// ErrProfileNotFound is the static answer for an unknown profile id.
var ErrProfileNotFound = &models.AppError{Code: models.CodeNotFound, Message: "Profile not found"}

// ProfileService serves the profile directory: registered profiles merged with the users fixture.
type ProfileService struct {
	store    *store.Store
	bus      *notifications.Bus
	fixtures Fixtures
}

// ProfileView is a profile page: the profile, the viewer's follow state and one page of previous posts.
type ProfileView struct {
	Profile   models.Profile       `json:"profile"`
	Following bool                 `json:"following"`
	Posts     []models.ExploreItem `json:"posts"`
	Page      int                  `json:"page"`
	Pages     int                  `json:"pages"`
}

func NewProfileService(s *store.Store, bus *notifications.Bus, fixtures Fixtures) *ProfileService {
	return &ProfileService{store: s, bus: bus, fixtures: fixtures}
}

// Directory returns registered profiles followed by fixture profiles, de-duplicated by id.
// A registered profile wins over a fixture row with the same id.
func (s *ProfileService) Directory(ctx context.Context) []models.Profile {
	local := store.Read(ctx, s.store, store.SharedScope, models.SliceUsers, []models.Profile{})

	seen := make(map[models.RecordID]bool, len(local))
	out := make([]models.Profile, 0, len(local))
	for _, list := range [][]models.Profile{local, s.fixtures.Users(ctx)} {
		for _, p := range list {
			if p.ID != "" && seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}

// Search filters the directory by name, business or city.
func (s *ProfileService) Search(ctx context.Context, query string) []models.Profile {
	out := []models.Profile{}
	for _, p := range s.Directory(ctx) {
		if p.Matches(query) {
			out = append(out, p)
		}
	}
	return out
}

// Index maps directory profiles by id.
func (s *ProfileService) Index(ctx context.Context) map[models.RecordID]models.Profile {
	dir := s.Directory(ctx)
	out := make(map[models.RecordID]models.Profile, len(dir))
	for _, p := range dir {
		out[p.ID] = p
	}
	return out
}

// Get looks a profile up by id.
func (s *ProfileService) Get(ctx context.Context, id models.RecordID) (models.Profile, error) {
	for _, p := range s.Directory(ctx) {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Profile{}, ErrProfileNotFound
}

// Me returns the signed-in user's own profile.
func (s *ProfileService) Me(ctx context.Context, userID uint) (models.Profile, error) {
	var p models.Profile
	if !s.store.Get(ctx, store.UserScope(userID), models.SliceCurrentUser, &p) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

// View builds the profile page for id as seen by viewerID. An empty gallery is
// filled from the owner's explore images; previous posts are newest first.
func (s *ProfileService) View(ctx context.Context, viewerID uint, id models.RecordID, page int) (ProfileView, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return ProfileView{}, err
	}

	var owned []models.ExploreItem
	for _, item := range s.fixtures.Explore(ctx) {
		if item.OwnerID == p.ID {
			owned = append(owned, item)
		}
	}
	if len(p.Gallery) == 0 {
		for _, item := range owned {
			if item.Image != "" {
				p.Gallery = append(p.Gallery, item.Image)
			}
		}
	}
	sort.SliceStable(owned, func(i, j int) bool { return idValue(owned[i].ID) > idValue(owned[j].ID) })

	pages := (len(owned) + PostsPerPage - 1) / PostsPerPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * PostsPerPage
	end := min(start+PostsPerPage, len(owned))

	follows := store.Read(ctx, s.store, store.UserScope(viewerID), models.SliceFollows, models.FollowGraph{})
	return ProfileView{
		Profile:   p,
		Following: follows[p.ID.String()],
		Posts:     append([]models.ExploreItem{}, owned[start:end]...),
		Page:      page,
		Pages:     pages,
	}, nil
}

// Save stores p as the user's own profile and upserts it into the shared directory.
func (s *ProfileService) Save(ctx context.Context, userID uint, p models.Profile) (models.Profile, error) {
	p.ID = models.IDFromUint(userID)
	p.Fill()

	_, err := store.Update(ctx, s.store, store.SharedScope, models.SliceUsers, []models.Profile{},
		func(users []models.Profile) ([]models.Profile, error) {
			for i := range users {
				if users[i].ID == p.ID {
					users[i] = p
					return users, nil
				}
			}
			return append(users, p), nil
		})
	if err != nil {
		return models.Profile{}, err
	}
	s.store.Set(ctx, store.UserScope(userID), models.SliceCurrentUser, p)

	s.bus.Publish(ctx, notifications.SharedEvent(notifications.EventProfileUpdated, map[string]any{"id": p.ID}))
	return p, nil
}

// idValue orders numeric ids numerically; other ids sort last.
func idValue(id models.RecordID) int64 {
	n, err := strconv.ParseInt(id.String(), 10, 64)
	if err != nil {
		return -1
	}
	return n
}
