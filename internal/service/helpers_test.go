package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"sherise/internal/fixtures"
	"sherise/internal/notifications"
	"sherise/internal/store"

	"github.com/stretchr/testify/require"
)

const (
	usersFixture = `[
		{"id": 1, "name": "Asha Rao", "business": "Food", "city": "Pune", "bio": "Home baker", "avatar": "/a1.png"},
		{"id": 2, "name": "Meera Shah", "business": "Crafts", "city": "Jaipur", "gallery": ["/g.png"]},
		{"id": 3, "account": {"fullName": "Lata Nair", "email": "lata@example.com"}, "profile": {"businessName": "Spice Co", "cityState": "Kochi, KL"}}
	]`
	postsFixture = `[
		{"id": 100, "userId": 1, "content": "Fresh batch today", "timestamp": "2024-01-01T10:00:00Z", "comments": [{"userId": 2, "text": "Yum"}]},
		{"id": 101, "userId": 2, "content": "New prints", "timestamp": "2024-01-02T10:00:00Z"}
	]`
	hiringsFixture = `[
		{"id": 500, "userId": 2, "userName": "Meera Shah", "title": "Need a tailor", "category": "Clothing & Fashion", "contact": "m@example.com"}
	]`
	exploreFixture = `[
		{"id": 1, "ownerId": 1, "title": "Cookies", "image": "/e1.png"},
		{"id": 2, "ownerId": 1, "title": "Cake", "image": "/e2.png"},
		{"id": 3, "ownerId": 2, "title": "Print", "image": "/e3.png"}
	]`
	productsFixture = `[
		{"name": "Millet cookies", "business": "Asha Bakes", "price": "₹250", "category": "Food"},
		{"name": "Rose serum", "business": "Glow", "price": 499, "category": "Beauty"}
	]`
	trendsFixture = `[
		{"name": "Millet snacks", "category": "Food", "keywords": ["millet"], "trendScore": 82},
		{"name": "Block printing", "category": "Crafts", "keywords": ["print"], "trendScore": 55},
		{"name": "Candles", "category": "Decor", "trendScore": "n/a"}
	]`
)

type testEnv struct {
	store   *store.Store
	bus     *notifications.Bus
	catalog *fixtures.Catalog
	events  *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Name)
	}
	return out
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		fixtures.UsersFile:    usersFixture,
		fixtures.PostsFile:    postsFixture,
		fixtures.HiringsFile:  hiringsFixture,
		fixtures.ExploreFile:  exploreFixture,
		fixtures.ProductsFile: productsFixture,
		fixtures.TrendsFile:   trendsFixture,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	env := &testEnv{
		store:   store.New(store.NewMemoryBackend()),
		bus:     notifications.NewBus(),
		catalog: fixtures.NewCatalog(fixtures.DirSource{Dir: dir}, nil),
		events:  &eventLog{},
	}
	env.bus.Subscribe(notifications.AllEvents, func(_ context.Context, e notifications.Event) {
		env.events.mu.Lock()
		env.events.events = append(env.events.events, e)
		env.events.mu.Unlock()
	})
	return env
}

func (e *testEnv) profiles() *ProfileService {
	return NewProfileService(e.store, e.bus, e.catalog)
}
