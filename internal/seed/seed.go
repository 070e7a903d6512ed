package seed

import (
	"context"
	"fmt"
	"log/slog"

	"sherise/internal/cache"
	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/repository"
	"sherise/internal/service"
	"sherise/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	NumHirings  int
	MaxFollows  int
	ShouldClean bool
	Password    string
	EmailDomain string
	RandSeed    int64
}

// DefaultOptions seeds a small community suitable for local development.
func DefaultOptions() Options {
	return Options{
		NumUsers:    12,
		NumPosts:    30,
		NumHirings:  8,
		MaxFollows:  4,
		ShouldClean: false,
		Password:    "password123",
		EmailDomain: "sherise.dev",
	}
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.Password == "" {
		o.Password = def.Password
	}
	if o.EmailDomain == "" {
		o.EmailDomain = def.EmailDomain
	}
}

// Result lists what a run created.
type Result struct {
	Members []models.Profile
	Posts   int
	Hirings int
	Follows int
}

// Seeder writes demo data through the services.
type Seeder struct {
	db       *gorm.DB
	rdb      *redis.Client
	opts     Options
	factory  *Factory
	accounts *service.AccountService
	feed     *service.FeedService
	hirings  *service.HiringService
	follows  *service.FollowService
}

// NewSeeder builds a seeder over db. rdb may be nil. Events raised while seeding
// go to a private bus, so nothing is pushed to connected clients.
func NewSeeder(db *gorm.DB, rdb *redis.Client, fx service.Fixtures, jwtSecret string, opts Options) *Seeder {
	opts.normalize()

	st := store.New(repository.NewSliceRepository(db, rdb))
	bus := notifications.NewBus()
	profiles := service.NewProfileService(st, bus, fx)

	return &Seeder{
		db:       db,
		rdb:      rdb,
		opts:     opts,
		factory:  NewFactory(opts),
		accounts: service.NewAccountService(repository.NewAccountRepository(db), st, profiles, jwtSecret),
		feed:     service.NewFeedService(st, bus, fx, profiles),
		hirings:  service.NewHiringService(st, bus, fx),
		follows:  service.NewFollowService(st, bus, profiles),
	}
}

// ClearAll removes every account and stored slice, including cached copies.
func (s *Seeder) ClearAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Slice{}).Error; err != nil {
			return fmt.Errorf("clear slices: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Account{}).Error; err != nil {
			return fmt.Errorf("clear accounts: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := cache.InvalidatePattern(ctx, s.rdb, "slice:*"); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to clear cached slices", slog.String("error", err.Error()))
	}
	middleware.Logger.InfoContext(ctx, "Cleared accounts and slices")
	return nil
}

// Run creates members, a follow mesh, posts and hiring requests.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	members, err := s.SeedMembers(ctx, s.opts.NumUsers)
	if err != nil {
		return nil, err
	}
	res.Members = members

	if res.Follows, err = s.SeedFollows(ctx, members, s.opts.MaxFollows); err != nil {
		return nil, err
	}
	if res.Posts, err = s.SeedPosts(ctx, members, s.opts.NumPosts); err != nil {
		return nil, err
	}
	if res.Hirings, err = s.SeedHirings(ctx, members, s.opts.NumHirings); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "Seeding complete",
		slog.Int("members", len(res.Members)),
		slog.Int("follows", res.Follows),
		slog.Int("posts", res.Posts),
		slog.Int("hirings", res.Hirings),
	)
	return res, nil
}

// SeedMembers signs up n demo members.
func (s *Seeder) SeedMembers(ctx context.Context, n int) ([]models.Profile, error) {
	out := make([]models.Profile, 0, n)
	for i := 0; i < n; i++ {
		res, err := s.accounts.Signup(ctx, s.factory.Signup())
		if err != nil {
			return out, fmt.Errorf("seed member %d: %w", i+1, err)
		}
		out = append(out, res.Profile)
	}
	return out, nil
}

// SeedFollows makes each member follow up to maxFollows of the members after it.
func (s *Seeder) SeedFollows(ctx context.Context, members []models.Profile, maxFollows int) (int, error) {
	count := 0
	for i, m := range members {
		uid, ok := m.ID.Uint()
		if !ok {
			continue
		}
		want := s.factory.faker.Number(0, max(0, maxFollows))
		for j := i + 1; j < len(members) && want > 0; j++ {
			if _, err := s.follows.ToggleFollow(ctx, uid, members[j].ID); err != nil {
				return count, fmt.Errorf("seed follow: %w", err)
			}
			count++
			want--
		}
	}
	return count, nil
}

// SeedPosts spreads n posts over members, using the post mix of each author's category.
func (s *Seeder) SeedPosts(ctx context.Context, members []models.Profile, n int) (int, error) {
	if len(members) == 0 || n <= 0 {
		return 0, nil
	}
	count := 0
	for i, m := range members {
		share := n / len(members)
		if i < n%len(members) {
			share++
		}
		uid, ok := m.ID.Uint()
		if !ok {
			continue
		}

		dist, ok := CategoryDistributions[m.Category]
		if !ok {
			dist = defaultDistribution
		}
		text, image := computeCounts(share, dist)
		for k := 0; k < text+image; k++ {
			content, img := s.factory.Post(m.Category, k >= text)
			if _, err := s.feed.AddPost(ctx, uid, content, img); err != nil {
				return count, fmt.Errorf("seed post: %w", err)
			}
			count++
		}
	}
	return count, nil
}

// SeedHirings posts n hiring requests from randomly chosen members.
func (s *Seeder) SeedHirings(ctx context.Context, members []models.Profile, n int) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}
	count := 0
	for i := 0; i < n; i++ {
		m := members[s.factory.faker.Number(0, len(members)-1)]
		uid, ok := m.ID.Uint()
		if !ok {
			continue
		}
		if _, err := s.hirings.CreateHiring(ctx, uid, s.factory.Hiring()); err != nil {
			return count, fmt.Errorf("seed hiring: %w", err)
		}
		count++
	}
	return count, nil
}
