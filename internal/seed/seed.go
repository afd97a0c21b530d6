// Package seed fills a database with demo users, follows, posts and
// engagement. It is meant for development and tests only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"minisocial/internal/middleware"
	"minisocial/internal/models"
	"minisocial/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the plain-text password every seeded user gets.
const DefaultPassword = "password123"

// Options controls how much data SeedSocialMesh generates.
type Options struct {
	Users          int
	PostsPerUser   int
	FollowsPerUser int
	// LikeChance and CommentChance are per (post, other user) probabilities
	// in [0, 1].
	LikeChance    float64
	CommentChance float64
	// SkipBcrypt stores DefaultPassword unhashed, which is much faster.
	SkipBcrypt bool
	// RandSeed makes runs reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions is a small but connected graph.
func DefaultOptions() Options {
	return Options{
		Users:          20,
		PostsPerUser:   3,
		FollowsPerUser: 5,
		LikeChance:     0.2,
		CommentChance:  0.05,
	}
}

// Summary counts what a seeding run created.
type Summary struct {
	Users    int
	Follows  int
	Posts    int
	Likes    int
	Comments int
}

// Seeder writes through the repositories so seeded data obeys the same
// rules as data created over the API.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	follows  repository.FollowRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	faker    *gofakeit.Faker
	rng      *rand.Rand
	opts     Options
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		follows:  repository.NewFollowRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		faker:    gofakeit.New(seed),
		rng:      rand.New(rand.NewSource(seed)),
		opts:     opts,
	}
}

// ClearAll removes every seeded row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, table := range []string{"post_comments", "post_likes", "posts", "follows", "users"} {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "cleared seeded tables")
	return nil
}

func (s *Seeder) password() (string, error) {
	if s.opts.SkipBcrypt {
		return DefaultPassword, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CreateUser persists a user with a generated bio and avatar. An empty
// username is replaced by a generated one.
func (s *Seeder) CreateUser(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		username = fmt.Sprintf("%s%d", s.faker.Username(), s.faker.Number(100, 999))
	}
	pw, err := s.password()
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:      username,
		Password:      pw,
		Bio:           s.faker.Sentence(10),
		ProfilePicURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}
	return user, nil
}

// SeedSocialMesh creates Options.Users users, a random follow graph and
// posts with likes and comments from other users.
func (s *Seeder) SeedSocialMesh(ctx context.Context) (Summary, error) {
	var sum Summary

	users := make([]*models.User, 0, s.opts.Users)
	taken := make(map[string]struct{}, s.opts.Users)
	for len(users) < s.opts.Users {
		name := fmt.Sprintf("%s%d", s.faker.Username(), s.faker.Number(100, 999))
		if _, dup := taken[name]; dup {
			continue
		}
		taken[name] = struct{}{}
		u, err := s.CreateUser(ctx, name)
		if err != nil {
			return sum, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	for _, u := range users {
		n, err := s.seedFollows(ctx, u, users)
		if err != nil {
			return sum, err
		}
		sum.Follows += n
	}

	for _, author := range users {
		for range s.opts.PostsPerUser {
			post := &models.Post{
				UserID:      author.ID,
				ContentText: s.faker.Paragraph(1, 3, 8, "\n"),
			}
			if s.rng.Intn(4) == 0 {
				post.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID())
			}
			if err := s.posts.Create(ctx, post); err != nil {
				return sum, err
			}
			sum.Posts++

			likes, comments, err := s.seedEngagement(ctx, post, users)
			if err != nil {
				return sum, err
			}
			sum.Likes += likes
			sum.Comments += comments
		}
	}

	middleware.Logger.InfoContext(ctx, "seeded social mesh",
		slog.Int("users", sum.Users),
		slog.Int("follows", sum.Follows),
		slog.Int("posts", sum.Posts),
		slog.Int("likes", sum.Likes),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}

func (s *Seeder) seedFollows(ctx context.Context, u *models.User, users []*models.User) (int, error) {
	want := min(s.opts.FollowsPerUser, len(users)-1)
	count := 0
	for _, i := range s.rng.Perm(len(users)) {
		if count >= want {
			break
		}
		target := users[i]
		if target.ID == u.ID {
			continue
		}
		if _, err := s.follows.Toggle(ctx, u.ID, target.ID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Seeder) seedEngagement(ctx context.Context, post *models.Post, users []*models.User) (likes, comments int, err error) {
	for _, u := range users {
		if u.ID == post.UserID {
			continue
		}
		if s.rng.Float64() < s.opts.LikeChance {
			if _, err := s.posts.ToggleLike(ctx, post.ID, u.ID); err != nil {
				return likes, comments, err
			}
			likes++
		}
		if s.rng.Float64() < s.opts.CommentChance {
			c := &models.Comment{PostID: post.ID, UserID: u.ID, CommentText: s.faker.Sentence(8)}
			if _, err := s.comments.Append(ctx, c); err != nil {
				return likes, comments, err
			}
			comments++
		}
	}
	return likes, comments, nil
}
