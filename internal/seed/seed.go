// Package seed は開発・デモ用の初期データ投入を提供する。
package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bytechat/internal/model"
	"github.com/hitoshi/bytechat/internal/repository"
)

const (
	usersToCreate = 6
	postsPerUser  = 10
	bcryptCost    = 10

	// createdAtSpread は投稿の作成時刻を散らす過去の期間。
	createdAtSpread = 14 * 24 * time.Hour
)

// usernames は投入するデモユーザーの表示名。
var usernames = []string{
	"nova_hart",
	"miko_tan",
	"jules_v",
	"rin_ok",
	"casey_lumen",
	"theo_branch",
}

// sentences は投稿本文の素材。1〜3文を組み合わせる。
var sentences = []string{
	"Shipped a tiny feature today and it felt great.",
	"Coffee first, code second.",
	"Refactoring is just tidying up with extra steps.",
	"Finally fixed that flaky test.",
	"Weekend project: a feed reader that reads itself.",
	"Pagination is harder than it looks.",
	"Today I learned something about cursors.",
	"Deleted more code than I wrote. A good day.",
	"The best error message is the one you never see.",
	"Writing docs so future me stops complaining.",
}

// Seeder はデモデータの投入を行う。
type Seeder struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	logger *slog.Logger

	// rng は画像数・本文・作成時刻の決定に使う。固定シードで再現可能。
	rng *mrand.Rand
	now func() time.Time
}

// New はSeederを生成する。
func New(users repository.UserRepository, posts repository.PostRepository, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		users:  users,
		posts:  posts,
		logger: logger,
		rng:    mrand.New(mrand.NewSource(20260801)),
		now:    time.Now,
	}
}

// Run はデモユーザーと投稿を投入する。
// ユーザーはメールアドレス単位で冪等（既存ユーザーはスキップし、投稿も追加しない）。
func (s *Seeder) Run(ctx context.Context) error {
	seededUsers := 0
	seededPosts := 0

	for i := 0; i < usersToCreate; i++ {
		username := usernames[i]
		email := fmt.Sprintf("%s@bytechat.io", username)

		existing, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to look up user %s: %w", email, err)
		}
		if existing != nil {
			s.logger.Info("seed user already exists, skipping",
				slog.String("email", email),
			)
			continue
		}

		user, err := s.createUser(ctx, email, username)
		if err != nil {
			return err
		}
		seededUsers++

		for p := 0; p < postsPerUser; p++ {
			if err := s.createPost(ctx, user, p); err != nil {
				return err
			}
			seededPosts++
		}
	}

	s.logger.Info("seeding completed",
		slog.Int("users", seededUsers),
		slog.Int("posts", seededPosts),
	)
	return nil
}

// createUser はランダムパスワードのデモユーザーを作成する。
func (s *Seeder) createUser(ctx context.Context, email, username string) (*model.User, error) {
	password, err := randomPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Username:     username,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return user, nil
}

// createPost は0〜3枚の画像付き投稿を1件作成する。
// 画像URLのシードはユーザー名と連番から決定的に導出される。
func (s *Seeder) createPost(ctx context.Context, user *model.User, index int) error {
	postID, err := model.NewPostID()
	if err != nil {
		return fmt.Errorf("failed to generate post id: %w", err)
	}

	imageCount := s.rng.Intn(4)
	images := make([]model.Image, 0, imageCount)
	for idx := 0; idx < imageCount; idx++ {
		seed := fmt.Sprintf("%s-%d-%d", user.Username, index, idx)
		images = append(images, model.Image{
			ID:       uuid.NewString(),
			PostID:   postID,
			URL:      picsumURL(seed),
			AltText:  fmt.Sprintf("Mock image %s", seed),
			Position: idx,
		})
	}

	createdAt := s.now().Add(-time.Duration(s.rng.Int63n(int64(createdAtSpread))))

	post := &model.Post{
		ID:        postID,
		AuthorID:  user.ID,
		Content:   s.randomContent(),
		CreatedAt: createdAt,
		Images:    images,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return fmt.Errorf("failed to create post for %s: %w", user.Username, err)
	}
	return nil
}

// randomContent は1〜3文の本文を組み立てる。
func (s *Seeder) randomContent() string {
	count := 1 + s.rng.Intn(3)
	content := ""
	for i := 0; i < count; i++ {
		if i > 0 {
			content += " "
		}
		content += sentences[s.rng.Intn(len(sentences))]
	}
	return content
}

// picsumURL はLorem PicsumのシードつきURLを返す。
// シードが同じなら同じ画像が返るため、再実行してもURLは安定する。
func picsumURL(seed string) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/1200/900", url.PathEscape(seed))
}

// randomPassword は暗号学的に安全なランダムパスワードを生成する。
func randomPassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
