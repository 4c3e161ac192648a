// Package auth はメール/パスワード認証とセッショントークン管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bytechat/internal/model"
	"github.com/hitoshi/bytechat/internal/repository"
)

// bcryptCost はパスワードハッシュのコストパラメータ。
const bcryptCost = 10

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	codec    *TokenCodec
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, codec *TokenCodec) *Service {
	return &Service{
		userRepo: userRepo,
		codec:    codec,
	}
}

// Signup は新規ユーザーを登録する。
// メールアドレス重複時はmodel.ErrEmailTakenを返す。表示名は空文字列で開始する。
// パスワードハッシュをレスポンスに含めないため、戻り値はユーザーIDのみ。
func (s *Service) Signup(ctx context.Context, email, password string) (string, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return "", model.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Username:     "",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// FindByEmailとCreateの間の競合はDBの一意制約が拾う
	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", err
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return user.ID, nil
}

// Login は資格情報を検証し、セッショントークンとユーザーを返す。
// 未登録メール・パスワード不一致はいずれもmodel.ErrInvalidCredentialsとなり区別しない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, token, nil
}

// CurrentUser はセッショントークンから現在のユーザーを取得する。
// トークンが無効な場合や対応するユーザーが存在しない場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
