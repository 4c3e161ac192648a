// Package post は投稿の一覧取得・作成・削除を提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/bytechat/internal/model"
	"github.com/hitoshi/bytechat/internal/repository"
)

// DefaultPageSize は投稿一覧の1回の取得件数（デフォルト）。
const DefaultPageSize = 10

// MaxPageSize は投稿一覧の1回の取得件数の上限。
const MaxPageSize = 100

// Service は投稿管理のサービス。
type Service struct {
	repo      repository.PostRepository
	sanitizer *bluemonday.Policy
}

// NewService はServiceを生成する。
// 投稿本文はプレーンテキストとして扱い、HTMLタグはすべて除去する。
func NewService(repo repository.PostRepository) *Service {
	return &Service{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// ListResult は投稿一覧の1ページ分の結果。
// NextCursorがnilの場合、これ以上のページは存在しないことが確定している。
type ListResult struct {
	Posts      []model.PostWithAuthor
	NextCursor *string
}

// List は投稿一覧をカーソルページネーション付きで返す。
//
// limit+1件を取得し、余分な1件が存在する場合のみその投稿のIDをNextCursorとする。
// 余分な1件はこのページには含めず、次ページの先頭として返される。
// この方式により「ちょうど最終ページが満杯」と「まだ続きがある」を区別できる。
func (s *Service) List(ctx context.Context, cursor, authorID string, limit int) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if cursor != "" && !model.ValidPostID(cursor) {
		return nil, model.ErrInvalidCursor
	}

	rows, err := s.repo.ListPage(ctx, repository.PostPage{
		Cursor:   cursor,
		AuthorID: authorID,
		Limit:    limit + 1,
	})
	if err != nil {
		return nil, err
	}

	result := &ListResult{}
	if len(rows) > limit {
		next := rows[limit].ID
		result.NextCursor = &next
		rows = rows[:limit]
	}
	result.Posts = rows

	return result, nil
}

// Create は投稿を作成し、投稿者名付きで返す。
// 本文はHTMLタグを除去した上で、空白のみの場合はValidationErrorを返す。
// タイムスタンプはサーバー側で付与する。
func (s *Service) Create(ctx context.Context, authorID, content string) (*model.PostWithAuthor, error) {
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, model.NewValidationError("Content must not be empty.")
	}

	id, err := model.NewPostID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate post ID: %w", err)
	}

	p := &model.Post{
		ID:        id,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created post %s not found", id)
	}

	slog.Info("post created",
		slog.String("post_id", id),
		slog.String("user_id", authorID),
	)

	return created, nil
}

// Delete は投稿を削除する。所有者本人の投稿のみ削除できる。
//
// 「存在しない」と「所有していない」は区別せず、どちらもmodel.ErrNotFoundを返す。
// 他人の投稿の存在を漏らさないための仕様。削除自体は単一の条件付きDELETEで行い、
// 並行する削除リクエストでも高々1つだけが成功する。
func (s *Service) Delete(ctx context.Context, userID, postID string) error {
	if !model.ValidPostID(postID) {
		return model.ErrInvalidPostID
	}

	affected, err := s.repo.DeleteByIDAndAuthor(ctx, postID, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrNotFound
	}

	slog.Info("post deleted",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)
	return nil
}
