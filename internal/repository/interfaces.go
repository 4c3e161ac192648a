// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bytechat/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。メール重複時はmodel.ErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// PostPage は投稿一覧の1ページ分の取得条件。
type PostPage struct {
	// Cursor は次ページの先頭となる投稿のID。その行自体を含めて取得する。
	// 空文字列の場合は先頭から取得する。
	Cursor string
	// AuthorID が空でない場合はその投稿者の投稿に限定する。
	AuthorID string
	// Limit は取得する最大行数。
	Limit int
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// Create は投稿を作成する。画像が含まれる場合は同一トランザクションで保存する。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を投稿者名・画像付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PostWithAuthor, error)

	// ListPage は投稿一覧をcreated_at降順（同時刻はID降順）で取得する。
	// カーソル行が存在しない場合は空の結果を返す。画像も併せてロードする。
	ListPage(ctx context.Context, page PostPage) ([]model.PostWithAuthor, error)

	// DeleteByIDAndAuthor は id と author_id の両方が一致する場合のみ投稿を削除し、
	// 削除された行数を返す。所有確認と削除を1つのアトミックな操作で行う。
	DeleteByIDAndAuthor(ctx context.Context, id, authorID string) (int64, error)
}
