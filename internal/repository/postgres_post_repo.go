package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bytechat/internal/model"
	"github.com/lib/pq"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。画像が含まれる場合は同一トランザクションで保存する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		post.ID, post.AuthorID, post.Content, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	for _, img := range post.Images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO post_images (id, post_id, url, alt_text, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			img.ID, post.ID, img.URL, nullString(img.AltText), img.Position,
		)
		if err != nil {
			return fmt.Errorf("画像の作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を投稿者名・画像付きで取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.PostWithAuthor, error) {
	post := &model.PostWithAuthor{}
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.author_id, p.content, p.created_at, u.username
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 WHERE p.id = $1`,
		id,
	).Scan(&post.ID, &post.AuthorID, &post.Content, &post.CreatedAt, &post.AuthorName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}

	images, err := r.loadImages(ctx, []string{post.ID})
	if err != nil {
		return nil, err
	}
	post.Images = images[post.ID]

	return post, nil
}

// ListPage は投稿一覧をcreated_at降順（同時刻はID降順）で取得する。
//
// カーソルは「次ページの先頭になる投稿」のIDで、その行の複合キー (created_at, id) を
// 含めてそれ以下の行を返す。カーソル行が既に削除されている場合、行値比較の右辺が
// NULLになるため結果は空になる。
func (r *PostgresPostRepo) ListPage(ctx context.Context, page PostPage) ([]model.PostWithAuthor, error) {
	query := `
		SELECT p.id, p.author_id, p.content, p.created_at, u.username
		FROM posts p
		JOIN users u ON u.id = p.author_id`

	args := []interface{}{}
	argIndex := 1
	where := ""

	// カーソルベースページネーション: カーソル行自体が次ページの先頭になる
	if page.Cursor != "" {
		where += fmt.Sprintf(" WHERE (p.created_at, p.id) <= (SELECT c.created_at, c.id FROM posts c WHERE c.id = $%d)", argIndex)
		args = append(args, page.Cursor)
		argIndex++
	}

	// 投稿者フィルタ
	if page.AuthorID != "" {
		if where == "" {
			where += " WHERE"
		} else {
			where += " AND"
		}
		where += fmt.Sprintf(" p.author_id = $%d", argIndex)
		args = append(args, page.AuthorID)
		argIndex++
	}

	query += where
	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d", argIndex)
	args = append(args, page.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []model.PostWithAuthor
	var ids []string
	for rows.Next() {
		var p model.PostWithAuthor
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Content, &p.CreatedAt, &p.AuthorName); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}

	if len(ids) == 0 {
		return posts, nil
	}

	images, err := r.loadImages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Images = images[posts[i].ID]
	}

	return posts, nil
}

// DeleteByIDAndAuthor は id と author_id の両方が一致する場合のみ投稿を削除し、
// 削除された行数を返す。read-then-deleteの2段階チェックではなく単一の条件付きDELETEで
// 実行するため、並行する削除リクエスト間で競合しない。
// 関連画像はON DELETE CASCADEで削除される。
func (r *PostgresPostRepo) DeleteByIDAndAuthor(ctx context.Context, id, authorID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1 AND author_id = $2`,
		id, authorID,
	)
	if err != nil {
		return 0, fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// loadImages は複数投稿の画像を1クエリでまとめてロードし、投稿IDごとに返す。
// 表示順はposition昇順（同順はid昇順）。
func (r *PostgresPostRepo) loadImages(ctx context.Context, postIDs []string) (map[string][]model.Image, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, post_id, url, alt_text, position
		 FROM post_images
		 WHERE post_id = ANY($1)
		 ORDER BY position ASC, id ASC`,
		pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("画像の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	images := make(map[string][]model.Image)
	for rows.Next() {
		var img model.Image
		var altText sql.NullString
		if err := rows.Scan(&img.ID, &img.PostID, &img.URL, &altText, &img.Position); err != nil {
			return nil, fmt.Errorf("画像行の読み取りに失敗しました: %w", err)
		}
		img.AltText = nullStringValue(altText)
		images[img.PostID] = append(images[img.PostID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("画像一覧の走査に失敗しました: %w", err)
	}

	return images, nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullStringValue はsql.NullStringから文字列値を取り出す。NULLは空文字列になる。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
