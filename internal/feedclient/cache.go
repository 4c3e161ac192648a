package feedclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PageSource はキャッシュがページ取得と削除に使うインターフェース。
// Clientがこれを満たす。
type PageSource interface {
	FetchPage(ctx context.Context, cursor, userID string, limit int) (*Page, error)
	DeletePost(ctx context.Context, postID string) error
}

// Cache はフィードのページ列を保持するクライアントサイドキャッシュ。
//
// ページ0のキーはカーソルなし、ページk(>0)のキーは直前のページのnextCursor。
// 直前のページのnextCursorがnilであれば次のキーは導出されず、
// ページネーションはそこで停止する（空ページの観測ではなく番兵で止まる）。
type Cache struct {
	source PageSource
	logger *slog.Logger

	// フィードの固定パラメータ
	userID string
	limit  int

	mu        sync.Mutex
	pages     []Page
	loaded    bool
	suspended bool
}

// NewCache はCacheを生成する。
// userIDが空の場合はグローバルフィード、limitが0以下の場合はサーバーのデフォルトに従う。
func NewCache(source PageSource, userID string, limit int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source: source,
		logger: logger,
		userID: userID,
		limit:  limit,
	}
}

// Load は先頭ページを取得し、保持中のページ列を置き換える。
func (c *Cache) Load(ctx context.Context) error {
	page, err := c.source.FetchPage(ctx, "", c.userID, c.limit)
	if err != nil {
		return fmt.Errorf("failed to load first page: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = []Page{*page}
	c.loaded = true
	return nil
}

// LoadMore は最後のページのnextCursorから次のページを取得して追加する。
// まだ先頭ページを取得していない場合は先頭ページを取得する。
// 番兵（nextCursor == nil）に達している場合は何も取得せずfalseを返す。
func (c *Cache) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		if err := c.Load(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	last := c.pages[len(c.pages)-1]
	if last.NextCursor == nil {
		c.mu.Unlock()
		return false, nil
	}
	cursor := *last.NextCursor
	c.mu.Unlock()

	page, err := c.source.FetchPage(ctx, cursor, c.userID, c.limit)
	if err != nil {
		return false, fmt.Errorf("failed to load next page: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = append(c.pages, *page)
	return true, nil
}

// Refresh は先頭ページのみを再取得して新着投稿を反映する。
// 後続ページは保持したままとなる。
func (c *Cache) Refresh(ctx context.Context) error {
	page, err := c.source.FetchPage(ctx, "", c.userID, c.limit)
	if err != nil {
		return fmt.Errorf("failed to refresh first page: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pages) == 0 {
		c.pages = []Page{*page}
	} else {
		c.pages[0] = *page
	}
	c.loaded = true
	return nil
}

// RefetchAll は保持中のページ数を上限として、先頭からカーソル連鎖を
// たどり直して全ページを再取得する。番兵に達した時点で打ち切る。
func (c *Cache) RefetchAll(ctx context.Context) error {
	c.mu.Lock()
	count := len(c.pages)
	c.mu.Unlock()

	if count == 0 {
		count = 1
	}

	fresh := make([]Page, 0, count)
	cursor := ""
	for i := 0; i < count; i++ {
		page, err := c.source.FetchPage(ctx, cursor, c.userID, c.limit)
		if err != nil {
			return fmt.Errorf("failed to refetch page %d: %w", i, err)
		}
		fresh = append(fresh, *page)
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = fresh
	c.loaded = true
	return nil
}

// Posts は保持中の全ページの投稿を順に平坦化して返す。
func (c *Cache) Posts() []Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	var posts []Post
	for _, page := range c.pages {
		posts = append(posts, page.Posts...)
	}
	return posts
}

// Pages は保持中のページ列のコピーを返す。
func (c *Cache) Pages() []Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyPages(c.pages)
}

// Delete は楽観的削除を行う。
//
//  1. 現在の全ページのスナップショットを取る
//  2. 対象の投稿を全ページからフィルタした状態を即座に適用する（再取得はしない）
//  3. 削除リクエストを発行する
//  4. 成功時は全ページを再取得して整合させる
//  5. 失敗時はスナップショットをそのまま復元し、エラーを返す
//
// 失敗のたびに現在の状態からスナップショットを取り直すため、
// 削除を再試行しても二重除去は起きない。
func (c *Cache) Delete(ctx context.Context, postID string) error {
	c.mu.Lock()
	snapshot := copyPages(c.pages)

	filtered := make([]Page, len(c.pages))
	for i, page := range c.pages {
		kept := make([]Post, 0, len(page.Posts))
		for _, post := range page.Posts {
			if post.ID != postID {
				kept = append(kept, post)
			}
		}
		filtered[i] = Page{Posts: kept, NextCursor: page.NextCursor}
	}
	c.pages = filtered
	c.mu.Unlock()

	if err := c.source.DeletePost(ctx, postID); err != nil {
		// 部分的なロールバックはせず、スナップショットをそのまま戻す
		c.mu.Lock()
		c.pages = snapshot
		c.mu.Unlock()
		return err
	}

	if err := c.RefetchAll(ctx); err != nil {
		c.logger.Warn("refetch after delete failed",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Suspend は自動リフレッシュを一時停止する。
// ページが非表示の間の無駄な再取得を避けるために使う。
func (c *Cache) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = true
}

// Resume は自動リフレッシュを再開する。
func (c *Cache) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = false
}

// StartAutoRefresh は一定間隔で先頭ページを再取得するループを開始する。
// Suspend中はスキップする。ctxのキャンセルで停止する。
func (c *Cache) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				suspended := c.suspended
				c.mu.Unlock()
				if suspended {
					continue
				}

				if err := c.Refresh(ctx); err != nil {
					c.logger.Warn("auto refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// copyPages はページ列のディープコピーを返す。
func copyPages(pages []Page) []Page {
	cloned := make([]Page, len(pages))
	for i, page := range pages {
		posts := make([]Post, len(page.Posts))
		copy(posts, page.Posts)
		cloned[i] = Page{Posts: posts, NextCursor: page.NextCursor}
	}
	return cloned
}
