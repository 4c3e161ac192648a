package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/bytechat/internal/config"
	"github.com/hitoshi/bytechat/internal/feedclient"
)

// postLister はウォッチ対象のフィードを抽象化する。feedclient.Cacheが満たす。
type postLister interface {
	Posts() []feedclient.Post
}

// watcher はフィードの新着投稿を検出して出力する。
type watcher struct {
	feed postLister
	out  io.Writer
	seen map[string]bool
}

func newWatcher(feed postLister, out io.Writer) *watcher {
	return &watcher{
		feed: feed,
		out:  out,
		seen: make(map[string]bool),
	}
}

// emitNew は未出力の投稿を古い順に出力し、出力した件数を返す。
// フィードは新しい順で返るため、末尾から走査する。
func (w *watcher) emitNew() int {
	posts := w.feed.Posts()
	emitted := 0
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		if w.seen[p.ID] {
			continue
		}
		w.seen[p.ID] = true
		fmt.Fprintf(w.out, "[%s] %s: %s\n",
			p.CreatedAt.Format(time.RFC3339), p.AuthorName, p.Content)
		emitted++
	}
	return emitted
}

// runWatch はフィードをポーリングして新着投稿を標準出力に表示する。
// WATCH_EMAILとWATCH_PASSWORDの資格情報でログインし、
// SIGINTまたはSIGTERMを受信するまで動作し続ける。
func runWatch(cfg *config.Config, out io.Writer) error {
	email := os.Getenv("WATCH_EMAIL")
	password := os.Getenv("WATCH_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("WATCH_EMAIL and WATCH_PASSWORD must be set for watch mode")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := feedclient.NewClient(cfg.BaseURL, nil, slog.Default())
	user, err := client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("watch login failed: %w", err)
	}
	slog.Info("watch session established",
		slog.String("username", user.Username),
	)

	cache := feedclient.NewCache(client, "", cfg.FeedPageSize, slog.Default())
	if err := cache.Load(ctx); err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}

	w := newWatcher(cache, out)
	w.emitNew()

	cache.StartAutoRefresh(ctx, cfg.FeedRefreshInterval)

	slog.Info("watching feed",
		slog.Duration("interval", cfg.FeedRefreshInterval),
		slog.Int("page_size", cfg.FeedPageSize),
	)

	ticker := time.NewTicker(cfg.FeedRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped")
			return nil
		case <-ticker.C:
			if n := w.emitNew(); n > 0 {
				slog.Info("new posts", slog.Int("count", n))
			}
		}
	}
}
