// Package feedclient はByteChat APIのGoクライアントと
// フィードのクライアントサイドキャッシュを提供する。
package feedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// sessionCookieName はセッショントークンを載せるCookieの名前。
// サーバー側のミドルウェアと一致している必要がある。
const sessionCookieName = "session_token"

// Image はAPIが返す添付画像。
type Image struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	AltText *string `json:"altText,omitempty"`
	Order   int     `json:"order"`
}

// Post はAPIが返す投稿DTO。
type Post struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Images     []Image   `json:"images"`
}

// Page は投稿一覧の1ページ。NextCursorがnilなら続きは存在しない。
type Page struct {
	Posts      []Post  `json:"data"`
	NextCursor *string `json:"nextCursor"`
}

// APIError はAPIが返したエラーレスポンス。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Client はByteChat REST APIのクライアント。
// セッショントークンをCookieとして全リクエストに載せる。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	sessionToken string
	csrfToken    string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// User はログインAPIが返すユーザー情報。
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Login は資格情報でログインし、以後のリクエストで使うセッショントークンを保持する。
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	if err := c.ensureCSRFToken(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			c.sessionToken = cookie.Value
		}
	}
	if c.sessionToken == "" {
		return nil, fmt.Errorf("login response did not set a session cookie")
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &user, nil
}

// FetchPage は投稿一覧の1ページを取得する。
// cursorが空の場合は先頭ページ、userIDが空の場合はグローバルフィードを返す。
// limitが0以下の場合はサーバーのデフォルトページサイズに従う。
func (c *Client) FetchPage(ctx context.Context, cursor, userID string, limit int) (*Page, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if userID != "" {
		q.Set("userId", userID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/posts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return &page, nil
}

// CreatePost は投稿を作成する。
func (c *Client) CreatePost(ctx context.Context, content string) (*Post, error) {
	if err := c.ensureCSRFToken(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode create request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/posts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeAPIError(resp)
	}

	var post Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, fmt.Errorf("failed to decode created post: %w", err)
	}
	return &post, nil
}

// DeletePost は投稿を削除する。
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if err := c.ensureCSRFToken(ctx); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodDelete, "/api/posts/"+postID, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete post failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return decodeAPIError(resp)
	}
	return nil
}

// ensureCSRFToken は状態変更リクエストに必要なCSRFトークンを取得する。
// 既に保持している場合は何もしない。
func (c *Client) ensureCSRFToken(ctx context.Context) error {
	if c.csrfToken != "" {
		return nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/csrf-token", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("csrf token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode csrf token: %w", err)
	}
	c.csrfToken = body.Token
	return nil
}

// newRequest は共通ヘッダーとCookieを設定したリクエストを生成する。
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", "bytechat-client/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.sessionToken})
	}
	if c.csrfToken != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: c.csrfToken})
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}
	return req, nil
}

// decodeAPIError はエラーレスポンスをAPIErrorに変換する。
func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}
