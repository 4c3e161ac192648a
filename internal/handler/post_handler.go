package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bytechat/internal/metrics"
	"github.com/hitoshi/bytechat/internal/middleware"
	"github.com/hitoshi/bytechat/internal/model"
	"github.com/hitoshi/bytechat/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// List は投稿一覧をカーソルページネーション付きで返す。
	List(ctx context.Context, cursor, authorID string, limit int) (*post.ListResult, error)
	// Create は投稿を作成し、投稿者名を含むモデルを返す。
	Create(ctx context.Context, authorID, content string) (*model.PostWithAuthor, error)
	// Delete は投稿者本人による投稿削除を行う。
	Delete(ctx context.Context, userID, postID string) error
}

// PostHandler は投稿のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	metrics metrics.MetricsCollector
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, collector metrics.MetricsCollector) *PostHandler {
	return &PostHandler{
		service: service,
		metrics: collector,
	}
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Content string `json:"content" validate:"required"`
}

// imageResponse は添付画像のAPIレスポンス。
type imageResponse struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	AltText *string `json:"altText,omitempty"`
	Order   int     `json:"order"`
}

// postResponse は投稿のAPIレスポンス。
// imagesは添付がない場合も必ず空配列となる（nullにはならない）。
type postResponse struct {
	ID         string          `json:"id"`
	Content    string          `json:"content"`
	CreatedAt  time.Time       `json:"createdAt"`
	AuthorID   string          `json:"authorId"`
	AuthorName string          `json:"authorName"`
	Images     []imageResponse `json:"images"`
}

// listPostsResponse は投稿一覧のAPIレスポンス。
// nextCursorは続きが存在しない場合にnullとなる。
type listPostsResponse struct {
	Data       []postResponse `json:"data"`
	NextCursor *string        `json:"nextCursor"`
}

// ListPosts は投稿一覧を取得する。
// GET /api/posts?limit=<int>&cursor=<postId>&userId=<id>
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	cursor := q.Get("cursor")
	authorID := q.Get("userId")

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	result, err := h.service.List(r.Context(), cursor, authorID, limit)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCursor) {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
		slog.Error("failed to list posts", slog.String("error", err.Error()))
		middleware.WriteError(w, http.StatusInternalServerError, "Unable to fetch posts")
		return
	}

	resp := listPostsResponse{
		Data:       make([]postResponse, 0, len(result.Posts)),
		NextCursor: result.NextCursor,
	}
	for i := range result.Posts {
		resp.Data = append(resp.Data, toPostResponse(&result.Posts[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreatePost は投稿作成を処理する。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if msg := validateStruct(req); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.service.Create(r.Context(), userID, req.Content)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			middleware.WriteError(w, http.StatusBadRequest, verr.Message)
			return
		}
		slog.Error("failed to create post", slog.String("error", err.Error()))
		middleware.WriteError(w, http.StatusInternalServerError, "Could not create post")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPostCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPostResponse(created))
}

// DeletePost は投稿者本人による投稿削除を処理する。
// DELETE /api/posts/{id}
//
// 存在しない投稿と他人の投稿はどちらも404を返し、区別できない。
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	postID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, postID); err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidPostID):
			middleware.WriteError(w, http.StatusBadRequest, "Invalid post id")
		case errors.Is(err, model.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Post not found")
		default:
			slog.Error("failed to delete post", slog.String("error", err.Error()))
			middleware.WriteError(w, http.StatusInternalServerError, "Could not delete post")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPostDeleted()
	}

	w.WriteHeader(http.StatusNoContent)
}

// toPostResponse はmodel.PostWithAuthorからAPIレスポンスに変換する。
func toPostResponse(p *model.PostWithAuthor) postResponse {
	images := make([]imageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		resp := imageResponse{
			ID:    img.ID,
			URL:   img.URL,
			Order: img.Position,
		}
		if img.AltText != "" {
			alt := img.AltText
			resp.AltText = &alt
		}
		images = append(images, resp)
	}

	return postResponse{
		ID:         p.ID,
		Content:    p.Content,
		CreatedAt:  p.CreatedAt,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		Images:     images,
	}
}
