package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bytechat/internal/middleware"
	"github.com/hitoshi/bytechat/internal/model"
	"github.com/hitoshi/bytechat/internal/post"
)

type routerVerifier struct {
	validToken string
}

func (v *routerVerifier) VerifySession(token string) (*model.Session, error) {
	if token == v.validToken {
		return &model.Session{UserID: "user-1", Username: "alice"}, nil
	}
	return nil, errors.New("invalid token")
}

type okPinger struct{}

func (okPinger) PingContext(ctx context.Context) error { return nil }

type failPinger struct{}

func (failPinger) PingContext(ctx context.Context) error { return errors.New("down") }

func newTestRouter(t *testing.T, pinger HealthChecker) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(1000, 1000))
	t.Cleanup(rl.Stop)

	postService := &mockPostService{
		listFn: func(ctx context.Context, cursor, authorID string, limit int) (*post.ListResult, error) {
			return &post.ListResult{Posts: []model.PostWithAuthor{samplePost("aaaaaaaaaaaaaaaaaaaaaaaa")}}, nil
		},
		createFn: func(ctx context.Context, authorID, content string) (*model.PostWithAuthor, error) {
			p := samplePost("bbbbbbbbbbbbbbbbbbbbbbbb")
			p.Content = content
			p.CreatedAt = time.Now()
			return &p, nil
		},
	}

	return NewRouter(&RouterDeps{
		SessionVerifier:   &routerVerifier{validToken: "valid-token"},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		CSRFConfig:        middleware.CSRFConfig{},
		HealthChecker:     pinger,
		AuthService:       &mockAuthService{},
		PostService:       postService,
	})
}

func TestRouter_Health_Returns200(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if body := w.Body.String(); body != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestRouter_Health_DBDown_Returns503(t *testing.T) {
	router := newTestRouter(t, failPinger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
}

func TestRouter_ListPosts_WithoutSession_Returns401(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_ListPosts_WithValidSession_Returns200(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "aaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Errorf("body %q missing post", w.Body.String())
	}
}

func TestRouter_CreatePost_WithoutCSRFToken_Returns403(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"content":"x"}`))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRouter_CreatePost_WithSessionAndCSRF_Returns201(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"content":"hello"}`))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid-token"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d: %s", w.Result().StatusCode, http.StatusCreated, w.Body.String())
	}
}

func TestRouter_HomeWithoutSession_RedirectsToLogin(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	for _, path := range []string{"/home", "/home/latest", "/profile", "/profile/settings"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusFound {
			t.Errorf("%s: status = %d, want %d", path, resp.StatusCode, http.StatusFound)
		}
		if loc := resp.Header.Get("Location"); loc != "/login" {
			t.Errorf("%s: Location = %q, want /login", path, loc)
		}
	}
}

func TestRouter_HomeWithSession_ServesPageShell(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `data-page="home"`) {
		t.Errorf("body missing home page shell")
	}
}

func TestRouter_LoginPage_IsPublic(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	for _, path := range []string{"/login", "/signup"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", path, w.Result().StatusCode, http.StatusOK)
		}
	}
}

func TestRouter_PreflightRequest_Returns204WithCORSHeaders(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", origin)
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Allow-Credentials not set")
	}
}

func TestRouter_SecurityHeaders_AppliedToAllRoutes(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("X-Content-Type-Options not set")
	}
	if w.Result().Header.Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options not set")
	}
}

func TestRouter_StaticAssets_ArePublic(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	for _, path := range []string{"/static/app.css", "/static/app.js"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", path, w.Result().StatusCode, http.StatusOK)
		}
		if w.Body.Len() == 0 {
			t.Errorf("%s: expected non-empty body", path)
		}
	}
}

func TestRouter_SignupWithCSRF_ReachesHandler(t *testing.T) {
	router := newTestRouter(t, okPinger{})

	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"email":"alice@example.com","password":"secret1"}`))
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d: %s", w.Result().StatusCode, http.StatusCreated, w.Body.String())
	}
}
