package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/bytechat/internal/middleware"
	"github.com/hitoshi/bytechat/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn      func(ctx context.Context, email, password string) (string, error)
	loginFn       func(ctx context.Context, email, password string) (*model.User, string, error)
	currentUserFn func(ctx context.Context, token string) (*model.User, error)

	signupCalls int
	loginCalls  int
}

func (m *mockAuthService) Signup(ctx context.Context, email, password string) (string, error) {
	m.signupCalls++
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password)
	}
	return "user-1", nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	m.loginCalls++
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, "", model.ErrInvalidCredentials
}

func (m *mockAuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, token)
	}
	return nil, nil
}

func decodeErrorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

// --- Signup のテスト ---

func TestSignup_Success_Returns201(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, email, password string) (string, error) {
			if email != "alice@example.com" {
				t.Errorf("email = %q, want %q", email, "alice@example.com")
			}
			return "user-1", nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"email":"alice@example.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["message"] != "User created" {
		t.Errorf("message = %q, want %q", body["message"], "User created")
	}
}

func TestSignup_InvalidEmail_Returns400BeforeService(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"email":"not-an-email","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if msg := decodeErrorBody(t, resp); msg != "Invalid email" {
		t.Errorf("error = %q, want %q", msg, "Invalid email")
	}
	if service.signupCalls != 0 {
		t.Errorf("service called %d times, want 0", service.signupCalls)
	}
}

func TestSignup_ShortPassword_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"email":"alice@example.com","password":"abc"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if msg := decodeErrorBody(t, resp); msg != "Password must be at least 6 characters." {
		t.Errorf("error = %q", msg)
	}
}

func TestSignup_InvalidEmailAndShortPassword_AggregatesMessages(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"email":"bad","password":"abc"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	msg := decodeErrorBody(t, w.Result())
	if !strings.Contains(msg, "Invalid email") {
		t.Errorf("aggregated message %q missing email error", msg)
	}
	if !strings.Contains(msg, "Password must be at least 6 characters.") {
		t.Errorf("aggregated message %q missing password error", msg)
	}
}

func TestSignup_EmailTaken_Returns409(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, email, password string) (string, error) {
			return "", model.ErrEmailTaken
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"email":"taken@example.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
}

func TestSignup_MalformedJSON_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- Login のテスト ---

func TestLogin_Success_SetsSessionCookieAndReturnsUser(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return &model.User{ID: "user-1", Email: "alice@example.com", Username: "alice"},
				"signed-token", nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{SessionMaxAge: 86400}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"alice@example.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ID != "user-1" || body.Email != "alice@example.com" || body.Username != "alice" {
		t.Errorf("unexpected user body: %+v", body)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("session cookie not set")
	}
	if sessionCookie.Value != "signed-token" {
		t.Errorf("cookie value = %q, want %q", sessionCookie.Value, "signed-token")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if sessionCookie.MaxAge != 86400 {
		t.Errorf("cookie MaxAge = %d, want 86400", sessionCookie.MaxAge)
	}
}

func TestLogin_ResponseNeverContainsPasswordHash(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return &model.User{
				ID:           "user-1",
				Email:        "alice@example.com",
				PasswordHash: "$2a$10$secret-hash",
			}, "signed-token", nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"alice@example.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if strings.Contains(w.Body.String(), "secret-hash") {
		t.Error("response body leaks the password hash")
	}
}

func TestLogin_InvalidCredentials_Returns401(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return nil, "", model.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"alice@example.com","password":"wrongpw"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if msg := decodeErrorBody(t, resp); msg != "Invalid email or password" {
		t.Errorf("error = %q, want %q", msg, "Invalid email or password")
	}
	if len(resp.Cookies()) != 0 {
		t.Error("no cookies should be set on failed login")
	}
}

// --- Logout のテスト ---

func TestLogout_ExpiresCookieAndReturns204(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expiring session cookie not set")
	}
	if sessionCookie.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want negative (expired)", sessionCookie.MaxAge)
	}
}

// --- Me のテスト ---

func TestMe_NoCookie_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestMe_InvalidToken_Returns401(t *testing.T) {
	service := &mockAuthService{
		currentUserFn: func(ctx context.Context, token string) (*model.User, error) {
			return nil, nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "bad-token"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestMe_ValidToken_ReturnsUser(t *testing.T) {
	service := &mockAuthService{
		currentUserFn: func(ctx context.Context, token string) (*model.User, error) {
			if token != "good-token" {
				t.Errorf("token = %q, want %q", token, "good-token")
			}
			return &model.User{ID: "user-1", Email: "alice@example.com", Username: "alice"}, nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "good-token"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Username != "alice" {
		t.Errorf("username = %q, want %q", body.Username, "alice")
	}
}
