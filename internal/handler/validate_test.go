package handler

import (
	"strings"
	"testing"
)

func TestValidateStruct_ValidSignup_ReturnsEmpty(t *testing.T) {
	req := signupRequest{Email: "alice@example.com", Password: "secret1"}
	if msg := validateStruct(req); msg != "" {
		t.Errorf("message = %q, want empty", msg)
	}
}

func TestValidateStruct_InvalidEmail(t *testing.T) {
	req := signupRequest{Email: "not-an-email", Password: "secret1"}
	if msg := validateStruct(req); msg != "Invalid email" {
		t.Errorf("message = %q, want %q", msg, "Invalid email")
	}
}

func TestValidateStruct_ShortPassword(t *testing.T) {
	req := signupRequest{Email: "alice@example.com", Password: "abc"}
	if msg := validateStruct(req); msg != "Password must be at least 6 characters." {
		t.Errorf("message = %q", msg)
	}
}

func TestValidateStruct_MissingPassword(t *testing.T) {
	req := loginRequest{Email: "alice@example.com"}
	if msg := validateStruct(req); msg != "Password is required." {
		t.Errorf("message = %q", msg)
	}
}

func TestValidateStruct_MultipleErrors_Aggregated(t *testing.T) {
	req := signupRequest{Email: "bad", Password: "abc"}
	msg := validateStruct(req)
	if !strings.Contains(msg, "Invalid email") || !strings.Contains(msg, "Password must be at least 6 characters.") {
		t.Errorf("aggregated message = %q", msg)
	}
}

func TestValidateStruct_EmptyContent(t *testing.T) {
	req := createPostRequest{Content: ""}
	if msg := validateStruct(req); msg != "Content must not be empty." {
		t.Errorf("message = %q", msg)
	}
}
