// Package model はドメインモデルを定義する。
package model

import "errors"

// サービス層が返す番兵エラー。
// ハンドラーはこれらをspec通りの固定レスポンスに対応付ける。
var (
	// ErrNotFound は対象が存在しない、または操作者が所有していないことを表す。
	// 存在の有無を漏らさないため、両者は区別しない。
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken は同一メールアドレスのユーザーが既に存在することを表す。
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials はメールアドレスまたはパスワードの不一致を表す。
	// どちらが誤っているかは区別しない。
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidPostID は投稿IDが24文字16進の形式を満たさないことを表す。
	ErrInvalidPostID = errors.New("invalid post id")

	// ErrInvalidCursor はカーソルが投稿IDの形式を満たさないことを表す。
	ErrInvalidCursor = errors.New("invalid cursor")
)

// ValidationError は入力検証の失敗を表す。
// Messageはフィールドごとのメッセージを集約した、人間が読める1つの文字列。
type ValidationError struct {
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError は検証エラーを生成する。
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
