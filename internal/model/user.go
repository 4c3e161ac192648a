// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはAPIレスポンスに含めてはならない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Username     string // 表示名。登録直後は空文字列
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
