// Package model はドメインモデルを定義する。
package model

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"time"
)

// Post は投稿を表す。
// IDは24文字の16進トークン。CreatedAtがフィードの唯一のソートキーであり、
// 同時刻の投稿はIDで順序を安定化する。
type Post struct {
	ID        string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	Images    []Image
}

// Image は投稿に添付された画像を表す。
// 投稿に対してカスケード削除される。Positionは表示順で、連番である必要はない。
type Image struct {
	ID       string
	PostID   string
	URL      string
	AltText  string
	Position int
}

// PostWithAuthor は投稿と投稿者の表示名を結合したモデル。
// usersテーブルとJOINして取得される。
type PostWithAuthor struct {
	Post
	AuthorName string
}

// postIDPattern は投稿IDの形式（24文字の16進数）。
var postIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// NewPostID は24文字の16進投稿IDを生成する。
func NewPostID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidPostID はidが投稿IDの形式を満たすかを返す。
func ValidPostID(id string) bool {
	return postIDPattern.MatchString(id)
}
