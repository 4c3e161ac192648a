package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/bytechat/internal/model"
)

// SessionClaims はセッショントークンのクレーム。
// ユーザーIDに加え、クライアントに表示名をエコーバックするためusernameを含む。
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenCodec は署名付きセッショントークンの発行と検証を行う。
// セッションは主ストアに永続化せず、HMAC署名されたJWTとしてCookieに載せる。
type TokenCodec struct {
	secret []byte
	maxAge time.Duration
	issuer string
}

// NewTokenCodec はTokenCodecを生成する。
// maxAgeSecondsはトークンの有効期間（秒）。
func NewTokenCodec(secret string, maxAgeSeconds int) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		maxAge: time.Duration(maxAgeSeconds) * time.Second,
		issuer: "bytechat",
	}
}

// Issue はユーザーID・表示名を埋め込んだHS256署名トークンを発行する。
func (c *TokenCodec) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify は署名と有効期限を検証し、クレームを返す。
// 署名アルゴリズムがHMAC系でないトークンは拒否する（alg none / RS256すり替え対策）。
func (c *TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// VerifySession はトークンを検証してセッション識別情報を返す。
// ミドルウェアがJWTの詳細に依存しないための変換層。
func (c *TokenCodec) VerifySession(tokenString string) (*model.Session, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return &model.Session{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}
