// Package session はユーザーIDに紐づく不透明なセッショントークンの
// 発行と検証を提供する。
//
// トークンはHS256署名付きJWTで、サーバー側に状態を持たない。
// 有効なトークンの所持がそのままセッションの主張となる。
// トークンにはユーザーIDと有効期限のみを含め、権限レベルは含めない。
// 権限はリクエストごとにユーザーレコードから再解決されるため、
// 発行後に権限が変更されても古い権限がトークンに残ることはない。
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンが解析できない、署名が一致しない、
// または期限切れであることを示す。
var ErrInvalidToken = errors.New("session: invalid token")

// claims はJWTに格納する情報。標準クレームとユーザーIDのみ。
type claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Manager はセッショントークンの発行と検証を行う。
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager はManagerを生成する。
// secretはHS256署名鍵、ttlはトークンの有効期間。
func NewManager(secret []byte, ttl time.Duration) *Manager {
	return &Manager{
		secret: secret,
		ttl:    ttl,
	}
}

// Issue は指定ユーザーIDに紐づく新しいトークンを発行する。
func (m *Manager) Issue(userID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Parse はトークンを検証し、紐づくユーザーIDを返す。
// 署名不一致・期限切れ・形式不正はすべてErrInvalidTokenとして返す。
func (m *Manager) Parse(tokenString string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	return c.UserID, nil
}
