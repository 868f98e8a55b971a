// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/labelman/internal/authz"
	"github.com/hitoshi/labelman/internal/model"
)

// SessionCookieName はセッショントークンを運ぶCookieの名前。
const SessionCookieName = "session_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに解決済みIdentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// IdentityResolver はセッショントークンの能力解決に必要なインターフェース。
// authz.Gateの部分集合として定義する。
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (authz.Identity, error)
	Check(id authz.Identity, req authz.Requirement) error
}

// NewSessionMiddleware はCookieからセッショントークンを読み取り、
// 能力に解決してリクエストコンテキストに注入するミドルウェアを返す。
// 解決は状態を変更しないため、すべてのリクエストに適用できる。
// requirementを満たさないリクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(resolver IdentityResolver, requirement authz.Requirement) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得（無ければ空のまま解決する）
			var token string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			// 2. 能力を解決
			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			// 3. ルートの要求する最低能力を検証
			if err := resolver.Check(identity, requirement); err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 4. 解決済みIdentityをコンテキストに注入
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから解決済みIdentityを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (authz.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(authz.Identity)
	if !ok {
		return authz.Identity{}, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity authz.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
