package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/labelman/internal/authz"
	"github.com/hitoshi/labelman/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DB がこのインターフェースを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// インフラ依存
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	Logger         *slog.Logger
	StatusRecorder middleware.StatusRecorder

	// ミドルウェア依存
	Gate              middleware.IdentityResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ラベルセット所有権
	GrantService GrantServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → CSRF
//
// 認証ルート（/auth/*）はセッションミドルウェアを公開モードで通し、
// 匿名リクエストも拒否せずハンドラーに渡す。
// 所有権ルート（/api/labelsets/*）は認証必須モードで通し、
// 一般レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	labelSetHandler := NewLabelSetHandler(deps.GrantService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート。セッションがあれば識別情報を注入するが、匿名も許可する。
	// ログインとアカウント作成にはIP単位のレート制限を追加する。
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Gate, authz.RequirePublic))

		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.With(deps.RateLimiter.LoginMiddleware()).Put("/create", authHandler.Create)

		r.Post("/logout", authHandler.Logout)
		r.Post("/refresh", authHandler.Refresh)
		r.Get("/isadmin", authHandler.IsAdmin)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session(認証必須) → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Gate, authz.RequireAuthenticated))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/labelsets", func(r chi.Router) {
			r.Get("/", labelSetHandler.List)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Put("/", labelSetHandler.Grant)
				r.Delete("/", labelSetHandler.Revoke)
			})
		})
	})

	return r
}

// newHealthHandler はDB疎通確認つきのヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		statusCode := http.StatusOK
		if err := checker.PingContext(ctx); err != nil {
			status = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
