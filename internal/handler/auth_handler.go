// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/labelman/internal/auth"
	"github.com/hitoshi/labelman/internal/authz"
	"github.com/hitoshi/labelman/internal/middleware"
	"github.com/hitoshi/labelman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login は資格情報を検証しセッショントークンを発行する。
	Login(ctx context.Context, username, password string) (*auth.Result, error)
	// Create は新規ユーザーを登録しセッショントークンを発行する。
	Create(ctx context.Context, username, password string) (*auth.Result, error)
	// Refresh は認証済みユーザーのトークンをローテーションする。
	Refresh(userID int64) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証・セッション管理のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// credentialsRequest はログイン・アカウント作成リクエストのボディ。
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse は認証成功時のAPIレスポンス。
type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Login はログインを処理する。
// POST /auth/login
//
// 失敗時のレスポンスはユーザー名の存在有無とパスワード誤りを
// 区別しない（アカウント列挙対策）。区別された原因は内部の
// ログとメトリクスにのみ残る。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(result.User))
}

// Create は新規アカウント作成を処理する。
// PUT /auth/create
// 作成に成功した場合はそのままログイン済みとなり、セッションCookieを設定する。
func (h *AuthHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	result, err := h.service.Create(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(result.User))
}

// Logout はセッションCookieをクリアする。
// POST /auth/logout
// トークンはサーバー側に状態を持たないため、Cookieの削除がそのまま
// クライアントからのセッション破棄となる。既にログアウト済みでも成功を返す。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh はセッショントークンをローテーションする。
// POST /auth/refresh
// 有効なセッションに解決できないリクエストにはCookieをクリアした上で401を返す。
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil || identity.Capability < authz.CapabilityStandard {
		h.clearSessionCookie(w)
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	token, err := h.service.Refresh(identity.UserID)
	if err != nil {
		slog.Error("failed to refresh session",
			slog.Int64("user_id", identity.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	h.setSessionCookie(w, token)
	w.WriteHeader(http.StatusNoContent)
}

// IsAdmin は現在のリクエスト主体が管理者かどうかを返す。
// GET /auth/isadmin
//
// レスポンスは3値: 未認証は401、認証済みの一般ユーザーはfalse、
// 管理者はtrue。ボディはJSONの裸のbooleanひとつ。
// 権限は毎回ユーザーレコードから解決されるため、
// 権限変更は次のリクエストから即座に反映される。
func (h *AuthHandler) IsAdmin(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil || identity.Capability < authz.CapabilityStandard {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(identity.Capability >= authz.CapabilityAdministrator)
}

// --- ヘルパー関数 ---

// decodeCredentials はリクエストボディから資格情報を読み取る。
// 解析失敗・空フィールドの場合はエラーレスポンスを書き込みfalseを返す。
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return req, false
	}

	if req.Username == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "ユーザー名とパスワードは必須です。",
			Category: "validation",
			Action:   "ユーザー名とパスワードを指定してください。",
		})
		return req, false
	}

	return req, true
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.Privilege.IsAdmin(),
	}
}

// setSessionCookie はセッショントークンをHTTP Only Cookieとして設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
