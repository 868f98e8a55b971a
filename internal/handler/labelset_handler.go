package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/labelman/internal/grant"
	"github.com/hitoshi/labelman/internal/middleware"
	"github.com/hitoshi/labelman/internal/model"
)

// GrantServiceInterface はラベルセットハンドラーが必要とするサービスインターフェース。
type GrantServiceInterface interface {
	// Grant はラベルセットの所有権をユーザーに付与する（冪等）。
	Grant(ctx context.Context, userID int64, setUUID string) (grant.GrantOutcome, error)
	// Revoke はラベルセットの所有権をユーザーから剥奪する。
	Revoke(ctx context.Context, userID int64, setUUID string) (grant.RevokeOutcome, error)
	// ListForUser はユーザーに付与されている全ラベルセットを返す。
	ListForUser(ctx context.Context, userID int64) ([]*model.LabelSet, error)
}

// LabelSetHandler はラベルセット所有権管理のHTTPハンドラー。
type LabelSetHandler struct {
	service GrantServiceInterface
}

// NewLabelSetHandler はLabelSetHandlerを生成する。
func NewLabelSetHandler(service GrantServiceInterface) *LabelSetHandler {
	return &LabelSetHandler{
		service: service,
	}
}

// labelSetResponse はラベルセット情報のAPIレスポンス。
type labelSetResponse struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Grant はラベルセットの所有権付与を処理する。
// PUT /api/labelsets/{uuid}
// 既に付与済みの場合も204を返す（冪等）。
func (h *LabelSetHandler) Grant(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	setUUID, ok := parseUUIDParam(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Grant(r.Context(), identity.UserID, setUUID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Revoke はラベルセットの所有権剥奪を処理する。
// DELETE /api/labelsets/{uuid}
// 付与が存在しなかった場合は404を返す。
func (h *LabelSetHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	setUUID, ok := parseUUIDParam(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.Revoke(r.Context(), identity.UserID, setUUID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if outcome == grant.RevokeOutcomeNotGranted {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewGrantNotFoundError(setUUID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List は現在のユーザーに付与されているラベルセット一覧を返す。
// GET /api/labelsets
func (h *LabelSetHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	sets, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]labelSetResponse, 0, len(sets))
	for _, set := range sets {
		resp = append(resp, labelSetResponse{
			UUID: set.UUID,
			Name: set.Name,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// parseUUIDParam はURLパラメータからUUIDを取り出して検証する。
// 形式が不正な場合はエラーレスポンスを書き込みfalseを返す。
// サービス層に到達する前に弾くため、不正なUUIDで状態が変わることはない。
func parseUUIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "uuid")

	parsed, err := uuid.Parse(raw)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUUIDError(raw))
		return "", false
	}

	return parsed.String(), true
}
