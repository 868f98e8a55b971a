// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeLoginFailed        = "LOGIN_FAILED"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeInvalidUUID        = "INVALID_UUID"
	ErrCodeLabelSetNotFound   = "LABELSET_NOT_FOUND"
	ErrCodeGrantNotFound      = "GRANT_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"
)

// NewLoginFailedError はログイン失敗エラーを生成する。
// ユーザー名の存在有無とパスワード誤りを区別しない汎用メッセージを返す
// （アカウント列挙攻撃への対策）。内部の原因はログのみに記録する。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ログインに失敗しました。",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidUUIDError は無効なUUIDエラーを生成する。
func NewInvalidUUIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUUID,
		Message:  fmt.Sprintf("無効なUUIDです: %s", raw),
		Category: "validation",
		Action:   "正しいUUID形式で指定してください。",
	}
}

// NewLabelSetNotFoundError はラベルセット未検出エラーを生成する。
func NewLabelSetNotFoundError(uuid string) *APIError {
	return &APIError{
		Code:     ErrCodeLabelSetNotFound,
		Message:  fmt.Sprintf("指定されたラベルセットが見つかりません: %s", uuid),
		Category: "resource",
		Action:   "ラベルセットのUUIDを確認してください。",
	}
}

// NewGrantNotFoundError は所有権未付与エラーを生成する。
func NewGrantNotFoundError(uuid string) *APIError {
	return &APIError{
		Code:     ErrCodeGrantNotFound,
		Message:  fmt.Sprintf("このラベルセットは付与されていません: %s", uuid),
		Category: "resource",
		Action:   "付与済みのラベルセット一覧を確認してください。",
	}
}

// NewUnauthorizedError は認可失敗エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}
