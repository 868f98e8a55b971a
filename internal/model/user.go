// Package model はドメインモデルを定義する。
package model

import "time"

// Privilege はユーザーの権限レベルを表す。
type Privilege int

const (
	// PrivilegeStandard は一般ユーザー権限。
	PrivilegeStandard Privilege = 0
	// PrivilegeAdministrator は管理者権限。
	PrivilegeAdministrator Privilege = 1
)

// IsAdmin は管理者権限かどうかを返す。
func (p Privilege) IsAdmin() bool {
	return p == PrivilegeAdministrator
}

// User はサービス利用ユーザーを表す。
// PasswordHashはPHC形式でエンコードされたArgon2idハッシュを保持する。
type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	Privilege    Privilege
	CreatedAt    time.Time
}
