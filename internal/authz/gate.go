// Package authz はセッショントークンから権限能力への解決と、
// ルートごとの能力チェックを提供する。
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/labelman/internal/model"
)

// Capability はリクエストの解決結果を表す。
// 値の大小が能力の強さの順序になっている。
type Capability int

const (
	// CapabilityUnauthenticated はトークンが無い、または有効なユーザーに
	// 解決できないことを表す。
	CapabilityUnauthenticated Capability = iota
	// CapabilityStandard は一般ユーザーとして認証済みであることを表す。
	CapabilityStandard
	// CapabilityAdministrator は管理者として認証済みであることを表す。
	CapabilityAdministrator
)

// String はCapabilityの文字列表現を返す。ログ用。
func (c Capability) String() string {
	switch c {
	case CapabilityAdministrator:
		return "administrator"
	case CapabilityStandard:
		return "standard"
	default:
		return "unauthenticated"
	}
}

// Requirement はルートが要求する最低限の能力を表す。
type Requirement int

const (
	// RequirePublic は認証を要求しない。
	RequirePublic Requirement = iota
	// RequireAuthenticated は認証済みであることを要求する（権限レベル不問）。
	RequireAuthenticated
	// RequireAdministrator は管理者権限を要求する。
	RequireAdministrator
)

// ErrAuthorizationFailure は解決された能力が要求される最低能力に
// 達していないことを示す。境界で401にマッピングされる。
var ErrAuthorizationFailure = errors.New("authz: capability below required minimum")

// Identity は解決済みのリクエスト主体を表す。
// 未認証の場合はUserIDが0、CapabilityがCapabilityUnauthenticatedとなる。
type Identity struct {
	UserID     int64
	Capability Capability
}

// UserFinder はユーザーレコードの取得に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// TokenParser はセッショントークンの検証に必要なインターフェース。
type TokenParser interface {
	Parse(token string) (int64, error)
}

// Gate はトークンから能力への解決を行う。
// 解決は状態を変更せず、同一リクエスト内で複数回呼んでも安全。
type Gate struct {
	tokens TokenParser
	users  UserFinder
}

// NewGate はGateを生成する。
func NewGate(tokens TokenParser, users UserFinder) *Gate {
	return &Gate{
		tokens: tokens,
		users:  users,
	}
}

// Resolve はトークンをIdentityに解決する。優先順位は
// Administrator > Standard > Unauthenticated。
//
// トークンが空・不正・期限切れの場合、またはトークンは有効だが
// ユーザーが既に削除されている場合はUnauthenticatedに解決する（エラーではない）。
// 権限レベルは毎回ユーザーレコードから読み直すため、発行後の権限変更が
// 次のリクエストから即座に反映される。
// ストア障害のみエラーとして返す。
func (g *Gate) Resolve(ctx context.Context, token string) (Identity, error) {
	anonymous := Identity{Capability: CapabilityUnauthenticated}

	if token == "" {
		return anonymous, nil
	}

	userID, err := g.tokens.Parse(token)
	if err != nil {
		return anonymous, nil
	}

	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return anonymous, fmt.Errorf("failed to resolve user for session: %w", err)
	}
	if user == nil {
		// トークン発行後にユーザーが削除されたケース
		return anonymous, nil
	}

	capability := CapabilityStandard
	if user.Privilege.IsAdmin() {
		capability = CapabilityAdministrator
	}

	return Identity{UserID: user.ID, Capability: capability}, nil
}

// Check はIdentityが要求を満たすかを検証する。
// 満たさない場合はErrAuthorizationFailureを返す。
func (g *Gate) Check(id Identity, req Requirement) error {
	switch req {
	case RequirePublic:
		return nil
	case RequireAuthenticated:
		if id.Capability >= CapabilityStandard {
			return nil
		}
	case RequireAdministrator:
		if id.Capability >= CapabilityAdministrator {
			return nil
		}
	}
	return ErrAuthorizationFailure
}
