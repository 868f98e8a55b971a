// Package auth はログイン・アカウント作成・セッション更新の
// ビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/labelman/internal/metrics"
	"github.com/hitoshi/labelman/internal/model"
	"github.com/hitoshi/labelman/internal/password"
	"github.com/hitoshi/labelman/internal/repository"
)

// ErrUserNotFound は指定ユーザー名のユーザーが存在しないことを示す。
// 境界ではErrIncorrectPasswordと区別されない汎用メッセージに畳まれる
// （アカウント列挙対策）。内部のログとメトリクスでは区別される。
var ErrUserNotFound = errors.New("auth: user not found")

// ErrIncorrectPassword はパスワードが一致しないことを示す。
var ErrIncorrectPassword = errors.New("auth: incorrect password")

// ErrPostInsertLookup は挿入直後のユーザーが再読込で見つからないことを示す。
// 通常は発生せず、サーバー整合性の問題として致命的に扱う。
var ErrPostInsertLookup = errors.New("auth: could not find user that was just inserted")

// PasswordHasher はパスワードのハッシュ化と検証に必要なインターフェース。
type PasswordHasher interface {
	Hash(password []byte) ([]byte, error)
	Verify(stored, candidate []byte) (bool, error)
}

// TokenIssuer はセッショントークンの発行に必要なインターフェース。
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// Result は認証成功の結果。発行済みトークンと解決済みユーザーを持つ。
type Result struct {
	User  *model.User
	Token string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	sessions TokenIssuer
	recorder metrics.Recorder
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	sessions TokenIssuer,
	recorder metrics.Recorder,
) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		recorder: recorder,
	}
}

// Login はユーザー名とパスワードを検証し、セッショントークンを発行する。
// 結果は成功か名前付き失敗のいずれか一つであり、資格情報の検証を経ずに
// セッションが発行されることはない。
//
// 失敗はErrUserNotFound、ErrIncorrectPassword、password.ErrCorruptHashの
// いずれかに区別して返す。ErrCorruptHashは「パスワード誤り」ではなく
// データ整合性の問題であり、上位で必ずログに記録される。
func (s *Service) Login(ctx context.Context, username, candidate string) (*Result, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		s.recorder.RecordLoginFailure("user_not_found")
		return nil, ErrUserNotFound
	}

	matches, err := s.hasher.Verify(user.PasswordHash, []byte(candidate))
	if err != nil {
		if errors.Is(err, password.ErrCorruptHash) {
			s.recorder.RecordLoginFailure("corrupt_hash")
			slog.Error("corrupt password hash in credential store",
				slog.Int64("user_id", user.ID),
			)
		}
		return nil, err
	}
	if !matches {
		s.recorder.RecordLoginFailure("incorrect_password")
		return nil, ErrIncorrectPassword
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.recorder.RecordLoginSuccess()
	s.recorder.RecordSessionIssued()
	slog.Info("user logged in", slog.Int64("user_id", user.ID))

	return &Result{User: user, Token: token}, nil
}

// Create は新規ユーザーを登録し、セッショントークンを発行する。
//
// ハッシュ化は永続化より前に行い、失敗した場合は何も書き込まない。
// ユーザー名の重複はストアの一意制約で検出され、
// model.APIError（USERNAME_TAKEN）として返す。
// 挿入後の再読込で採番済みIDを取得する。見つからない場合は
// ErrPostInsertLookupを返す（通常は発生しない）。
func (s *Service) Create(ctx context.Context, username, candidate string) (*Result, error) {
	hash, err := s.hasher.Hash([]byte(candidate))
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &model.User{
		Username:     username,
		PasswordHash: hash,
		Privilege:    model.PrivilegeStandard,
	}

	if err := s.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, model.NewUsernameTakenError(username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 採番済みIDを持つレコードを読み直す
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read created user: %w", err)
	}
	if user == nil {
		return nil, ErrPostInsertLookup
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.recorder.RecordSessionIssued()
	slog.Info("new user created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &Result{User: user, Token: token}, nil
}

// Refresh は認証済みユーザーのセッショントークンをローテーションする。
// 呼び出し側（AuthorizationGate）が現在のセッションが当該ユーザーに
// 解決済みであることを保証する。
func (s *Service) Refresh(userID int64) (string, error) {
	token, err := s.sessions.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}

	s.recorder.RecordSessionIssued()
	return token, nil
}
