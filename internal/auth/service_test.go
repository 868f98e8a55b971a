package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/labelman/internal/metrics"
	"github.com/hitoshi/labelman/internal/model"
	"github.com/hitoshi/labelman/internal/password"
	"github.com/hitoshi/labelman/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockHasher struct {
	hashFn   func(password []byte) ([]byte, error)
	verifyFn func(stored, candidate []byte) (bool, error)
}

func (m *mockHasher) Hash(password []byte) ([]byte, error) {
	if m.hashFn != nil {
		return m.hashFn(password)
	}
	return []byte("hashed"), nil
}

func (m *mockHasher) Verify(stored, candidate []byte) (bool, error) {
	if m.verifyFn != nil {
		return m.verifyFn(stored, candidate)
	}
	return true, nil
}

type mockIssuer struct {
	issueFn func(userID int64) (string, error)
}

func (m *mockIssuer) Issue(userID int64) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(userID)
	}
	return "token", nil
}

// nopRecorder は何も記録しないメトリクスレコーダー。
type nopRecorder struct{}

func (nopRecorder) RecordLoginSuccess()              {}
func (nopRecorder) RecordLoginFailure(reason string) {}
func (nopRecorder) RecordSessionIssued()             {}
func (nopRecorder) RecordGrantOutcome(string)        {}
func (nopRecorder) RecordRevokeOutcome(string)       {}
func (nopRecorder) RecordInvariantViolation()        {}
func (nopRecorder) RecordHTTPStatus(int)             {}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ PasswordHasher = (*mockHasher)(nil)
var _ TokenIssuer = (*mockIssuer)(nil)
var _ metrics.Recorder = nopRecorder{}

// --- テスト ---

// 正しい資格情報でログインするとトークンとユーザーが返ることを検証
func TestLogin_Success(t *testing.T) {
	alice := &model.User{ID: 42, Username: "alice", PasswordHash: []byte("stored-hash")}
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username != "alice" {
				t.Errorf("looked up username %q, want alice", username)
			}
			return alice, nil
		},
	}
	hasher := &mockHasher{
		verifyFn: func(stored, candidate []byte) (bool, error) {
			if string(stored) != "stored-hash" {
				t.Errorf("verified against %q, want stored-hash", stored)
			}
			return string(candidate) == "correct-horse", nil
		},
	}
	svc := NewService(repo, hasher, &mockIssuer{}, nopRecorder{})

	result, err := svc.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.User.ID != 42 {
		t.Errorf("User.ID = %d, want 42", result.User.ID)
	}
	if result.Token == "" {
		t.Error("expected non-empty token")
	}
}

// 存在しないユーザーはErrUserNotFoundになることを検証
func TestLogin_UnknownUser_ReturnsUserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockHasher{}, &mockIssuer{}, nopRecorder{})

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

// パスワード誤りはErrIncorrectPasswordになることを検証
// （ErrUserNotFoundと取り違えない）
func TestLogin_WrongPassword_ReturnsIncorrectPassword(t *testing.T) {
	alice := &model.User{ID: 42, Username: "alice", PasswordHash: []byte("stored-hash")}
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return alice, nil
		},
	}
	hasher := &mockHasher{
		verifyFn: func(stored, candidate []byte) (bool, error) {
			return false, nil
		},
	}
	svc := NewService(repo, hasher, &mockIssuer{}, nopRecorder{})

	_, err := svc.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword, got %v", err)
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Error("wrong password must not be reported as user-not-found")
	}
}

// 破損ハッシュはパスワード誤りと区別して伝播することを検証
func TestLogin_CorruptHash_Propagates(t *testing.T) {
	alice := &model.User{ID: 42, Username: "alice", PasswordHash: []byte("garbage")}
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return alice, nil
		},
	}
	hasher := &mockHasher{
		verifyFn: func(stored, candidate []byte) (bool, error) {
			return false, password.ErrCorruptHash
		},
	}
	svc := NewService(repo, hasher, &mockIssuer{}, nopRecorder{})

	_, err := svc.Login(context.Background(), "alice", "correct-horse")
	if !errors.Is(err, password.ErrCorruptHash) {
		t.Errorf("expected ErrCorruptHash, got %v", err)
	}
	if errors.Is(err, ErrIncorrectPassword) {
		t.Error("corrupt hash must not be reported as incorrect password")
	}
}

// 検証失敗時にセッションが発行されないことを検証
func TestLogin_NoSessionWithoutVerifiedCredentials(t *testing.T) {
	issued := false
	issuer := &mockIssuer{
		issueFn: func(userID int64) (string, error) {
			issued = true
			return "token", nil
		},
	}
	hasher := &mockHasher{
		verifyFn: func(stored, candidate []byte) (bool, error) {
			return false, nil
		},
	}
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 1, Username: "alice"}, nil
		},
	}
	svc := NewService(repo, hasher, issuer, nopRecorder{})

	if _, err := svc.Login(context.Background(), "alice", "wrong"); err == nil {
		t.Fatal("expected login to fail")
	}
	if issued {
		t.Error("session must not be issued for unverified credentials")
	}
}

// アカウント作成が成功し、採番済みIDでセッションが発行されることを検証
func TestCreate_Success(t *testing.T) {
	var stored *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = 7
			stored = user
			return nil
		},
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if stored == nil {
				return nil, nil
			}
			return stored, nil
		},
	}
	var issuedFor int64
	issuer := &mockIssuer{
		issueFn: func(userID int64) (string, error) {
			issuedFor = userID
			return "token", nil
		},
	}
	svc := NewService(repo, &mockHasher{}, issuer, nopRecorder{})

	result, err := svc.Create(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.User.ID != 7 {
		t.Errorf("User.ID = %d, want 7", result.User.ID)
	}
	if issuedFor != 7 {
		t.Errorf("session issued for %d, want 7", issuedFor)
	}
	if stored.Privilege != model.PrivilegeStandard {
		t.Errorf("new user privilege = %v, want standard", stored.Privilege)
	}
}

// ハッシュ化失敗時に永続化が行われないことを検証
func TestCreate_HashingFailure_NoWrite(t *testing.T) {
	created := false
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = true
			return nil
		},
	}
	hasher := &mockHasher{
		hashFn: func(password []byte) ([]byte, error) {
			return nil, errors.New("entropy source unavailable")
		},
	}
	svc := NewService(repo, hasher, &mockIssuer{}, nopRecorder{})

	if _, err := svc.Create(context.Background(), "alice", "pw"); err == nil {
		t.Fatal("expected create to fail")
	}
	if created {
		t.Error("no persistence write should happen when hashing fails")
	}
}

// ユーザー名重複がUSERNAME_TAKENとして返ることを検証
func TestCreate_DuplicateUsername_ReturnsUsernameTaken(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrUsernameTaken
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockIssuer{}, nopRecorder{})

	_, err := svc.Create(context.Background(), "alice", "pw")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUsernameTaken {
		t.Errorf("expected USERNAME_TAKEN APIError, got %v", err)
	}
}

// 挿入直後の再読込が失敗した場合にErrPostInsertLookupになることを検証
func TestCreate_PostInsertLookupFailure(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockIssuer{}, nopRecorder{})

	_, err := svc.Create(context.Background(), "alice", "pw")
	if !errors.Is(err, ErrPostInsertLookup) {
		t.Errorf("expected ErrPostInsertLookup, got %v", err)
	}
}

// Refreshが新しいトークンを発行することを検証
func TestRefresh_IssuesNewToken(t *testing.T) {
	calls := 0
	issuer := &mockIssuer{
		issueFn: func(userID int64) (string, error) {
			calls++
			if userID != 42 {
				t.Errorf("issued for %d, want 42", userID)
			}
			return "new-token", nil
		},
	}
	svc := NewService(&mockUserRepo{}, &mockHasher{}, issuer, nopRecorder{})

	token, err := svc.Refresh(42)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if token != "new-token" {
		t.Errorf("token = %q, want new-token", token)
	}
	if calls != 1 {
		t.Errorf("Issue called %d times, want 1", calls)
	}
}

// 作成したユーザーで続けてログインできることを検証（実ハッシャー使用）
func TestCreateThenLogin_RoundTrip(t *testing.T) {
	users := map[string]*model.User{}
	var nextID int64
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			if _, ok := users[user.Username]; ok {
				return repository.ErrUsernameTaken
			}
			nextID++
			user.ID = nextID
			users[user.Username] = user
			return nil
		},
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return users[username], nil
		},
	}
	svc := NewService(repo, password.NewHasher(), &mockIssuer{}, nopRecorder{})

	created, err := svc.Create(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loggedIn, err := svc.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.User.ID != created.User.ID {
		t.Errorf("login resolved user %d, want %d", loggedIn.User.ID, created.User.ID)
	}

	if _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword, got %v", err)
	}
}
