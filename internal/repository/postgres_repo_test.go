package repository

import (
	"testing"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresLabelSetRepoはLabelSetRepositoryインターフェースを満たすことを検証
func TestPostgresLabelSetRepo_ImplementsInterface(t *testing.T) {
	var _ LabelSetRepository = (*PostgresLabelSetRepo)(nil)
}

// PostgresGrantRepoはGrantRepositoryインターフェースを満たすことを検証
func TestPostgresGrantRepo_ImplementsInterface(t *testing.T) {
	var _ GrantRepository = (*PostgresGrantRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresLabelSetRepoが正しく初期化されることを検証
func TestNewPostgresLabelSetRepo_Initializes(t *testing.T) {
	repo := NewPostgresLabelSetRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresGrantRepoが正しく初期化されることを検証
func TestNewPostgresGrantRepo_Initializes(t *testing.T) {
	repo := NewPostgresGrantRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
