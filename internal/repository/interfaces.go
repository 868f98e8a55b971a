// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/labelman/internal/model"
)

// ErrUsernameTaken はユーザー名の一意制約違反を示す。
var ErrUsernameTaken = errors.New("repository: username already taken")

// UserRepository はユーザー資格情報の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername は指定ユーザー名（完全一致・大文字小文字区別）の
	// ユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDをuser.IDに設定する。
	// ユーザー名が既に存在する場合はErrUsernameTakenを返す。
	Create(ctx context.Context, user *model.User) error
}

// LabelSetRepository はラベルセット参照の永続化インターフェース。
// 内容の管理は範囲外で、認可判定に必要な参照解決のみを提供する。
type LabelSetRepository interface {
	// FindByUUID は指定UUIDのラベルセットを取得する。見つからない場合はnilを返す。
	FindByUUID(ctx context.Context, uuid string) (*model.LabelSet, error)
}

// GrantRepository はユーザーとラベルセットの所有権結合行の永続化インターフェース。
// (user_id, label_set_id)の一意性はストア側の複合主キーで強制され、
// 各操作は単一のアトミックなSQL文として実行される。
type GrantRepository interface {
	// Insert は所有権行を存在しない場合のみ挿入する。
	// 挿入した場合はtrue、既に存在していた場合はfalseを返す。
	// 競合する同時挿入があっても重複行は作られない。
	Insert(ctx context.Context, userID, labelSetID int64) (bool, error)

	// DeleteAndCount は両フィールドの論理積で所有権行を削除し、
	// 削除された行数を返す。0は未付与、1は成功。2以上は一意性不変条件の
	// 破れを意味し、呼び出し側で致命的エラーとして扱う。
	DeleteAndCount(ctx context.Context, userID, labelSetID int64) (int64, error)

	// ListLabelSetsByUserID はユーザーに付与されている全ラベルセットを返す。
	// 並び順に意味はない（結合テーブルの挿入順だが保証されない）。
	ListLabelSetsByUserID(ctx context.Context, userID int64) ([]*model.LabelSet, error)
}
