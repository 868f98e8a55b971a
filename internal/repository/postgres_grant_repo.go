package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/labelman/internal/model"
)

// PostgresGrantRepo はPostgreSQLを使用した所有権リポジトリ。
//
// 付与の存在確認と挿入を別々のステートメントに分けると、
// 同時実行される2つの付与が両方「未付与」を観測して二重挿入する
// 競合が起きる。そのためINSERT ... ON CONFLICT DO NOTHINGの
// 単一文で冪等な挿入を行い、複合主キーで一意性を強制する。
type PostgresGrantRepo struct {
	db *sql.DB
}

// NewPostgresGrantRepo はPostgresGrantRepoを生成する。
func NewPostgresGrantRepo(db *sql.DB) *PostgresGrantRepo {
	return &PostgresGrantRepo{db: db}
}

// Insert は所有権行を存在しない場合のみ挿入する。
// 挿入した場合はtrue、既に存在していた場合はfalseを返す。
func (r *PostgresGrantRepo) Insert(ctx context.Context, userID, labelSetID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user_label_sets (user_id, label_set_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, label_set_id) DO NOTHING`,
		userID, labelSetID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("所有権の付与に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("付与結果の行数取得に失敗しました: %w", err)
	}

	return affected == 1, nil
}

// DeleteAndCount は両フィールドの論理積で所有権行を削除し、削除行数を返す。
func (r *PostgresGrantRepo) DeleteAndCount(ctx context.Context, userID, labelSetID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_label_sets
		 WHERE user_id = $1 AND label_set_id = $2`,
		userID, labelSetID,
	)
	if err != nil {
		return 0, fmt.Errorf("所有権の剥奪に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("剥奪結果の行数取得に失敗しました: %w", err)
	}

	return affected, nil
}

// ListLabelSetsByUserID はユーザーに付与されている全ラベルセットを返す。
func (r *PostgresGrantRepo) ListLabelSetsByUserID(ctx context.Context, userID int64) ([]*model.LabelSet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ls.id, ls.uuid, ls.name, ls.model_id
		 FROM user_label_sets uls
		 JOIN label_sets ls ON ls.id = uls.label_set_id
		 WHERE uls.user_id = $1
		 ORDER BY uls.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("付与済みラベルセット一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sets []*model.LabelSet
	for rows.Next() {
		set := &model.LabelSet{}
		if err := rows.Scan(&set.ID, &set.UUID, &set.Name, &set.ModelID); err != nil {
			return nil, fmt.Errorf("ラベルセット行の読み取りに失敗しました: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ラベルセット一覧の走査に失敗しました: %w", err)
	}

	return sets, nil
}

// compile-time interface check
var _ GrantRepository = (*PostgresGrantRepo)(nil)
