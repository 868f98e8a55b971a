package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/labelman/internal/model"
)

// PostgresLabelSetRepo はPostgreSQLを使用したラベルセットリポジトリ。
type PostgresLabelSetRepo struct {
	db *sql.DB
}

// NewPostgresLabelSetRepo はPostgresLabelSetRepoを生成する。
func NewPostgresLabelSetRepo(db *sql.DB) *PostgresLabelSetRepo {
	return &PostgresLabelSetRepo{db: db}
}

// FindByUUID は指定UUIDのラベルセットを取得する。見つからない場合はnilを返す。
func (r *PostgresLabelSetRepo) FindByUUID(ctx context.Context, uuid string) (*model.LabelSet, error) {
	set := &model.LabelSet{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, uuid, name, model_id
		 FROM label_sets WHERE uuid = $1`,
		uuid,
	).Scan(&set.ID, &set.UUID, &set.Name, &set.ModelID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ラベルセットの取得に失敗しました: %w", err)
	}

	return set, nil
}

// compile-time interface check
var _ LabelSetRepository = (*PostgresLabelSetRepo)(nil)
