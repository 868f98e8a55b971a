// Package grant はユーザーとラベルセットの所有権管理の
// ドメインロジックを提供する。
package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/labelman/internal/metrics"
	"github.com/hitoshi/labelman/internal/model"
	"github.com/hitoshi/labelman/internal/repository"
)

// GrantOutcome は付与操作の結果を表す。
type GrantOutcome int

const (
	// GrantOutcomeGranted は新たに付与されたことを表す。
	GrantOutcomeGranted GrantOutcome = iota
	// GrantOutcomeAlreadyGranted は既に付与済みで何も変わらなかったことを表す。
	// 成功扱いのno-opであり、エラーではない。
	GrantOutcomeAlreadyGranted
)

// String はGrantOutcomeの文字列表現を返す。メトリクスラベル用。
func (o GrantOutcome) String() string {
	if o == GrantOutcomeAlreadyGranted {
		return "already_granted"
	}
	return "granted"
}

// RevokeOutcome は剥奪操作の結果を表す。
type RevokeOutcome int

const (
	// RevokeOutcomeRevoked は所有権行がちょうど1行削除されたことを表す。
	RevokeOutcomeRevoked RevokeOutcome = iota
	// RevokeOutcomeNotGranted は対象の付与が存在しなかったことを表す。
	// 成功扱いのno-opであり、エラーではない。
	RevokeOutcomeNotGranted
)

// String はRevokeOutcomeの文字列表現を返す。メトリクスラベル用。
func (o RevokeOutcome) String() string {
	if o == RevokeOutcomeNotGranted {
		return "not_granted"
	}
	return "revoked"
}

// ErrInvariantViolation は削除行数が2以上であり、(user, label set)組の
// 一意性不変条件が本コアの管理外で破られていたことを示す。
// 致命的エラーとして扱い、成功に丸めずに必ず表面化させる。
var ErrInvariantViolation = errors.New("grant: uniqueness invariant violated")

// Service は所有権管理のサービス層。
// 付与・剥奪・一覧のビジネスロジックを提供する。
type Service struct {
	labelSets repository.LabelSetRepository
	grants    repository.GrantRepository
	recorder  metrics.Recorder
}

// NewService はServiceを生成する。
func NewService(
	labelSets repository.LabelSetRepository,
	grants repository.GrantRepository,
	recorder metrics.Recorder,
) *Service {
	return &Service{
		labelSets: labelSets,
		grants:    grants,
		recorder:  recorder,
	}
}

// Grant は指定UUIDのラベルセットの所有権をユーザーに付与する。
// 既に付与済みの場合は重複行を作らずGrantOutcomeAlreadyGrantedを返す（冪等）。
// ラベルセットが存在しない場合は状態を変更せず
// model.APIError（LABELSET_NOT_FOUND）を返す。
func (s *Service) Grant(ctx context.Context, userID int64, setUUID string) (GrantOutcome, error) {
	set, err := s.labelSets.FindByUUID(ctx, setUUID)
	if err != nil {
		return 0, fmt.Errorf("ラベルセットの解決に失敗しました: %w", err)
	}
	if set == nil {
		return 0, model.NewLabelSetNotFoundError(setUUID)
	}

	inserted, err := s.grants.Insert(ctx, userID, set.ID)
	if err != nil {
		return 0, err
	}

	outcome := GrantOutcomeGranted
	if !inserted {
		outcome = GrantOutcomeAlreadyGranted
	}
	s.recorder.RecordGrantOutcome(outcome.String())

	return outcome, nil
}

// Revoke は指定UUIDのラベルセットの所有権をユーザーから剥奪する。
// 削除行数がちょうど3値のいずれかに対応する:
// 0はRevokeOutcomeNotGranted（no-op）、1はRevokeOutcomeRevoked、
// 2以上はErrInvariantViolation（致命的）。
func (s *Service) Revoke(ctx context.Context, userID int64, setUUID string) (RevokeOutcome, error) {
	set, err := s.labelSets.FindByUUID(ctx, setUUID)
	if err != nil {
		return 0, fmt.Errorf("ラベルセットの解決に失敗しました: %w", err)
	}
	if set == nil {
		return 0, model.NewLabelSetNotFoundError(setUUID)
	}

	deleted, err := s.grants.DeleteAndCount(ctx, userID, set.ID)
	if err != nil {
		return 0, err
	}

	switch deleted {
	case 0:
		s.recorder.RecordRevokeOutcome(RevokeOutcomeNotGranted.String())
		return RevokeOutcomeNotGranted, nil
	case 1:
		s.recorder.RecordRevokeOutcome(RevokeOutcomeRevoked.String())
		return RevokeOutcomeRevoked, nil
	default:
		s.recorder.RecordInvariantViolation()
		slog.Error("uniqueness invariant violated on revoke",
			slog.Int64("user_id", userID),
			slog.Int64("label_set_id", set.ID),
			slog.Int64("deleted", deleted),
		)
		return 0, fmt.Errorf("%w: expected 1 deleted grant, but deleted %d", ErrInvariantViolation, deleted)
	}
}

// ListForUser はユーザーに付与されている全ラベルセットを返す。
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*model.LabelSet, error) {
	sets, err := s.grants.ListLabelSetsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sets, nil
}
