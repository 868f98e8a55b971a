package model

import "time"

// LabelSet はラベルセットを表す。
// 内容（ラベル定義）の管理は本サービスの範囲外であり、
// 認可のためのid、uuid、表示名、所属モデルのみを扱う。
type LabelSet struct {
	ID      int64
	UUID    string
	Name    string
	ModelID int64
}

// Grant はユーザーとラベルセットの所有権の結合行を表す。
// (UserID, LabelSetID)の組は高々1行しか存在しない。
type Grant struct {
	UserID     int64
	LabelSetID int64
	CreatedAt  time.Time
}
