// Package password はパスワードの一方向ハッシュ化と検証を提供する。
//
// ハッシュにはメモリハードなArgon2idを使用し、
// アルゴリズムパラメータ・ソルト・ダイジェストを1つのPHC形式文字列
// （$argon2id$v=19$m=...,t=...,p=...$salt$hash）に自己記述的に格納する。
// 検証時に外部設定は不要で、保存されたハッシュだけで再計算できる。
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrCorruptHash は保存済みハッシュがPHC形式として解析できないことを示す。
// パスワード不一致（falseを返す）とは区別され、データ整合性の問題として
// 上位でログに記録されるべきエラー。
var ErrCorruptHash = errors.New("password: corrupt password hash")

// ログインパスのインタラクティブ用途向けに調整したArgon2idパラメータ。
// OWASP推奨値（m>=19MiB, t>=2, p>=1）を上回る設定。
const (
	argonMemoryKiB = 64 * 1024
	argonTime      = 3
	argonThreads   = 2
	argonSaltLen   = 16
	argonKeyLen    = 32
)

// Hasher はArgon2idによるパスワードハッシュ化と検証を提供する。
type Hasher struct{}

// NewHasher はHasherを生成する。
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash はパスワードをハッシュ化し、PHC形式のバイト列を返す。
// 乱数源からソルトが取得できない場合はエラーを返す。
func (h *Hasher) Hash(password []byte) ([]byte, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := argon2.IDKey(password, salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKiB, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return []byte(encoded), nil
}

// Verify は保存済みハッシュと候補パスワードを照合する。
// 一致すればtrue、整形式だが不一致ならfalseを返す。
// ダイジェスト全長に対する定数時間比較を行い、先頭バイトの不一致で
// 早期リターンしない。保存済みハッシュが解析できない場合はErrCorruptHashを返す。
func (h *Hasher) Verify(stored, candidate []byte) (bool, error) {
	memoryKiB, time, threads, salt, digest, err := parsePHC(string(stored))
	if err != nil {
		return false, err
	}

	recomputed := argon2.IDKey(candidate, salt, time, memoryKiB, threads, uint32(len(digest)))

	return subtle.ConstantTimeCompare(digest, recomputed) == 1, nil
}

// parsePHC はPHC形式のArgon2idハッシュ文字列を解析する。
// 形式: $argon2id$v=19$m=65536,t=3,p=2$<base64-salt>$<base64-hash>
func parsePHC(encoded string) (memoryKiB uint32, time uint32, threads uint8, salt, digest []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: unexpected field count", ErrCorruptHash)
	}
	if parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrCorruptHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: malformed version", ErrCorruptHash)
	}
	if version != argon2.Version {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKiB, &time, &threads); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: malformed parameters", ErrCorruptHash)
	}
	if memoryKiB == 0 || time == 0 || threads == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: zero-valued parameters", ErrCorruptHash)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: malformed salt", ErrCorruptHash)
	}

	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: malformed digest", ErrCorruptHash)
	}
	if len(digest) == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: empty digest", ErrCorruptHash)
	}

	return memoryKiB, time, threads, salt, digest, nil
}
