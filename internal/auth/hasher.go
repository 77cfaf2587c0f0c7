// Package auth はパスワードハッシュ、認証情報の検証、
// サインイン・サインアウトのフローを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

const (
	saltLength = 16 // ソルト長（バイト）
	keyLength  = 32 // ダイジェスト長（バイト）

	// 保存済みハッシュとして受け入れるコストの上限
	MaxMemoryKiB  = 1 << 21 // 2GiB
	MaxIterations = 64
)

// ErrEmptyPassword は空のパスワードをハッシュしようとした場合のエラー。
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// Params はargon2idのコストパラメータ。
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams はデフォルトのコストパラメータを返す。
// m=19456, t=2, p=1 は既存データのハッシュと同じ値。
func DefaultParams() Params {
	return Params{Memory: 19456, Iterations: 2, Parallelism: 1}
}

// EncodedHash はPHC形式の文字列を分解した結果。
type EncodedHash struct {
	Version int
	Params  Params
	Salt    []byte
	Key     []byte
}

// HashObserver はハッシュ計算の所要時間を受け取る。
type HashObserver interface {
	ObserveHash(op string, d time.Duration)
}

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	// Hash はパスワードのPHC形式ハッシュを生成する。
	Hash(ctx context.Context, password string) (string, error)
	// Verify はパスワードがハッシュと一致する場合にtrueを返す。
	// ハッシュが解釈できない場合もfalseを返す。
	Verify(ctx context.Context, password, encoded string) bool
	// ParseHash はPHC形式の文字列を分解する。
	ParseHash(encoded string) (*EncodedHash, error)
	// VerifyParsed は分解済みのハッシュとパスワードを照合する。
	VerifyParsed(ctx context.Context, password string, parsed *EncodedHash) bool
	// NeedsRehash は保存済みハッシュのパラメータが現在の設定と異なる場合にtrueを返す。
	NeedsRehash(encoded string) bool
}

// Argon2idHasher はargon2idによるPasswordHasherの実装。
// argon2は1回あたりParams.Memory分のメモリを確保するため、
// 同時に計算できる数をセマフォで制限する。
type Argon2idHasher struct {
	params   Params
	sem      *semaphore.Weighted
	observer HashObserver
}

// NewArgon2idHasher はArgon2idHasherを生成する。
// maxConcurrentが0以下の場合は1として扱う。observerはnilでもよい。
func NewArgon2idHasher(params Params, maxConcurrent int64, observer HashObserver) *Argon2idHasher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Argon2idHasher{
		params:   params,
		sem:      semaphore.NewWeighted(maxConcurrent),
		observer: observer,
	}
}

// Hash はパスワードのargon2idハッシュをPHC形式で返す。
// 呼び出しごとに新しいソルトを生成する。
func (h *Argon2idHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key, err := h.derive(ctx, "hash", password, salt, h.params, keyLength)
	if err != nil {
		return "", err
	}

	// $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify はパスワードがハッシュと一致するか確認する。
func (h *Argon2idHasher) Verify(ctx context.Context, password, encoded string) bool {
	parsed, err := ParseHash(encoded)
	if err != nil {
		return false
	}
	return h.VerifyParsed(ctx, password, parsed)
}

// ParseHash はPHC形式の文字列を分解する。
func (h *Argon2idHasher) ParseHash(encoded string) (*EncodedHash, error) {
	return ParseHash(encoded)
}

// VerifyParsed は分解済みハッシュと同じパラメータで再計算し、定数時間で比較する。
func (h *Argon2idHasher) VerifyParsed(ctx context.Context, password string, parsed *EncodedHash) bool {
	if parsed == nil || len(parsed.Key) == 0 {
		return false
	}

	computed, err := h.derive(ctx, "verify", password, parsed.Salt, parsed.Params, uint32(len(parsed.Key)))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(computed, parsed.Key) == 1
}

// NeedsRehash は保存済みハッシュを現在のパラメータで作り直すべきか判定する。
// 解釈できないハッシュは作り直し対象とする。
func (h *Argon2idHasher) NeedsRehash(encoded string) bool {
	parsed, err := ParseHash(encoded)
	if err != nil {
		return true
	}
	return parsed.Version != argon2.Version || parsed.Params != h.params || len(parsed.Key) != keyLength
}

// derive はセマフォを取得してargon2idの鍵導出を行う。
func (h *Argon2idHasher) derive(ctx context.Context, op, password string, salt []byte, p Params, keyLen uint32) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire hash slot: %w", err)
	}
	defer h.sem.Release(1)

	start := time.Now()
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, keyLen)
	if h.observer != nil {
		h.observer.ObserveHash(op, time.Since(start))
	}
	return key, nil
}

// ParseHash は $argon2id$v=19$m=..,t=..,p=..$<salt>$<hash> 形式の文字列を分解する。
// エラーにはAUTH_INVALID_HASHコードが付く。
func ParseHash(encoded string) (*EncodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	// uint8への切り詰めを防ぐ
	if parallelism == 0 || parallelism > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("parallelism value %d out of range", parallelism)
	}
	if iterations == 0 || iterations > MaxIterations || memory < 8*parallelism || memory > MaxMemoryKiB {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("cost parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(salt) == 0 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("empty salt")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) < 4 || len(key) > 1024 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key))
	}

	return &EncodedHash{
		Version: version,
		Params: Params{
			Memory:      memory,
			Iterations:  iterations,
			Parallelism: uint8(parallelism),
		},
		Salt: salt,
		Key:  key,
	}, nil
}

// compile-time interface check
var _ PasswordHasher = (*Argon2idHasher)(nil)
