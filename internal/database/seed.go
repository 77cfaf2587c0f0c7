package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/keyhole/internal/model"
)

// 初期ユーザー
const (
	SeedUserName     = "Jekyll"
	SeedUserEmail    = "jekyll@example.com"
	SeedUserPassword = "password"
)

// SeedStore は初期データ投入に必要なユーザーストアの操作。
type SeedStore interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *model.User) error
}

// PasswordHasher はパスワードをPHC形式の文字列にハッシュ化する。
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

// Seeder は初期データを投入する。
type Seeder struct {
	users  SeedStore
	hasher PasswordHasher
}

// NewSeeder はSeederを生成する。
func NewSeeder(users SeedStore, hasher PasswordHasher) *Seeder {
	return &Seeder{users: users, hasher: hasher}
}

// Seed はusersテーブルが空の場合のみ初期ユーザーを作成する。
// 何度実行しても重複は作らない。作成した場合はtrueを返す。
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		slog.Info("seed skipped, users already exist", slog.Int("count", count))
		return false, nil
	}

	encoded, err := s.hasher.Hash(ctx, SeedUserPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash seed password: %w", err)
	}

	user := &model.User{
		Name:         SeedUserName,
		Email:        SeedUserEmail,
		PasswordHash: encoded,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("failed to create seed user: %w", err)
	}

	slog.Info("seed user created", slog.Int64("user_id", user.ID), slog.String("email", user.Email))
	return true, nil
}
