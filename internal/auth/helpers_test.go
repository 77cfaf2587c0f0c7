package auth

import (
	"context"

	"github.com/hitoshi/keyhole/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id int64) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	updateFn      func(ctx context.Context, id int64, fields model.UserUpdate) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Update(ctx context.Context, id int64, fields model.UserUpdate) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, fields)
	}
	return nil
}

type mockRecorder struct {
	results []string
}

func (m *mockRecorder) RecordSignIn(result string) {
	m.results = append(m.results, result)
}

// mapValues はテスト用のメモリ上のsession.Values実装。
type mapValues map[string]any

func (m mapValues) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapValues) Set(key string, value any) {
	m[key] = value
}

func (m mapValues) Remove(key string) {
	delete(m, key)
}
