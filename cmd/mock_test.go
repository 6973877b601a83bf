package cmd

import (
	"context"
	"time"
)

type MockController struct {
	LoadFunc   func(ctx context.Context) error
	ReloadFunc func(ctx context.Context) error
	CloseFunc  func()
}

func (m *MockController) Load(ctx context.Context) error {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return nil
}

func (m *MockController) Reload(ctx context.Context) error {
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return nil
}

func (m *MockController) Close() {
	if m.CloseFunc != nil {
		m.CloseFunc()
	}
}

type MockHistoryStore struct {
	CleanupFunc func(ctx context.Context, retention time.Duration) (int64, error)
}

func (m *MockHistoryStore) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, retention)
	}
	return 0, nil
}
