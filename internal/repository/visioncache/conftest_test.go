package visioncache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/db"
	"github.com/kailas-cloud/refurnish/internal/domain"
)

type mockVision struct {
	result       domain.AnalysisResult
	err          error
	analyzeCalls int
	renderCalls  int
}

func (m *mockVision) Analyze(_ context.Context, _ domain.AnalysisRequest) (domain.AnalysisResult, error) {
	m.analyzeCalls++
	return m.result, m.err
}

func (m *mockVision) Render(_ context.Context, _ domain.RenderRequest) (domain.RenderResult, error) {
	m.renderCalls++
	return domain.RenderResult{Data: []byte("png"), MIMEType: "image/png"}, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedClient(t *testing.T, inner *mockVision) (*CachedClient, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return New(inner, ms, time.Hour, nil, zap.NewNop()), ms
}
