package collection

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/domain"
)

type mockRepo struct {
	ensureFn func(ctx context.Context) error
	resetFn  func(ctx context.Context) error
	infoFn   func(ctx context.Context) (domain.IndexStats, error)
}

func (m *mockRepo) EnsureSchema(ctx context.Context) error {
	if m.ensureFn != nil {
		return m.ensureFn(ctx)
	}
	return nil
}

func (m *mockRepo) Reset(ctx context.Context) error {
	if m.resetFn != nil {
		return m.resetFn(ctx)
	}
	return nil
}

func (m *mockRepo) Info(ctx context.Context) (domain.IndexStats, error) {
	if m.infoFn != nil {
		return m.infoFn(ctx)
	}
	return domain.IndexStats{}, nil
}

func TestStats_Ready(t *testing.T) {
	repo := &mockRepo{
		infoFn: func(_ context.Context) (domain.IndexStats, error) {
			return domain.IndexStats{Documents: 510, Indexing: false, PercentIndexed: 1}, nil
		},
	}
	stats, err := New(repo, zap.NewNop()).Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Status != StatusReady || stats.Documents != 510 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStats_Indexing(t *testing.T) {
	repo := &mockRepo{
		infoFn: func(_ context.Context) (domain.IndexStats, error) {
			return domain.IndexStats{Documents: 100, Indexing: true, PercentIndexed: 0.4}, nil
		},
	}
	stats, err := New(repo, zap.NewNop()).Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Status != StatusIndexing {
		t.Errorf("expected indexing status, got %q", stats.Status)
	}
}

func TestStats_Error(t *testing.T) {
	wantErr := errors.New("info failed")
	repo := &mockRepo{
		infoFn: func(_ context.Context) (domain.IndexStats, error) {
			return domain.IndexStats{}, wantErr
		},
	}
	if _, err := New(repo, zap.NewNop()).Stats(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped info error, got %v", err)
	}
}

func TestReset_Delegates(t *testing.T) {
	var called bool
	repo := &mockRepo{resetFn: func(_ context.Context) error {
		called = true
		return nil
	}}
	if err := New(repo, zap.NewNop()).Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected repository reset")
	}
}

func TestProbe_PropagatesUnavailable(t *testing.T) {
	repo := &mockRepo{
		infoFn: func(_ context.Context) (domain.IndexStats, error) {
			return domain.IndexStats{}, domain.ErrIndexUnavailable
		},
	}
	err := New(repo, zap.NewNop()).Probe(context.Background())
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}
