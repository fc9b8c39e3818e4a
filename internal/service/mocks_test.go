package service_test

import (
	"context"
	"sync"
	"time"

	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/queue"
	"basegraph.app/gapengine/internal/scorer"
	"basegraph.app/gapengine/internal/service"
)

type mockEnqueuer struct {
	mu        sync.Mutex
	messages  []queue.Message
	enqueueFn func(ctx context.Context, msg queue.Message) error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, msg queue.Message) error {
	if m.enqueueFn != nil {
		if err := m.enqueueFn(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockEnqueuer) sent() []queue.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]queue.Message(nil), m.messages...)
}

type mockRunner struct {
	runFn func(ctx context.Context, content scorer.Content) []model.DimensionResult
}

func (m *mockRunner) Run(ctx context.Context, content scorer.Content) []model.DimensionResult {
	return m.runFn(ctx, content)
}

type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	return m.withTxFn(ctx, fn)
}

type mockRecorder struct {
	mu       sync.Mutex
	outcomes []string
	finished map[model.JobState][]string
	results  int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{finished: map[model.JobState][]string{}}
}

func (m *mockRecorder) SubmitOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockRecorder) JobFinished(state model.JobState, reason string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[state] = append(m.finished[state], reason)
}

func (m *mockRecorder) ResultRecorded(*model.GapAnalysisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results++
}
