package worker_test

import (
	"context"
	"sync"
	"time"

	"basegraph.app/gapengine/internal/queue"
)

// mockConsumer hands out queued messages once each, then reports an empty
// queue after a short block.
type mockConsumer struct {
	mu       sync.Mutex
	pending  []queue.Message
	stale    []queue.Message
	acked    []queue.Message
	nacked   map[string]string
	dequeued int

	dequeueErr error
	ackErr     error
}

func newMockConsumer(msgs ...queue.Message) *mockConsumer {
	return &mockConsumer{pending: msgs, nacked: map[string]string{}}
}

func (m *mockConsumer) Dequeue(ctx context.Context) (*queue.Message, error) {
	m.mu.Lock()
	if m.dequeueErr != nil {
		err := m.dequeueErr
		m.mu.Unlock()
		return nil, err
	}
	if len(m.pending) > 0 {
		msg := m.pending[0]
		m.pending = m.pending[1:]
		m.dequeued++
		m.mu.Unlock()
		return &msg, nil
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acked = append(m.acked, msg)
	return nil
}

func (m *mockConsumer) Nack(_ context.Context, msg queue.Message, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked[msg.ID] = reason
	return nil
}

func (m *mockConsumer) ClaimStale(_ context.Context, _ time.Duration, _ int64) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stale
	m.stale = nil
	return out, nil
}

func (m *mockConsumer) ackedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.acked))
	for _, a := range m.acked {
		ids = append(ids, a.ID)
	}
	return ids
}

func (m *mockConsumer) nackedReasons() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.nacked))
	for k, v := range m.nacked {
		out[k] = v
	}
	return out
}

type mockExecutor struct {
	mu        sync.Mutex
	executed  []int64
	recovered []int64
	executeFn func(ctx context.Context, taskID int64) error
	recoverFn func(ctx context.Context, taskID int64) error
}

func (m *mockExecutor) Execute(ctx context.Context, taskID int64) error {
	m.mu.Lock()
	m.executed = append(m.executed, taskID)
	m.mu.Unlock()
	if m.executeFn != nil {
		return m.executeFn(ctx, taskID)
	}
	return nil
}

func (m *mockExecutor) Recover(ctx context.Context, taskID int64) error {
	m.mu.Lock()
	m.recovered = append(m.recovered, taskID)
	m.mu.Unlock()
	if m.recoverFn != nil {
		return m.recoverFn(ctx, taskID)
	}
	return nil
}

func (m *mockExecutor) executedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.executed)
}

type mockObserver struct {
	mu        sync.Mutex
	poolSize  int
	busy      int
	maxBusy   int
	outcomes  map[string]int
	reclaimed int
}

func newMockObserver() *mockObserver {
	return &mockObserver{outcomes: map[string]int{}}
}

func (m *mockObserver) SetPoolSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolSize = n
}

func (m *mockObserver) WorkerBusy(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy += delta
	if m.busy > m.maxBusy {
		m.maxBusy = m.busy
	}
}

func (m *mockObserver) MessageHandled(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *mockObserver) MessageReclaimed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reclaimed++
}

func (m *mockObserver) snapshot() (poolSize, maxBusy int, outcomes map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.outcomes))
	for k, v := range m.outcomes {
		out[k] = v
	}
	return m.poolSize, m.maxBusy, out
}
