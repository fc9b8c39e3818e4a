package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"basegraph.app/gapengine/internal/queue"
	"basegraph.app/gapengine/internal/service"
	"basegraph.app/gapengine/internal/worker"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func msg(n int64) queue.Message {
	return queue.Message{ID: fmt.Sprintf("%d-0", n), TaskID: n, ContentID: 100 + n, ContentVersion: 1, Attempt: 1}
}

var _ = Describe("Pool", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		consumer *mockConsumer
		executor *mockExecutor
		observer *mockObserver
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		executor = &mockExecutor{}
		observer = newMockObserver()
	})

	AfterEach(func() {
		cancel()
	})

	start := func(size int) *worker.Pool {
		pool := worker.New(consumer, executor, worker.Config{PoolSize: size, ErrorBackoff: 5 * time.Millisecond}, worker.WithObserver(observer))
		go func() { _ = pool.Run(ctx) }()
		return pool
	}

	It("acks messages whose jobs succeed", func() {
		consumer = newMockConsumer(msg(1), msg(2), msg(3))
		pool := start(2)

		Eventually(consumer.ackedIDs).Should(ConsistOf("1-0", "2-0", "3-0"))
		pool.Stop()

		Expect(consumer.nackedReasons()).To(BeEmpty())
		size, _, outcomes := observer.snapshot()
		Expect(size).To(Equal(2))
		Expect(outcomes[worker.OutcomeAcked]).To(Equal(3))
	})

	It("nacks messages whose jobs fail", func() {
		consumer = newMockConsumer(msg(1))
		executor.executeFn = func(_ context.Context, _ int64) error {
			return service.ErrChapterNotFound
		}
		pool := start(1)

		Eventually(consumer.nackedReasons).Should(HaveKeyWithValue("1-0", service.ErrChapterNotFound.Error()))
		pool.Stop()
		Expect(consumer.ackedIDs()).To(BeEmpty())
	})

	It("acks without dead-lettering when another worker owns the job", func() {
		consumer = newMockConsumer(msg(1))
		executor.executeFn = func(_ context.Context, _ int64) error {
			return fmt.Errorf("%w: task 1 is running", service.ErrJobNotQueued)
		}
		pool := start(1)

		Eventually(consumer.ackedIDs).Should(ConsistOf("1-0"))
		pool.Stop()
		Expect(consumer.nackedReasons()).To(BeEmpty())
		_, _, outcomes := observer.snapshot()
		Expect(outcomes[worker.OutcomeSkipped]).To(Equal(1))
	})

	It("recovers from a panicking job and keeps working", func() {
		consumer = newMockConsumer(msg(1), msg(2))
		executor.executeFn = func(_ context.Context, taskID int64) error {
			if taskID == 1 {
				panic("boom")
			}
			return nil
		}
		pool := start(1)

		Eventually(consumer.ackedIDs).Should(ConsistOf("2-0"))
		pool.Stop()
		Expect(consumer.nackedReasons()).To(HaveKeyWithValue("1-0", ContainSubstring("panic: boom")))
	})

	It("never runs more jobs at once than the pool size", func() {
		msgs := make([]queue.Message, 0, 12)
		for i := int64(1); i <= 12; i++ {
			msgs = append(msgs, msg(i))
		}
		consumer = newMockConsumer(msgs...)

		var inFlight, peak atomic.Int32
		executor.executeFn = func(_ context.Context, _ int64) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}
		pool := start(3)

		Eventually(consumer.ackedIDs).Should(HaveLen(12))
		pool.Stop()

		Expect(peak.Load()).To(BeNumerically("<=", 3))
		_, maxBusy, _ := observer.snapshot()
		Expect(maxBusy).To(BeNumerically("<=", 3))
	})

	It("backs off and retries when dequeue fails", func() {
		consumer = newMockConsumer()
		consumer.dequeueErr = errors.New("redis down")
		pool := start(1)

		Consistently(executor.executedCount, 30*time.Millisecond).Should(BeZero())

		consumer.mu.Lock()
		consumer.dequeueErr = nil
		consumer.pending = []queue.Message{msg(7)}
		consumer.mu.Unlock()

		Eventually(consumer.ackedIDs).Should(ConsistOf("7-0"))
		pool.Stop()
	})

	It("returns the context error when cancelled", func() {
		consumer = newMockConsumer()
		pool := worker.New(consumer, executor, worker.Config{PoolSize: 2})

		done := make(chan error, 1)
		go func() { done <- pool.Run(ctx) }()
		cancel()

		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})
})

var _ = Describe("Reclaimer", func() {
	var (
		ctx      context.Context
		consumer *mockConsumer
		executor *mockExecutor
		observer *mockObserver
	)

	BeforeEach(func() {
		ctx = context.Background()
		consumer = newMockConsumer()
		executor = &mockExecutor{}
		observer = newMockObserver()
	})

	It("recovers stale messages and acks them", func() {
		consumer.stale = []queue.Message{msg(1), msg(2)}
		r := worker.NewReclaimer(consumer, executor, worker.ReclaimerConfig{}, observer)

		Expect(r.ReclaimOnce(ctx)).To(Succeed())

		Expect(executor.recovered).To(ConsistOf(int64(1), int64(2)))
		Expect(consumer.ackedIDs()).To(ConsistOf("1-0", "2-0"))
		Expect(observer.reclaimed).To(Equal(2))
	})

	It("dead-letters messages whose recovery fails", func() {
		consumer.stale = []queue.Message{msg(1)}
		executor.recoverFn = func(_ context.Context, _ int64) error {
			return service.ErrJobNotFound
		}
		r := worker.NewReclaimer(consumer, executor, worker.ReclaimerConfig{}, nil)

		Expect(r.ReclaimOnce(ctx)).To(Succeed())

		Expect(consumer.nackedReasons()).To(HaveKey("1-0"))
		Expect(consumer.ackedIDs()).To(BeEmpty())
	})

	It("does nothing without stale messages", func() {
		r := worker.NewReclaimer(consumer, executor, worker.ReclaimerConfig{}, nil)
		Expect(r.ReclaimOnce(ctx)).To(Succeed())
		Expect(executor.recovered).To(BeEmpty())
	})

	It("stops its loop on Stop", func() {
		r := worker.NewReclaimer(consumer, executor, worker.ReclaimerConfig{Interval: 5 * time.Millisecond}, nil)
		go r.Run(ctx)
		r.Stop()
	})
})
