package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/registry"
	"basegraph.app/gapengine/internal/store"
	"basegraph.app/gapengine/internal/store/memstore"
)

var _ = Describe("Registry", func() {
	var (
		ctx  context.Context
		mem  *memstore.Store
		reg  *registry.Registry
		ref  model.ContentRef
		sent atomic.Int32
		noop registry.EnqueueFunc
	)

	BeforeEach(func() {
		ctx = context.Background()
		mem = memstore.New()
		reg = registry.New(mem.Jobs())
		ref = model.ContentRef{ContentID: 77, ContentVersion: 2}
		sent.Store(0)
		noop = func(context.Context, *model.Job) error {
			sent.Add(1)
			return nil
		}
	})

	Describe("Submit", func() {
		It("creates a queued job and enqueues it", func() {
			job, created, err := reg.Submit(ctx, ref, nil, noop)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(job.TaskID).NotTo(BeZero())
			Expect(job.State).To(Equal(model.JobStateQueued))
			Expect(job.ContentRef).To(Equal(ref))
			Expect(sent.Load()).To(Equal(int32(1)))
		})

		It("returns the existing task id while a job is active", func() {
			first, _, err := reg.Submit(ctx, ref, nil, noop)
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.Start(ctx, first)
			Expect(err).NotTo(HaveOccurred())

			second, created, err := reg.Submit(ctx, ref, nil, noop)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(second.TaskID).To(Equal(first.TaskID))
			Expect(sent.Load()).To(Equal(int32(1)))
		})

		It("keeps the content locked while the job sits in the queue", func() {
			first, _, err := reg.Submit(ctx, ref, nil, noop)
			Expect(err).NotTo(HaveOccurred())

			second, created, err := reg.Submit(ctx, model.ContentRef{ContentID: ref.ContentID, ContentVersion: 3}, nil, noop)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(second.TaskID).To(Equal(first.TaskID))
			Expect(second.State).To(Equal(model.JobStateQueued))
			Expect(mem.Jobs().Create(ctx, &model.Job{TaskID: 5, ContentRef: ref})).To(MatchError(store.ErrActiveJobExists))
		})

		It("dedupes concurrent submissions to one job", func() {
			const callers = 20
			ids := make([]int64, callers)
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					job, _, err := reg.Submit(ctx, ref, nil, noop)
					Expect(err).NotTo(HaveOccurred())
					ids[i] = job.TaskID
				}(i)
			}
			wg.Wait()

			for _, id := range ids {
				Expect(id).To(Equal(ids[0]))
			}
			Expect(sent.Load()).To(Equal(int32(1)))
		})

		It("keeps different content ids independent", func() {
			a, _, err := reg.Submit(ctx, ref, nil, noop)
			Expect(err).NotTo(HaveOccurred())
			b, created, err := reg.Submit(ctx, model.ContentRef{ContentID: 78, ContentVersion: 1}, nil, noop)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(b.TaskID).NotTo(Equal(a.TaskID))
		})

		It("creates a new job once the previous one is terminal", func() {
			first, _, _ := reg.Submit(ctx, ref, nil, noop)
			_, err := reg.Fail(ctx, first, errors.New("all scorers failed"))
			Expect(err).NotTo(HaveOccurred())

			second, created, err := reg.Submit(ctx, ref, nil, noop)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(second.TaskID).NotTo(Equal(first.TaskID))
		})

		It("fails the job when enqueueing fails", func() {
			boom := errors.New("redis down")
			_, _, err := reg.Submit(ctx, ref, nil, func(context.Context, *model.Job) error { return boom })
			Expect(err).To(MatchError(boom))

			_, err = mem.Jobs().GetActiveByContent(ctx, ref.ContentID)
			Expect(err).To(MatchError(store.ErrNotFound))

			jobs, err := mem.Jobs().ListByContent(ctx, ref.ContentID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].State).To(Equal(model.JobStateFailed))
			Expect(*jobs[0].Error).To(ContainSubstring("redis down"))
		})

		It("returns the winner when another replica inserts first", func() {
			winner := &model.Job{TaskID: 999, ContentRef: ref, State: model.JobStateQueued}
			lookups := 0
			jobs := &mockJobStore{
				getActiveByContentFn: func(context.Context, int64) (*model.Job, error) {
					lookups++
					if lookups == 1 {
						return nil, store.ErrNotFound
					}
					return winner, nil
				},
				createFn: func(context.Context, *model.Job) error { return store.ErrActiveJobExists },
			}

			job, created, err := registry.New(jobs).Submit(ctx, ref, nil, noop)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(job.TaskID).To(Equal(int64(999)))
			Expect(sent.Load()).To(BeZero())
		})

		It("gives up under persistent contention", func() {
			jobs := &mockJobStore{
				getActiveByContentFn: func(context.Context, int64) (*model.Job, error) { return nil, store.ErrNotFound },
				createFn:             func(context.Context, *model.Job) error { return store.ErrActiveJobExists },
			}

			_, _, err := registry.New(jobs).Submit(ctx, ref, nil, noop)

			Expect(err).To(MatchError(registry.ErrSubmitContention))
		})
	})

	Describe("transitions", func() {
		It("moves queued to running exactly once", func() {
			job, _, _ := reg.Submit(ctx, ref, nil, noop)

			running, err := reg.Start(ctx, job)
			Expect(err).NotTo(HaveOccurred())
			Expect(running.State).To(Equal(model.JobStateRunning))
			Expect(running.StartedAt).NotTo(BeNil())

			_, err = reg.Start(ctx, job)
			Expect(err).To(MatchError(store.ErrInvalidTransition))
		})

		It("does not fail a terminal job", func() {
			job, _, _ := reg.Submit(ctx, ref, nil, noop)
			_, err := reg.Fail(ctx, job, errors.New("first"))
			Expect(err).NotTo(HaveOccurred())

			_, err = reg.Fail(ctx, job, errors.New("second"))
			Expect(err).To(MatchError(store.ErrInvalidTransition))

			stored, _ := reg.Get(ctx, job.TaskID)
			Expect(*stored.Error).To(Equal("first"))
		})

		It("runs Complete under the content lock", func() {
			job, _, _ := reg.Submit(ctx, ref, nil, noop)
			called := false
			err := reg.Complete(ctx, job, func(context.Context) error {
				called = true
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(called).To(BeTrue())
		})
	})
})

var _ = Describe("KeyedMutex", func() {
	It("serializes holders of the same key and cleans up", func() {
		k := registry.NewKeyedMutex()
		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock(1)
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				inside.Add(-1)
				unlock()
			}()
		}
		wg.Wait()

		Expect(maxInside.Load()).To(Equal(int32(1)))
		Expect(k.Len()).To(BeZero())
	})

	It("does not block different keys", func() {
		k := registry.NewKeyedMutex()
		unlockA := k.Lock(1)
		defer unlockA()

		done := make(chan struct{})
		go func() {
			k.Lock(2)()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("tolerates double unlock", func() {
		k := registry.NewKeyedMutex()
		unlock := k.Lock(1)
		unlock()
		unlock()
		Expect(k.Len()).To(BeZero())
	})
})
