package worker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/queue"
	"toacrd.app/oracle/internal/worker"
)

type fakeClaimer struct {
	mu      sync.Mutex
	batches [][]queue.Message
	err     error
}

func (f *fakeClaimer) ClaimStale(context.Context, time.Duration, int64) ([]queue.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

var _ = Describe("Reclaimer", func() {
	var (
		ctx       context.Context
		consumer  *fakeConsumer
		publisher *fakePublisher
		claimer   *fakeClaimer
		asked     int
		answerer  answererFunc
	)

	BeforeEach(func() {
		ctx = context.Background()
		consumer = &fakeConsumer{}
		publisher = &fakePublisher{}
		claimer = &fakeClaimer{}
		asked = 0
		answerer = func(_ context.Context, userID, question string) brain.Report {
			asked++
			return brain.Report{UserID: userID, Answer: "réponse", Model: "m"}
		}
	})

	newReclaimer := func() *worker.Reclaimer {
		w := worker.New(consumer, answerer, publisher, worker.Config{MaxAttempts: 3, AnswerStream: "a"})
		return worker.NewReclaimer(claimer, w, worker.ReclaimerConfig{MinIdle: time.Minute})
	}

	It("answers and acks a stale question", func() {
		claimer.batches = [][]queue.Message{{{ID: "1-0", UserID: "u1", Question: "q", Attempt: 2}}}

		Expect(newReclaimer().ReclaimOnce(ctx)).To(Succeed())

		acked, requeued, dlq := consumer.snapshot()
		Expect(acked).To(Equal([]string{"1-0"}))
		Expect(requeued).To(BeEmpty())
		Expect(dlq).To(BeEmpty())
		Expect(publisher.sent).To(HaveLen(1))
	})

	It("requeues a failed stale question that has attempts left", func() {
		publisher.err = errors.New("redis down")
		claimer.batches = [][]queue.Message{{{ID: "1-0", UserID: "u1", Question: "q", Attempt: 2}}}

		Expect(newReclaimer().ReclaimOnce(ctx)).To(Succeed())

		_, requeued, dlq := consumer.snapshot()
		Expect(requeued).To(Equal([]string{"1-0"}))
		Expect(dlq).To(BeEmpty())
	})

	It("dead-letters a failed stale question on its last attempt", func() {
		publisher.err = errors.New("redis down")
		claimer.batches = [][]queue.Message{{{ID: "1-0", UserID: "u1", Question: "q", Attempt: 3}}}

		Expect(newReclaimer().ReclaimOnce(ctx)).To(Succeed())

		_, requeued, dlq := consumer.snapshot()
		Expect(requeued).To(BeEmpty())
		Expect(dlq).To(Equal([]string{"1-0"}))
	})

	It("dead-letters without answering once deliveries exceed the limit", func() {
		claimer.batches = [][]queue.Message{{{ID: "1-0", UserID: "u1", Question: "q", Attempt: 4}}}

		Expect(newReclaimer().ReclaimOnce(ctx)).To(Succeed())

		Expect(asked).To(Equal(0))
		_, _, dlq := consumer.snapshot()
		Expect(dlq).To(Equal([]string{"1-0"}))
	})

	It("does not run a poisoned question forever", func() {
		answerer = func(context.Context, string, string) brain.Report {
			asked++
			panic("boom")
		}
		// Each cycle sees the requeued copy with the next attempt number.
		claimer.batches = [][]queue.Message{
			{{ID: "1-0", UserID: "u1", Question: "q", Attempt: 2}},
			{{ID: "2-0", UserID: "u1", Question: "q", Attempt: 3}},
		}
		r := newReclaimer()
		for i := 0; i < 3; i++ {
			Expect(r.ReclaimOnce(ctx)).To(Succeed())
		}

		Expect(asked).To(Equal(2))
		_, requeued, dlq := consumer.snapshot()
		Expect(requeued).To(Equal([]string{"1-0"}))
		Expect(dlq).To(Equal([]string{"2-0"}))
	})

	It("reports claim errors", func() {
		claimer.err = errors.New("xpending failed")
		Expect(newReclaimer().ReclaimOnce(ctx)).To(MatchError(ContainSubstring("xpending failed")))
	})
})
