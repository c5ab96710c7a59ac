package seglog_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/seglog/seglog/internal/seglog"
	"github.com/seglog/seglog/internal/storage"
)

var _ = Describe("SyncPolicy", func() {
	var ctx context.Context
	var backend *storage.Memory

	BeforeEach(func() {
		ctx = context.Background()
		backend = storage.NewMemory()
	})

	// openLog opens a log on the shared backend and closes it when the spec
	// is done, so policy background tasks never outlive the spec.
	openLog := func(opts ...seglog.Option) *seglog.Log {
		GinkgoHelper()

		log, err := seglog.Open(ctx, backend, opts...)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() {
			Expect(log.Close(ctx)).To(Succeed())
		})
		return log
	}

	// survivors crashes the backend, recovers the log and returns the payloads
	// of all records which survived.
	survivors := func() []string {
		GinkgoHelper()

		backend.Crash()
		recoveredLog, err := seglog.Open(ctx, backend)
		Expect(err).ToNot(HaveOccurred())
		defer func() {
			Expect(recoveredLog.Close(ctx)).To(Succeed())
		}()

		reader, err := recoveredLog.Scan(ctx, seglog.Start)
		Expect(err).ToNot(HaveOccurred())
		return payloads(collect(reader))
	}

	Describe("None", func() {
		It("loses records which were never explicitly synced", func() {
			log := openLog(seglog.WithSyncPolicyNone())

			appendAll(ctx, log, "a")
			Expect(log.Flush(ctx)).To(Succeed())

			Expect(survivors()).To(BeEmpty())
		})

		It("keeps records covered by an explicit sync", func() {
			log := openLog(seglog.WithSyncPolicyNone())

			appendAll(ctx, log, "a", "bb")
			Expect(log.Sync(ctx)).To(Succeed())
			appendAll(ctx, log, "ccc")
			Expect(log.Flush(ctx)).To(Succeed())

			Expect(survivors()).To(Equal([]string{"a", "bb"}))
		})
	})

	Describe("Immediate", func() {
		It("makes every append durable on its own", func() {
			log := openLog(seglog.WithSyncPolicyImmediate())

			appendAll(ctx, log, "a", "bb", "ccc")

			Expect(survivors()).To(Equal([]string{"a", "bb", "ccc"}))
		})
	})

	Describe("Periodic", func() {
		It("makes appends durable after the configured append count", func() {
			log := openLog(seglog.WithSyncPolicyPeriodic(2, time.Hour))

			appendAll(ctx, log, "a", "bb")

			Expect(survivors()).To(Equal([]string{"a", "bb"}))
		})

		It("makes appends durable after the configured interval", func() {
			observed := &failingBackend{Backend: backend}
			log, err := seglog.Open(ctx, observed, seglog.WithSyncPolicyPeriodic(1000, 10*time.Millisecond))
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(func() {
				Expect(log.Close(ctx)).To(Succeed())
			})

			appendAll(ctx, log, "a")

			// The append count is far from reached, so the barrier we see must
			// come from the timer.
			Eventually(observed.syncs.Load).Should(BeNumerically(">", 0))

			Expect(survivors()).To(Equal([]string{"a"}))
		})

		It("syncs outstanding appends on close", func() {
			log, err := seglog.Open(ctx, backend, seglog.WithSyncPolicyPeriodic(1000, time.Hour))
			Expect(err).ToNot(HaveOccurred())

			appendAll(ctx, log, "a")
			Expect(log.Close(ctx)).To(Succeed())

			Expect(survivors()).To(Equal([]string{"a"}))
		})
	})

	Describe("Grouped", func() {
		It("returns from append only once the record is durable", func() {
			log := openLog(seglog.WithSyncPolicyGrouped(time.Millisecond))

			appendAll(ctx, log, "a")

			Expect(survivors()).To(Equal([]string{"a"}))
		})

		It("covers concurrent appenders with shared barriers", func() {
			log := openLog(seglog.WithSyncPolicyGrouped(time.Millisecond))

			var waitGroup sync.WaitGroup
			for i := 0; i < 10; i++ {
				i := i
				waitGroup.Add(1)
				go func() {
					defer waitGroup.Done()
					defer GinkgoRecover()

					_, err := log.Append(ctx, []byte(fmt.Sprintf("record-%02d", i)))
					Expect(err).ToNot(HaveOccurred())
				}()
			}
			waitGroup.Wait()

			Expect(survivors()).To(HaveLen(10))
		})

		It("fails waiting appenders when the final barrier fails", func() {
			broken := &failingBackend{
				Backend: backend,
				err:     fmt.Errorf("injected failure"),
			}
			log, err := seglog.Open(ctx, broken, seglog.WithSyncPolicyGrouped(time.Hour))
			Expect(err).ToNot(HaveOccurred())

			broken.broken = true
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()

				_, err := log.Append(ctx, []byte("stuck"))
				done <- err
			}()

			// The barrier window is far away, so the appender parks waiting
			// for a barrier which only the shutdown can issue.
			Consistently(done).ShouldNot(Receive())

			Expect(log.Close(ctx)).ToNot(Succeed())
			Eventually(done).Should(Receive(MatchError(ContainSubstring("injected failure"))))
		})
	})
})
