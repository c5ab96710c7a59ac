package seglog_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/seglog/seglog/internal/seglog"
	"github.com/seglog/seglog/internal/storage"
)

var _ = Describe("Recovery", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("with the memory backend", func() {
		var backend *storage.Memory

		BeforeEach(func() {
			backend = storage.NewMemory()
		})

		It("recovers everything which was synced before a crash", func() {
			log, err := seglog.Open(ctx, backend)
			Expect(err).ToNot(HaveOccurred())

			appendAll(ctx, log, "x")
			Expect(log.Sync(ctx)).To(Succeed())
			appendAll(ctx, log, "y")
			Expect(log.Flush(ctx)).To(Succeed())

			// No Close: the log is abandoned like a crashing process would.
			backend.Crash()

			recoveredLog, err := seglog.Open(ctx, backend)
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(recoveredLog.Close(ctx)).To(Succeed())
			}()

			reader, err := recoveredLog.Scan(ctx, seglog.Start)
			Expect(err).ToNot(HaveOccurred())
			Expect(payloads(collect(reader))).To(Equal([]string{"x"}))
			Expect(recoveredLog.NextPosition()).To(Equal(seglog.Position{Segment: 0, Offset: 9}))
		})

		It("appends the lost record at the same position after recovery", func() {
			log, err := seglog.Open(ctx, backend)
			Expect(err).ToNot(HaveOccurred())

			appendAll(ctx, log, "x")
			Expect(log.Sync(ctx)).To(Succeed())
			positions := appendAll(ctx, log, "y")
			Expect(log.Flush(ctx)).To(Succeed())
			lostPosition := positions[0]

			backend.Crash()

			recoveredLog, err := seglog.Open(ctx, backend)
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(recoveredLog.Close(ctx)).To(Succeed())
			}()

			retried := appendAll(ctx, recoveredLog, "y")
			Expect(retried[0]).To(Equal(lostPosition))
			Expect(recoveredLog.Sync(ctx)).To(Succeed())

			reader, err := recoveredLog.Scan(ctx, seglog.Start)
			Expect(err).ToNot(HaveOccurred())
			Expect(payloads(collect(reader))).To(Equal([]string{"x", "y"}))
		})

		It("recovers a multi-segment log at its durable tail", func() {
			log, err := seglog.Open(ctx, backend, seglog.WithRotationThreshold(25))
			Expect(err).ToNot(HaveOccurred())

			appendAll(ctx, log, "aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc")
			Expect(log.Sync(ctx)).To(Succeed())
			Expect(log.Close(ctx)).To(Succeed())

			recoveredLog, err := seglog.Open(ctx, backend, seglog.WithRotationThreshold(25))
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(recoveredLog.Close(ctx)).To(Succeed())
			}()

			Expect(recoveredLog.Segments()).To(Equal([]seglog.SegmentInfo{
				{Seq: 0, Size: 36, Sealed: true},
				{Seq: 1, Size: 18, Sealed: false},
			}))
			Expect(recoveredLog.NextPosition()).To(Equal(seglog.Position{Segment: 1, Offset: 18}))

			reader, err := recoveredLog.Scan(ctx, seglog.Start)
			Expect(err).ToNot(HaveOccurred())
			Expect(payloads(collect(reader))).To(Equal([]string{"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc"}))
		})

		It("is idempotent across repeated opens", func() {
			log, err := seglog.Open(ctx, backend)
			Expect(err).ToNot(HaveOccurred())
			appendAll(ctx, log, "a", "bb", "ccc")
			Expect(log.Sync(ctx)).To(Succeed())
			Expect(log.Close(ctx)).To(Succeed())

			for iteration := 0; iteration < 3; iteration++ {
				reopened, err := seglog.Open(ctx, backend)
				Expect(err).ToNot(HaveOccurred())

				reader, err := reopened.Scan(ctx, seglog.Start)
				Expect(err).ToNot(HaveOccurred())
				Expect(payloads(collect(reader))).To(Equal([]string{"a", "bb", "ccc"}))
				Expect(reopened.NextPosition()).To(Equal(seglog.Position{Segment: 0, Offset: 30}))
				Expect(reopened.Close(ctx)).To(Succeed())
			}
		})

		It("fails when a segment is missing from the sequence", func() {
			log, err := seglog.Open(ctx, backend, seglog.WithRotationThreshold(25))
			Expect(err).ToNot(HaveOccurred())
			appendAll(ctx, log, "aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc", "dddddddddd", "eeeeeeeeee")
			Expect(log.Close(ctx)).To(Succeed())

			Expect(backend.Remove(ctx, "00000000000000000001.seg")).To(Succeed())

			_, err = seglog.Open(ctx, backend, seglog.WithRotationThreshold(25))
			Expect(err).To(MatchError(seglog.ErrRotationInconsistency))
		})
	})

	Describe("with the disk backend", func() {
		var directory string

		BeforeEach(func() {
			var err error
			directory, err = os.MkdirTemp("", "seglog-*")
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(func() {
				Expect(os.RemoveAll(directory)).To(Succeed())
			})
		})

		It("discards a torn frame at the tail of the last segment", func() {
			log, err := seglog.OpenDirectory(ctx, directory)
			Expect(err).ToNot(HaveOccurred())
			appendAll(ctx, log, "aaaa", "bbbb", "cccc")
			Expect(log.Close(ctx)).To(Succeed())

			// Each frame is 12 bytes. Cutting the file at byte 30 leaves the
			// third frame incomplete, as if the process died mid-write.
			segmentPath := filepath.Join(directory, "00000000000000000000.seg")
			Expect(os.Truncate(segmentPath, 30)).To(Succeed())

			recoveredLog, err := seglog.OpenDirectory(ctx, directory)
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(recoveredLog.Close(ctx)).To(Succeed())
			}()

			reader, err := recoveredLog.Scan(ctx, seglog.Start)
			Expect(err).ToNot(HaveOccurred())
			Expect(payloads(collect(reader))).To(Equal([]string{"aaaa", "bbbb"}))
			Expect(recoveredLog.NextPosition()).To(Equal(seglog.Position{Segment: 0, Offset: 24}))

			// The damaged bytes were cut off in place, so the next open does
			// not have to discard anything again.
			info, err := os.Stat(segmentPath)
			Expect(err).ToNot(HaveOccurred())
			Expect(info.Size()).To(Equal(int64(24)))
		})

		It("accepts new records after a damaged tail was discarded", func() {
			log, err := seglog.OpenDirectory(ctx, directory)
			Expect(err).ToNot(HaveOccurred())
			appendAll(ctx, log, "aaaa", "bbbb")
			Expect(log.Close(ctx)).To(Succeed())

			segmentPath := filepath.Join(directory, "00000000000000000000.seg")
			Expect(os.Truncate(segmentPath, 17)).To(Succeed())

			recoveredLog, err := seglog.OpenDirectory(ctx, directory)
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(recoveredLog.Close(ctx)).To(Succeed())
			}()

			positions := appendAll(ctx, recoveredLog, "dddd")
			Expect(positions).To(Equal([]seglog.Position{
				{Segment: 0, Offset: 12},
			}))
			Expect(recoveredLog.Sync(ctx)).To(Succeed())

			reader, err := recoveredLog.Scan(ctx, seglog.Start)
			Expect(err).ToNot(HaveOccurred())
			Expect(payloads(collect(reader))).To(Equal([]string{"aaaa", "dddd"}))
		})

		It("fails when a sealed segment contains invalid bytes", func() {
			log, err := seglog.OpenDirectory(ctx, directory, seglog.WithRotationThreshold(25))
			Expect(err).ToNot(HaveOccurred())
			appendAll(ctx, log, "aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc")
			Expect(log.Close(ctx)).To(Succeed())

			// Flip one payload byte in the first, sealed segment.
			segmentPath := filepath.Join(directory, "00000000000000000000.seg")
			content, err := os.ReadFile(segmentPath)
			Expect(err).ToNot(HaveOccurred())
			content[10] ^= 0xff
			Expect(os.WriteFile(segmentPath, content, 0o664)).To(Succeed())

			_, err = seglog.OpenDirectory(ctx, directory, seglog.WithRotationThreshold(25))
			Expect(err).To(MatchError(seglog.ErrCorruptLog))
		})

		It("ignores objects which are not segments", func() {
			log, err := seglog.OpenDirectory(ctx, directory)
			Expect(err).ToNot(HaveOccurred())
			appendAll(ctx, log, "a")
			Expect(log.Close(ctx)).To(Succeed())

			Expect(os.WriteFile(filepath.Join(directory, "notes.txt"), []byte("unrelated"), 0o664)).To(Succeed())

			recoveredLog, err := seglog.OpenDirectory(ctx, directory)
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(recoveredLog.Close(ctx)).To(Succeed())
			}()

			reader, err := recoveredLog.Scan(ctx, seglog.Start)
			Expect(err).ToNot(HaveOccurred())
			Expect(payloads(collect(reader))).To(Equal([]string{"a"}))
		})
	})
})
