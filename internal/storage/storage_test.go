package storage_test

import (
	"context"
	"io"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/seglog/seglog/internal/storage"
)

// describeBackend contains the behavior every backend needs to fulfill. It is
// run once per backend implementation.
func describeBackend(name string, newBackend func() storage.Backend) bool {
	return Describe(name, func() {
		var ctx context.Context
		var backend storage.Backend

		BeforeEach(func() {
			ctx = context.Background()
			backend = newBackend()
		})

		It("should create and list objects", func() {
			handle, err := backend.Create(ctx, "00000000000000000000.seg")
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(handle.Close()).To(Succeed())
			}()

			names, err := backend.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(names).To(Equal([]string{"00000000000000000000.seg"}))
		})

		It("should list objects in lexicographic order", func() {
			for _, name := range []string{"c", "a", "b"} {
				handle, err := backend.Create(ctx, name)
				Expect(err).ToNot(HaveOccurred())
				Expect(handle.Close()).To(Succeed())
			}

			names, err := backend.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(names).To(Equal([]string{"a", "b", "c"}))
		})

		It("should refuse to create an object twice", func() {
			handle, err := backend.Create(ctx, "taken")
			Expect(err).ToNot(HaveOccurred())
			Expect(handle.Close()).To(Succeed())

			_, err = backend.Create(ctx, "taken")
			Expect(err).To(MatchError(storage.ErrAlreadyExists))
		})

		It("should fail to open a missing object", func() {
			_, err := backend.Open(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("should append and read back bytes", func() {
			handle, err := backend.Create(ctx, "data")
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(handle.Close()).To(Succeed())
			}()

			newLength, err := handle.Append(ctx, []byte("hello "))
			Expect(err).ToNot(HaveOccurred())
			Expect(newLength).To(Equal(int64(6)))

			newLength, err = handle.Append(ctx, []byte("world"))
			Expect(err).ToNot(HaveOccurred())
			Expect(newLength).To(Equal(int64(11)))

			buffer := make([]byte, 5)
			n, err := handle.ReadAt(ctx, buffer, 6)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(5))
			Expect(buffer).To(Equal([]byte("world")))
		})

		It("should report io.EOF when reading past the end", func() {
			handle, err := backend.Create(ctx, "short")
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(handle.Close()).To(Succeed())
			}()

			_, err = handle.Append(ctx, []byte("abc"))
			Expect(err).ToNot(HaveOccurred())

			buffer := make([]byte, 5)
			n, err := handle.ReadAt(ctx, buffer, 1)
			Expect(err).To(MatchError(io.EOF))
			Expect(n).To(Equal(2))
			Expect(buffer[:n]).To(Equal([]byte("bc")))
		})

		It("should report the object size", func() {
			handle, err := backend.Create(ctx, "sized")
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(handle.Close()).To(Succeed())
			}()

			size, err := handle.Size(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(int64(0)))

			_, err = handle.Append(ctx, []byte("abcdef"))
			Expect(err).ToNot(HaveOccurred())

			size, err = handle.Size(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(int64(6)))
		})

		It("should truncate an object in place", func() {
			handle, err := backend.Create(ctx, "cut")
			Expect(err).ToNot(HaveOccurred())
			defer func() {
				Expect(handle.Close()).To(Succeed())
			}()

			_, err = handle.Append(ctx, []byte("abcdef"))
			Expect(err).ToNot(HaveOccurred())

			truncater, ok := handle.(storage.Truncater)
			Expect(ok).To(BeTrue())
			Expect(truncater.Truncate(ctx, 3)).To(Succeed())

			size, err := handle.Size(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(int64(3)))
		})

		It("should remove objects", func() {
			handle, err := backend.Create(ctx, "doomed")
			Expect(err).ToNot(HaveOccurred())
			Expect(handle.Close()).To(Succeed())

			Expect(backend.Remove(ctx, "doomed")).To(Succeed())

			_, err = backend.Open(ctx, "doomed")
			Expect(err).To(MatchError(storage.ErrNotFound))

			Expect(backend.Remove(ctx, "doomed")).To(MatchError(storage.ErrNotFound))
		})

		It("should refuse operations on a canceled context", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := backend.Create(canceled, "never")
			Expect(err).To(MatchError(context.Canceled))

			_, err = backend.List(canceled)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
}

var _ = describeBackend("Disk", func() storage.Backend {
	dir, err := os.MkdirTemp("", "test-storage-disk-*")
	Expect(err).ToNot(HaveOccurred())
	DeferCleanup(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	backend, err := storage.NewDisk(dir)
	Expect(err).ToNot(HaveOccurred())
	return backend
})

var _ = describeBackend("Memory", func() storage.Backend {
	return storage.NewMemory()
})

var _ = Describe("Memory crash simulation", func() {
	It("should drop all bytes appended after the last sync", func() {
		ctx := context.Background()
		backend := storage.NewMemory()

		handle, err := backend.Create(ctx, "volatile")
		Expect(err).ToNot(HaveOccurred())

		_, err = handle.Append(ctx, []byte("durable"))
		Expect(err).ToNot(HaveOccurred())
		Expect(handle.Sync(ctx)).To(Succeed())

		_, err = handle.Append(ctx, []byte("volatile"))
		Expect(err).ToNot(HaveOccurred())

		backend.Crash()

		reopened, err := backend.Open(ctx, "volatile")
		Expect(err).ToNot(HaveOccurred())
		size, err := reopened.Size(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(size).To(Equal(int64(len("durable"))))
	})
})

var _ = Describe("SectionReader", func() {
	It("should read exactly the requested byte range", func() {
		ctx := context.Background()
		backend := storage.NewMemory()

		handle, err := backend.Create(ctx, "ranged")
		Expect(err).ToNot(HaveOccurred())
		_, err = handle.Append(ctx, []byte("0123456789"))
		Expect(err).ToNot(HaveOccurred())

		reader := storage.NewSectionReader(ctx, handle, 2, 5)
		content, err := io.ReadAll(reader)
		Expect(err).ToNot(HaveOccurred())
		Expect(content).To(Equal([]byte("23456")))
	})
})
