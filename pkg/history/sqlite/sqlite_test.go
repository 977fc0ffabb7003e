package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/history/sqlite"
)

var _ = Describe("Store", func() {
	var (
		store *sqlite.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = sqlite.NewStore(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	It("creates a file database", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "history.db")

		s, err := sqlite.NewStore(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("lists records for a memory oldest first", func() {
		t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		Expect(store.Append(ctx, &history.Record{
			ID: "h2", MemoryID: "m1", UserID: "alice",
			OldMemory: "Likes tea", NewMemory: "Likes green tea",
			Event: history.EventUpdate, CreatedAt: t0.Add(time.Minute),
		})).To(Succeed())
		Expect(store.Append(ctx, &history.Record{
			ID: "h1", MemoryID: "m1", UserID: "alice",
			NewMemory: "Likes tea", Event: history.EventAdd, CreatedAt: t0,
		})).To(Succeed())
		Expect(store.Append(ctx, &history.Record{
			ID: "h3", MemoryID: "m2", UserID: "alice",
			NewMemory: "Lives in Dhaka", Event: history.EventAdd, CreatedAt: t0,
		})).To(Succeed())

		recs, err := store.List(ctx, "m1")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].ID).To(Equal("h1"))
		Expect(recs[0].Event).To(Equal(history.EventAdd))
		Expect(recs[1].OldMemory).To(Equal("Likes tea"))
		Expect(recs[1].NewMemory).To(Equal("Likes green tea"))
		Expect(recs[1].CreatedAt.Equal(t0.Add(time.Minute))).To(BeTrue())
	})

	It("returns no records for an unknown memory", func() {
		recs, err := store.List(ctx, "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(BeEmpty())
	})

	It("rejects a nil record", func() {
		Expect(store.Append(ctx, nil)).To(MatchError(history.ErrNilRecord))
	})

	It("stamps records without a creation time", func() {
		Expect(store.Append(ctx, &history.Record{ID: "h1", MemoryID: "m1", Event: history.EventDelete})).To(Succeed())

		recs, err := store.List(ctx, "m1")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].CreatedAt).NotTo(BeZero())
	})
})
