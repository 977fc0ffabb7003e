package postgres_test

import (
	"context"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/history/postgres"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("MEMHANDLER_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("MEMHANDLER_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Store", func() {
	var (
		store *postgres.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		store, err = postgres.NewStore(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	It("appends and lists records", func() {
		memoryID := uuid.NewString()
		Expect(store.Append(ctx, &history.Record{ID: uuid.NewString(), MemoryID: memoryID, UserID: "alice", NewMemory: "Likes tea", Event: history.EventAdd})).To(Succeed())

		recs, err := store.List(ctx, memoryID)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].NewMemory).To(Equal("Likes tea"))
		Expect(recs[0].Event).To(Equal(history.EventAdd))
	})
})
