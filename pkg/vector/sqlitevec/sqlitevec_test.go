package sqlitevec_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/logger"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	newDriver := func() *sqlitevec.Driver {
		driver, err := sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Dimensions: 4,
		}, log)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)
		return driver
	}

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).To(HaveOccurred())
		})

		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("Add", func() {
		var driver *sqlitevec.Driver
		ctx := context.Background()

		BeforeEach(func() {
			driver = newDriver()
		})

		It("should do nothing when given empty docs", func() {
			Expect(driver.Add(ctx, []vector.Document{})).To(Succeed())
		})

		It("should store the memory payload", func() {
			Expect(driver.Add(ctx, []vector.Document{{
				ID:        "mem-1",
				UserID:    "alice",
				Content:   "Likes hiking",
				Hash:      "h1",
				Embedding: []float32{0.1, 0.2, 0.3, 0.4},
				Metadata:  map[string]any{"source": "n8n"},
			}})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"mem-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].UserID).To(Equal("alice"))
			Expect(docs[0].Content).To(Equal("Likes hiking"))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("source", "n8n"))
			Expect(docs[0].CreatedAt).NotTo(BeZero())
		})

		It("should update an existing document in place", func() {
			Expect(driver.Add(ctx, []vector.Document{{ID: "mem-1", UserID: "alice", Content: "old", Embedding: []float32{1, 0, 0, 0}}})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{{ID: "mem-1", UserID: "alice", Content: "new", Embedding: []float32{0, 1, 0, 0}}})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"mem-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(Equal("new"))
			Expect(docs[0].Embedding).To(Equal([]float32{0, 1, 0, 0}))
		})

		It("should reject embeddings of the wrong size", func() {
			err := driver.Add(ctx, []vector.Document{{ID: "mem-1", Embedding: []float32{1, 2}}})
			Expect(err).To(MatchError(vector.ErrDimensions))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.Driver
		ctx := context.Background()

		BeforeEach(func() {
			driver = newDriver()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "a1", UserID: "alice", Content: "x axis", Embedding: []float32{1, 0, 0, 0}},
				{ID: "a2", UserID: "alice", Content: "y axis", Embedding: []float32{0, 1, 0, 0}},
				{ID: "a3", UserID: "alice", Content: "near x", Embedding: []float32{0.9, 0.1, 0, 0}},
				{ID: "b1", UserID: "bob", Content: "bob x", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())
		})

		It("should return the closest documents for the user", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 2, vector.Filter{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("a1"))
			Expect(results[0].Content).To(Equal("x axis"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.001))
			Expect(results[1].ID).To(Equal("a3"))
		})

		It("should never return another user's documents", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10, vector.Filter{UserID: "bob"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("b1"))
		})

		It("should return similarity scores in descending order", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 0, vector.Filter{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})
	})

	Describe("List", func() {
		It("should list a user's documents newest first", func() {
			driver := newDriver()
			ctx := context.Background()
			Expect(driver.Add(ctx, []vector.Document{{ID: "a1", UserID: "alice", Content: "first", Embedding: []float32{1, 0, 0, 0}}})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{{ID: "a2", UserID: "alice", Content: "second", Embedding: []float32{0, 1, 0, 0}}})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{{ID: "b1", UserID: "bob", Content: "other", Embedding: []float32{0, 0, 1, 0}}})).To(Succeed())

			docs, err := driver.List(ctx, vector.Filter{UserID: "alice"}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].ID).To(Equal("a2"))

			limited, err := driver.List(ctx, vector.Filter{UserID: "alice"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(HaveLen(1))
		})
	})

	Describe("Delete", func() {
		It("should remove documents from query results", func() {
			driver := newDriver()
			ctx := context.Background()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "a1", UserID: "alice", Embedding: []float32{1, 0, 0, 0}},
				{ID: "a2", UserID: "alice", Embedding: []float32{0, 1, 0, 0}},
			})).To(Succeed())

			Expect(driver.Delete(ctx, []string{"a1", "missing"})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10, vector.Filter{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("a2"))

			docs, err := driver.Get(ctx, []string{"a1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})
	})
})
