package qdrant

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/qdrant/go-client/qdrant"

	"github.com/Sakibyash/infinoz-bot1/pkg/logger"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

var _ = Describe("payload mapping", func() {
	It("round-trips a document through qdrant values", func() {
		created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		id := uuid.NewString()
		doc := vector.Document{
			ID:        id,
			UserID:    "alice",
			Content:   "Prefers window seats",
			Hash:      "abc",
			CreatedAt: created,
			Metadata:  map[string]any{"source": "n8n", "turn": int64(3), "tags": []any{"travel"}},
		}

		payload, err := toPayload(doc)
		Expect(err).NotTo(HaveOccurred())

		out := fromPayload(qdrant.NewID(id), payload)
		Expect(out.ID).To(Equal(id))
		Expect(out.UserID).To(Equal("alice"))
		Expect(out.Content).To(Equal("Prefers window seats"))
		Expect(out.Hash).To(Equal("abc"))
		Expect(out.CreatedAt.Equal(created)).To(BeTrue())
		Expect(out.UpdatedAt.Equal(created)).To(BeTrue())
		Expect(out.Metadata).To(HaveKeyWithValue("source", "n8n"))
		Expect(out.Metadata).To(HaveKeyWithValue("turn", int64(3)))
		Expect(out.Metadata).To(HaveKeyWithValue("tags", []any{"travel"}))
	})

	It("builds no filter for an unscoped query", func() {
		Expect(toFilter(vector.Filter{})).To(BeNil())
		Expect(toFilter(vector.Filter{UserID: "bob"}).GetMust()).To(HaveLen(1))
	})

	It("splits targets with and without a port", func() {
		host, port, err := splitTarget("qdrant.local")
		Expect(err).NotTo(HaveOccurred())
		Expect(host).To(Equal("qdrant.local"))
		Expect(port).To(Equal(6334))

		host, port, err = splitTarget("localhost:7000")
		Expect(err).NotTo(HaveOccurred())
		Expect(host).To(Equal("localhost"))
		Expect(port).To(Equal(7000))

		_, _, err = splitTarget("localhost:grpc")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Driver against a live Qdrant", func() {
	var (
		driver *Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		target := os.Getenv("MEMHANDLER_TEST_QDRANT_TARGET")
		if target == "" {
			Skip("MEMHANDLER_TEST_QDRANT_TARGET not set, skipping Qdrant tests")
		}

		ctx = context.Background()
		var err error
		driver, err = NewDriver(ctx, Config{
			Target:         target,
			CollectionName: "memhandler_test_" + uuid.NewString()[:8],
			Dimensions:     3,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = driver.client.DeleteCollection(context.Background(), driver.collection)
			driver.Close()
		})
	})

	It("scopes queries to a user", func() {
		a, b := uuid.NewString(), uuid.NewString()
		Expect(driver.Add(ctx, []vector.Document{
			{ID: a, UserID: "alice", Content: "alice fact", Embedding: []float32{1, 0, 0}},
			{ID: b, UserID: "bob", Content: "bob fact", Embedding: []float32{1, 0, 0}},
		})).To(Succeed())

		results, err := driver.Query(ctx, []float32{1, 0, 0}, 5, vector.Filter{UserID: "alice"})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal(a))
		Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.001))

		Expect(driver.Delete(ctx, []string{a})).To(Succeed())
		docs, err := driver.List(ctx, vector.Filter{UserID: "alice"}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(BeEmpty())
	})
})
