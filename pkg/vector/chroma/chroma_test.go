package chroma_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/logger"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector/chroma"
)

// fakeChroma records the requests the driver sends and serves canned responses.
type fakeChroma struct {
	mu       sync.Mutex
	requests map[string]map[string]any
	response map[string]any
}

func (f *fakeChroma) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "memhandler"})
			return
		}

		op := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.requests[op] = body
		resp := f.response[op]
		f.mu.Unlock()

		if resp == nil {
			resp = map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			// Each attempt issues a GET for the collection and a POST to
			// create it. Fail the first two attempts.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempt := attempts.Add(1)
				if attempt <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{
					"id":   "test-collection-id",
					"name": "memhandler",
				})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})
	})

	Describe("operations", func() {
		var (
			fake   *fakeChroma
			server *httptest.Server
			driver *chroma.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			fake = &fakeChroma{requests: map[string]map[string]any{}, response: map[string]any{}}
			server = httptest.NewServer(fake.handler())
			DeferCleanup(server.Close)

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		It("upserts documents with the user in metadata", func() {
			Expect(driver.Add(ctx, []vector.Document{{
				ID: "m1", UserID: "alice", Content: "Likes tea", Hash: "h1",
				Embedding: []float32{1, 0},
				Metadata:  map[string]any{"source": "n8n"},
			}})).To(Succeed())

			req := fake.requests["upsert"]
			Expect(req["ids"]).To(Equal([]any{"m1"}))
			Expect(req["documents"]).To(Equal([]any{"Likes tea"}))
			meta := req["metadatas"].([]any)[0].(map[string]any)
			Expect(meta["user_id"]).To(Equal("alice"))
			Expect(meta["hash"]).To(Equal("h1"))
			Expect(meta["metadata"]).To(Equal(`{"source":"n8n"}`))
		})

		It("queries with a user filter and converts distance to similarity", func() {
			fake.response["query"] = map[string]any{
				"ids":       [][]string{{"m1", "m2"}},
				"distances": [][]float32{{0.1, 0.5}},
				"documents": [][]string{{"Likes tea", "Lives in Dhaka"}},
				"metadatas": [][]map[string]any{{{"user_id": "alice"}, {"user_id": "alice"}}},
			}

			results, err := driver.Query(ctx, []float32{1, 0}, 2, vector.Filter{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Content).To(Equal("Likes tea"))
			Expect(results[0].UserID).To(Equal("alice"))
			Expect(results[0].Score).To(BeNumerically("~", 0.9, 0.0001))

			req := fake.requests["query"]
			Expect(req["where"]).To(Equal(map[string]any{"user_id": "alice"}))
			Expect(req["n_results"]).To(BeNumerically("==", 2))
		})

		It("lists a user's documents newest first", func() {
			fake.response["get"] = map[string]any{
				"ids":       []string{"old", "new"},
				"documents": []string{"first", "second"},
				"metadatas": []map[string]any{
					{"user_id": "alice", "created_at": "2025-01-01T00:00:00Z"},
					{"user_id": "alice", "created_at": "2025-02-01T00:00:00Z"},
				},
			}

			docs, err := driver.List(ctx, vector.Filter{UserID: "alice"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("new"))
		})

		It("deletes by id", func() {
			Expect(driver.Delete(ctx, []string{"m1"})).To(Succeed())
			Expect(fake.requests["delete"]["ids"]).To(Equal([]any{"m1"}))
		})
	})

	It("should implement vector.Driver interface", func() {
		var _ vector.Driver = (*chroma.Driver)(nil)
	})
})
