package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory/platform"
)

var _ = Describe("Platform client", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		handler http.HandlerFunc
		client  *platform.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		client, err = platform.New(platform.Config{
			Host:      server.URL,
			APIKey:    "m0-test",
			OrgID:     "org-1",
			RetryWait: time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	respond := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}

	It("requires an API key", func() {
		_, err := platform.New(platform.Config{})
		Expect(err).To(MatchError(platform.ErrMissingAPIKey))
	})

	Describe("Add", func() {
		It("posts the text as a user message scoped to the user", func() {
			var got map[string]any
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/v1/memories/"))
				Expect(r.Header.Get("Authorization")).To(Equal("Token m0-test"))
				Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
				respond(w, http.StatusOK, `[{"id":"m1","event":"ADD","data":{"memory":"Likes tea"}}]`)
			}

			events, err := client.Add(ctx, "User: hi\nAI: hello", memory.AddOptions{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(Equal([]memory.Event{{ID: "m1", Memory: "Likes tea", Event: history.EventAdd}}))

			Expect(got["user_id"]).To(Equal("alice"))
			Expect(got["org_id"]).To(Equal("org-1"))
			Expect(got["messages"]).To(Equal([]any{
				map[string]any{"role": "user", "content": "User: hi\nAI: hello"},
			}))
		})

		It("accepts a results envelope", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				respond(w, http.StatusOK, `{"results":[{"id":"m1","event":"update","memory":"Lives in Paris","previous_memory":"Lives in Berlin"}]}`)
			}

			events, err := client.Add(ctx, "x", memory.AddOptions{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(events[0].Event).To(Equal(history.EventUpdate))
			Expect(events[0].PreviousMemory).To(Equal("Lives in Berlin"))
		})

		It("does not resend an add after a server error", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				respond(w, http.StatusBadGateway, `{"detail":"upstream"}`)
			}

			_, err := client.Add(ctx, "User: hi\nAI: hello", memory.AddOptions{UserID: "alice"})
			Expect(err).To(MatchError(ContainSubstring("status 502")))
			Expect(calls.Load()).To(BeNumerically("==", 1))
		})

		It("retries a rate-limited add", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) == 1 {
					respond(w, http.StatusTooManyRequests, `{"detail":"slow down"}`)
					return
				}
				respond(w, http.StatusOK, `[{"id":"m1","event":"ADD","data":{"memory":"Likes tea"}}]`)
			}

			events, err := client.Add(ctx, "x", memory.AddOptions{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(calls.Load()).To(BeNumerically("==", 2))
		})

		It("does not resend an add after a timeout", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				time.Sleep(200 * time.Millisecond)
				respond(w, http.StatusOK, `[]`)
			}

			slow, err := platform.New(platform.Config{
				Host:      server.URL,
				APIKey:    "m0-test",
				Timeout:   20 * time.Millisecond,
				RetryWait: time.Millisecond,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = slow.Add(ctx, "x", memory.AddOptions{UserID: "alice"})
			Expect(err).To(HaveOccurred())
			Expect(calls.Load()).To(BeNumerically("==", 1))
		})

		It("rejects an empty user id without calling the API", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				respond(w, http.StatusOK, `[]`)
			}

			_, err := client.Add(ctx, "x", memory.AddOptions{})
			Expect(err).To(MatchError(memory.ErrEmptyUserID))
			Expect(calls.Load()).To(BeZero())
		})
	})

	Describe("Search", func() {
		It("returns entries in the order the API returned them", func() {
			var got map[string]any
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/memories/search/"))
				Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
				respond(w, http.StatusOK, `[
					{"id":"m2","memory":"Lives in Berlin","score":0.92,"created_at":"2024-07-20T01:33:08.920929-07:00"},
					{"id":"m1","memory":"Likes tea","score":0.40}
				]`)
			}

			entries, err := client.Search(ctx, "where do I live", memory.SearchOptions{UserID: "alice", Limit: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(memory.Texts(entries)).To(Equal([]string{"Lives in Berlin", "Likes tea"}))
			Expect(entries[0].Score).To(BeNumerically("~", 0.92, 1e-6))
			Expect(entries[0].CreatedAt.IsZero()).To(BeFalse())

			Expect(got["query"]).To(Equal("where do I live"))
			Expect(got["user_id"]).To(Equal("alice"))
			Expect(got["limit"]).To(BeNumerically("==", 5))
		})

		It("retries server errors and then succeeds", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) < 3 {
					respond(w, http.StatusServiceUnavailable, `{"detail":"busy"}`)
					return
				}
				respond(w, http.StatusOK, `[]`)
			}

			entries, err := client.Search(ctx, "q", memory.SearchOptions{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
			Expect(calls.Load()).To(BeNumerically("==", 3))
		})

		It("gives up after the retry budget", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				respond(w, http.StatusTooManyRequests, `{"detail":"slow down"}`)
			}

			_, err := client.Search(ctx, "q", memory.SearchOptions{UserID: "alice"})
			Expect(err).To(MatchError(ContainSubstring("status 429")))
			Expect(calls.Load()).To(BeNumerically("==", 3))
		})

		It("does not retry client errors", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				respond(w, http.StatusUnauthorized, `{"detail":"bad token"}`)
			}

			_, err := client.Search(ctx, "q", memory.SearchOptions{UserID: "alice"})
			Expect(err).To(MatchError(ContainSubstring("status 401")))
			Expect(calls.Load()).To(BeNumerically("==", 1))
		})
	})

	Describe("GetAll", func() {
		It("lists by user id", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Query().Get("user_id")).To(Equal("alice"))
				Expect(r.URL.Query().Get("org_id")).To(Equal("org-1"))
				respond(w, http.StatusOK, `[{"id":"m1","memory":"Likes tea"},{"id":"m2","memory":"Lives in Berlin"}]`)
			}

			entries, err := client.GetAll(ctx, memory.SearchOptions{UserID: "alice", Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(memory.Texts(entries)).To(Equal([]string{"Likes tea"}))
		})
	})

	Describe("History", func() {
		It("maps history records", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/memories/m1/history/"))
				respond(w, http.StatusOK, `[{"id":"h1","memory_id":"m1","old_memory":null,"new_memory":"Likes tea","event":"ADD","created_at":"2024-07-20T08:33:08Z"}]`)
			}

			recs, err := client.History(ctx, "m1")
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Event).To(Equal(history.EventAdd))
			Expect(recs[0].NewMemory).To(Equal("Likes tea"))
			Expect(recs[0].CreatedAt).To(Equal(time.Date(2024, 7, 20, 8, 33, 8, 0, time.UTC)))
		})
	})

	Describe("Delete", func() {
		It("maps 404 to ErrNotFound", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodDelete))
				respond(w, http.StatusNotFound, `{"detail":"not found"}`)
			}

			Expect(client.Delete(ctx, "missing")).To(MatchError(memory.ErrNotFound))
		})

		It("succeeds on 204", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/memories/m1/"))
				w.WriteHeader(http.StatusNoContent)
			}

			Expect(client.Delete(ctx, "m1")).To(Succeed())
		})
	})
})
