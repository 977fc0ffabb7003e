package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/api/gateway"
	"github.com/Sakibyash/infinoz-bot1/pkg/client"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		c        *client.Client
		lastPath string
		lastBody map[string]any
		lastQry  string
		status   int
		reply    string
	)

	BeforeEach(func() {
		status = http.StatusOK
		reply = `{}`
		lastBody = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastPath = r.Method + " " + r.URL.Path
			lastQry = r.URL.RawQuery
			if data, _ := io.ReadAll(r.Body); len(data) > 0 {
				_ = json.Unmarshal(data, &lastBody)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		c = client.New(server.URL+"/", time.Second)
	})

	AfterEach(func() {
		server.Close()
	})

	It("reads the health status", func() {
		reply = `{"status":"ok","message":"Memory service is running."}`

		out, err := c.Health(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(lastPath).To(Equal("GET /"))
		Expect(out.Status).To(Equal("ok"))
	})

	It("posts the context request and returns the prompt", func() {
		reply = `{"system_prompt":"You are an intelligent AI Assistant."}`

		prompt, err := c.GetContext(context.Background(), "u1", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).To(Equal("You are an intelligent AI Assistant."))
		Expect(lastPath).To(Equal("POST /get-context"))
		Expect(lastBody).To(HaveKeyWithValue("user_id", "u1"))
		Expect(lastBody).To(HaveKeyWithValue("message", "hello"))
	})

	It("posts a conversation turn", func() {
		reply = `{"status":"memory added successfully"}`

		out, err := c.AddMemory(context.Background(), gateway.MemoryInput{
			UserID: "u1", UserMessage: "hi", AIResponse: "hello",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Status).To(Equal(gateway.StatusAdded))
		Expect(lastBody).To(HaveKeyWithValue("ai_response", "hello"))
	})

	It("lists memories with a limit", func() {
		reply = `{"count":1,"memories":[{"id":"m1","memory":"likes tea"}]}`

		entries, err := c.ListMemories(context.Background(), "u1", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Memory).To(Equal("likes tea"))
		Expect(lastQry).To(ContainSubstring("user_id=u1"))
		Expect(lastQry).To(ContainSubstring("limit=3"))
	})

	It("loads the history of one memory", func() {
		reply = `{"count":1,"history":[{"id":"h1","memory_id":"m1","event":"ADD"}]}`

		recs, err := c.MemoryHistory(context.Background(), "m1")
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(lastPath).To(Equal("GET /memories/m1/history"))
	})

	It("deletes a memory", func() {
		Expect(c.DeleteMemory(context.Background(), "m1")).To(Succeed())
		Expect(lastPath).To(Equal("DELETE /memories/m1"))
	})

	It("surfaces gateway errors with their message", func() {
		status = http.StatusUnprocessableEntity
		reply = `{"error":"user_id is required"}`

		_, err := c.GetContext(context.Background(), "", "hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("user_id is required"))
		Expect(client.IsStatus(err, http.StatusUnprocessableEntity)).To(BeTrue())
	})

	It("wraps transport failures", func() {
		server.Close()

		_, err := c.Health(context.Background())
		Expect(err).To(MatchError(ContainSubstring("calling gateway")))
		Expect(client.IsStatus(err, http.StatusOK)).To(BeFalse())
	})
})
