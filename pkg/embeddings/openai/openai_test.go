package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/embeddings/openai"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

var _ = Describe("Embedder", func() {
	It("requires an API key", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("sends the bearer token, model and dimensions", func() {
		var (
			auth string
			body map[string]any
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.25]}]}`))
		}))
		defer server.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:    server.URL + "/v1",
			APIKey:     "sk-test",
			Dimensions: 2,
		})
		Expect(err).NotTo(HaveOccurred())

		emb, err := e.Embed(context.Background(), "I like tea")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(Equal([]float32{0.5, 0.25}))
		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(body["model"]).To(Equal(openai.DefaultEmbeddingModel))
		Expect(body["input"]).To(Equal("I like tea"))
		Expect(body["dimensions"]).To(BeNumerically("==", 2))
	})

	It("wraps API errors in ErrEmbedding", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		e, _ := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL, APIKey: "bad"})
		_, err := e.Embed(context.Background(), "x")
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("status 401"))
	})
})
