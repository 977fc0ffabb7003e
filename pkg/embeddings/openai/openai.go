// Package openai implements pkg/embeddings' Embedder client for the OpenAI
// embeddings API and compatible servers.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Sakibyash/infinoz-bot1/pkg/embeddings"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"
)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL defaults to DefaultBaseURL. A trailing "/v1" is tolerated.
	BaseURL string

	// APIKey is sent as a bearer token. Required.
	APIKey string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions asks text-embedding-3 models for shortened vectors. Zero
	// uses the model's native size.
	Dimensions uint
}

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	model      string
	dimensions uint
	client     *resty.Client
}

type embedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions uint   `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates a new OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder requires an API key")
	}

	baseURL := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/v1")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		model:      model,
		dimensions: cfg.Dimensions,
		client: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(cfg.APIKey).
			SetTimeout(60 * time.Second),
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedResp embedResponse

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: e.model, Input: text, Dimensions: e.dimensions}).
		SetResult(&embedResp).
		Post("/v1/embeddings")
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", vector.ErrEmbedding, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: openai returned status %d: %s", vector.ErrEmbedding, resp.StatusCode(), resp.String())
	}

	if len(embedResp.Data) == 0 || len(embedResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	return embedResp.Data[0].Embedding, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
