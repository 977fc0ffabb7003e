// Package llm provides the single-prompt JSON completion callers used by the
// local memory engine for fact extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	defaultTimeout   = 60 * time.Second
	anthropicVersion = "2023-06-01"
	anthropicMaxToks = 2048
)

// ErrMissingAPIKey is returned when a hosted provider has no resolvable key.
var ErrMissingAPIKey = errors.New("missing LLM API key")

// Caller sends a single prompt and returns the model's text reply. Callers
// ask the model for a JSON object.
type Caller func(ctx context.Context, prompt string) (string, error)

// Config holds configuration for creating a Caller.
type Config struct {
	Provider    string  // "openai", "anthropic", or "ollama"
	Model       string  // e.g. "gpt-4o-mini", "claude-3-5-haiku-latest"
	Temperature float64 // sampling temperature
	APIKey      string  // explicit API key (highest priority)
	BaseURL     string  // override base URL

	// Getenv resolves fallback credentials. Defaults to os.Getenv.
	Getenv func(string) string

	// Timeout bounds a single call. Defaults to 60s.
	Timeout time.Duration
}

// NewCaller creates a Caller based on the provided configuration.
// Resolution order for API key:
//  1. Explicit APIKey in config
//  2. Environment variables (OPENAI_API_KEY / ANTHROPIC_API_KEY)
func NewCaller(cfg Config) (Caller, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderOpenAI
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	apiKey := ResolveAPIKey(provider, cfg.APIKey, cfg.Getenv)
	if apiKey == "" && provider != ProviderOllama {
		return nil, fmt.Errorf("%w for %s: set llm.api_key or %s", ErrMissingAPIKey, provider, EnvKeyFor(provider))
	}

	model := cfg.Model
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	switch provider {
	case ProviderOpenAI:
		if model == "" {
			model = "gpt-4o-mini"
		}
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		baseURL = strings.TrimSuffix(baseURL, "/v1")
		client := resty.New().SetBaseURL(baseURL).SetAuthToken(apiKey).SetTimeout(timeout)
		return newOpenAICaller(client, model, cfg.Temperature), nil

	case ProviderAnthropic:
		if model == "" {
			model = "claude-3-5-haiku-latest"
		}
		if baseURL == "" {
			baseURL = "https://api.anthropic.com"
		}
		client := resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("x-api-key", apiKey).
			SetHeader("anthropic-version", anthropicVersion)
		return newAnthropicCaller(client, model, cfg.Temperature), nil

	case ProviderOllama:
		if model == "" {
			model = "llama3.2"
		}
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		client := resty.New().SetBaseURL(baseURL).SetTimeout(timeout)
		return newOllamaCaller(client, model, cfg.Temperature), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// EnvKeyFor returns the environment variable consulted for provider's key.
func EnvKeyFor(provider string) string {
	if strings.ToLower(provider) == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// ResolveAPIKey returns explicit if set, otherwise the provider's environment
// variable through getenv. Ollama needs no key.
func ResolveAPIKey(provider, explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if strings.ToLower(provider) == ProviderOllama {
		return ""
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv(EnvKeyFor(provider))
}

// --- OpenAI caller ---

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat *openAIRespFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newOpenAICaller(client *resty.Client, model string, temperature float64) Caller {
	return func(ctx context.Context, prompt string) (string, error) {
		var result openAIResponse

		resp, err := client.R().
			SetContext(ctx).
			SetBody(openAIRequest{
				Model:          model,
				Messages:       []chatMessage{{Role: "user", Content: prompt}},
				Temperature:    temperature,
				ResponseFormat: &openAIRespFormat{Type: "json_object"},
			}).
			SetResult(&result).
			SetError(&result).
			Post("/v1/chat/completions")
		if err != nil {
			return "", fmt.Errorf("openai request: %w", err)
		}

		if resp.StatusCode() != http.StatusOK {
			return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode(), resp.String())
		}

		if result.Error != nil {
			return "", fmt.Errorf("openai error: %s", result.Error.Message)
		}

		if len(result.Choices) == 0 {
			return "", errors.New("openai returned no choices")
		}

		return result.Choices[0].Message.Content, nil
	}
}

// --- Anthropic caller ---

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newAnthropicCaller(client *resty.Client, model string, temperature float64) Caller {
	return func(ctx context.Context, prompt string) (string, error) {
		var result anthropicResponse

		resp, err := client.R().
			SetContext(ctx).
			SetBody(anthropicRequest{
				Model:       model,
				MaxTokens:   anthropicMaxToks,
				Temperature: temperature,
				Messages: []chatMessage{
					{Role: "user", Content: prompt + "\n\nReturn ONLY valid JSON, no markdown or extra text."},
				},
			}).
			SetResult(&result).
			SetError(&result).
			Post("/v1/messages")
		if err != nil {
			return "", fmt.Errorf("anthropic request: %w", err)
		}

		if resp.StatusCode() != http.StatusOK {
			return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode(), resp.String())
		}

		if result.Error != nil {
			return "", fmt.Errorf("anthropic error: %s", result.Error.Message)
		}

		for _, block := range result.Content {
			if block.Type == "text" || block.Type == "" {
				return block.Text, nil
			}
		}

		return "", errors.New("anthropic returned no content")
	}
}

// --- Ollama caller ---

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func newOllamaCaller(client *resty.Client, model string, temperature float64) Caller {
	return func(ctx context.Context, prompt string) (string, error) {
		var result ollamaChatResponse

		resp, err := client.R().
			SetContext(ctx).
			SetBody(ollamaChatRequest{
				Model:    model,
				Messages: []chatMessage{{Role: "user", Content: prompt}},
				Stream:   false,
				Format:   "json",
				Options:  map[string]any{"temperature": temperature},
			}).
			SetResult(&result).
			Post("/api/chat")
		if err != nil {
			return "", fmt.Errorf("ollama request: %w", err)
		}

		if resp.StatusCode() != http.StatusOK {
			return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode(), resp.String())
		}

		return result.Message.Content, nil
	}
}
