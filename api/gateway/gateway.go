// Package gateway provides the memory operations shared by the REST handlers
// and the MCP tools.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sakibyash/infinoz-bot1/api/prompt"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream"
	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
)

const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
	StatusAdded   = "memory added successfully"
	StatusDeleted = "memory deleted successfully"

	HealthyMessage   = "Memory service is running."
	UnhealthyMessage = "Memory service is running, but memory initialization failed. Check environment variables."
	NotConfigured    = "Memory service not configured."

	// DefaultTopK bounds context searches when no limit is configured.
	DefaultTopK = 5
)

var (
	// ErrSearchFailed wraps upstream failures while retrieving context.
	ErrSearchFailed = errors.New("failed to search memories")

	// ErrAddFailed wraps upstream failures while storing a turn.
	ErrAddFailed = errors.New("failed to add memory")
)

// Recorder receives operational measurements. A nil Recorder is allowed.
type Recorder interface {
	ObserveSearchResults(n int)
	UpstreamFailure(op string)
}

// Service is the memory gateway.
type Service struct {
	Handle *memory.Handle

	// TopK bounds context searches. Zero or less uses DefaultTopK.
	TopK int

	Publisher eventstream.Publisher
	Recorder  Recorder
	Logger    *slog.Logger
}

// HealthOutput is the health check body.
type HealthOutput struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ContextInput is the body of a context request.
type ContextInput struct {
	UserID  string `json:"user_id" jsonschema:"the user whose memories are searched"`
	Message string `json:"message" jsonschema:"the user's latest message, used as the search query"`
}

// ContextOutput carries the rendered system prompt.
type ContextOutput struct {
	SystemPrompt string `json:"system_prompt"`
}

// MemoryInput is one conversation turn to remember.
type MemoryInput struct {
	UserID      string `json:"user_id" jsonschema:"the user the turn belongs to"`
	UserMessage string `json:"user_message" jsonschema:"what the user said"`
	AIResponse  string `json:"ai_response" jsonschema:"what the assistant answered"`
}

// AddOutput reports the outcome of storing a turn.
type AddOutput struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	// Results are the memory changes made by the store. They are not part of
	// the HTTP body.
	Results []memory.Event `json:"-"`
}

// Transcript labels a conversation turn the way it is stored.
func Transcript(userMessage, aiResponse string) string {
	return "User: " + userMessage + "\nAI: " + aiResponse
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Service) topK() int {
	if s.TopK <= 0 {
		return DefaultTopK
	}
	return s.TopK
}

// Health reports whether a memory client is available.
func (s *Service) Health() HealthOutput {
	if s.Handle.Ready() {
		return HealthOutput{Status: StatusOK, Message: HealthyMessage}
	}
	return HealthOutput{Status: StatusWarning, Message: UnhealthyMessage}
}

// GetContext searches the user's memories for in.Message and renders a
// system prompt from them. Without a memory client the fixed error prompt is
// returned and the store is never contacted.
func (s *Service) GetContext(ctx context.Context, in ContextInput) (*ContextOutput, error) {
	if in.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	client, err := s.Handle.Client()
	if err != nil {
		s.logger().Warn("context requested without a memory client", "user_id", in.UserID)
		return &ContextOutput{SystemPrompt: prompt.NotConfigured}, nil
	}

	entries, err := client.Search(ctx, in.Message, memory.SearchOptions{
		UserID: in.UserID,
		Limit:  s.topK(),
	})
	if err != nil {
		s.failure("search")
		s.logger().Error("memory search failed", "user_id", in.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	if s.Recorder != nil {
		s.Recorder.ObserveSearchResults(len(entries))
	}

	s.logger().Debug("retrieved memories", "user_id", in.UserID, "count", len(entries))

	return &ContextOutput{
		SystemPrompt: prompt.Render(in.Message, memory.Texts(entries)),
	}, nil
}

// AddMemory stores the labeled transcript of a turn for the user and
// publishes a memory-added event. Publish failures are logged only.
func (s *Service) AddMemory(ctx context.Context, in MemoryInput) (*AddOutput, error) {
	if in.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	client, err := s.Handle.Client()
	if err != nil {
		s.logger().Warn("memory add requested without a memory client", "user_id", in.UserID)
		return &AddOutput{Status: StatusError, Message: NotConfigured}, nil
	}

	transcript := Transcript(in.UserMessage, in.AIResponse)

	results, err := client.Add(ctx, transcript, memory.AddOptions{UserID: in.UserID})
	if err != nil {
		s.failure("add")
		s.logger().Error("memory add failed", "user_id", in.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAddFailed, err)
	}

	s.logger().Debug("stored conversation turn", "user_id", in.UserID, "events", len(results))

	if s.Publisher != nil {
		event := eventstream.NewMemoryAddedEvent(in.UserID, transcript, results)
		if err := s.Publisher.PublishMemoryAdded(ctx, event); err != nil {
			s.failure("publish")
			s.logger().Warn("failed to publish memory event",
				"user_id", in.UserID,
				"event_id", event.EventID,
				"error", err,
			)
		}
	}

	return &AddOutput{Status: StatusAdded, Results: results}, nil
}

// ListMemories returns up to limit stored memories for userID.
func (s *Service) ListMemories(ctx context.Context, userID string, limit int) ([]memory.Entry, error) {
	if userID == "" {
		return nil, memory.ErrEmptyUserID
	}

	client, err := s.Handle.Client()
	if err != nil {
		return nil, err
	}

	entries, err := client.GetAll(ctx, memory.SearchOptions{UserID: userID, Limit: limit})
	if err != nil {
		s.failure("list")
		return nil, err
	}
	if entries == nil {
		entries = []memory.Entry{}
	}
	return entries, nil
}

// MemoryHistory returns the change log of a memory.
func (s *Service) MemoryHistory(ctx context.Context, memoryID string) ([]history.Record, error) {
	client, err := s.Handle.Client()
	if err != nil {
		return nil, err
	}

	recs, err := client.History(ctx, memoryID)
	if err != nil {
		s.failure("history")
		return nil, err
	}
	if recs == nil {
		recs = []history.Record{}
	}
	return recs, nil
}

// DeleteMemory removes a memory.
func (s *Service) DeleteMemory(ctx context.Context, memoryID string) error {
	client, err := s.Handle.Client()
	if err != nil {
		return err
	}

	if err := client.Delete(ctx, memoryID); err != nil {
		if !errors.Is(err, memory.ErrNotFound) {
			s.failure("delete")
		}
		return err
	}
	return nil
}

func (s *Service) failure(op string) {
	if s.Recorder != nil {
		s.Recorder.UpstreamFailure(op)
	}
}
