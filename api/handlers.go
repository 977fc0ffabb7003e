package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Sakibyash/infinoz-bot1/api/gateway"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatMessage is the body of POST /get-context.
type ChatMessage struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// AIMessage is the body of POST /add-memory.
type AIMessage struct {
	UserID      string `json:"user_id"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
}

// handleHealth reports whether the memory client was constructed.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.gateway.Health())
}

// handleGetContext searches the user's memories and returns a system prompt.
func (s *Server) handleGetContext(c *fiber.Ctx) error {
	var req ChatMessage
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: memory.ErrEmptyUserID.Error()})
	}

	out, err := s.gateway.GetContext(c.UserContext(), gateway.ContextInput{
		UserID:  req.UserID,
		Message: req.Message,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: gateway.ErrSearchFailed.Error()})
	}

	return c.JSON(out)
}

// handleAddMemory stores one conversation turn for the user.
func (s *Server) handleAddMemory(c *fiber.Ctx) error {
	var req AIMessage
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: memory.ErrEmptyUserID.Error()})
	}

	out, err := s.gateway.AddMemory(c.UserContext(), gateway.MemoryInput{
		UserID:      req.UserID,
		UserMessage: req.UserMessage,
		AIResponse:  req.AIResponse,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: gateway.ErrAddFailed.Error()})
	}

	return c.JSON(out)
}

// handleListMemories handles GET /memories.
// Query parameters:
//   - user_id (required)
//   - limit (optional): maximum number of memories
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user_id query parameter is required"})
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	entries, err := s.gateway.ListMemories(c.UserContext(), userID, limit)
	if err != nil {
		return s.memoryError(c, err, "failed to list memories")
	}

	return c.JSON(map[string]any{
		"count":    len(entries),
		"memories": entries,
	})
}

// handleMemoryHistory returns the change log of one memory.
func (s *Server) handleMemoryHistory(c *fiber.Ctx) error {
	recs, err := s.gateway.MemoryHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.memoryError(c, err, "failed to load memory history")
	}

	return c.JSON(map[string]any{
		"count":   len(recs),
		"history": recs,
	})
}

// handleDeleteMemory removes one memory.
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	if err := s.gateway.DeleteMemory(c.UserContext(), c.Params("id")); err != nil {
		return s.memoryError(c, err, "failed to delete memory")
	}

	return c.JSON(fiber.Map{"status": gateway.StatusDeleted})
}

func (s *Server) memoryError(c *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, memory.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: gateway.NotConfigured})
	case errors.Is(err, memory.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
	default:
		s.logger.Error(msg, "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
	}
}
