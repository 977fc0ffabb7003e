package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sakibyash/infinoz-bot1/api/gateway"
)

var (
	getContextToolName    = "get_context"
	getContextDescription = "Retrieve a system prompt built from the user's long-term memories that are relevant to their latest message. Call this before answering the user."

	addMemoryToolName    = "add_memory"
	addMemoryDescription = "Remember a conversation turn for the user. Call this after answering, with the user's message and your response."
)

// handleGetContext processes a get_context tool call.
func (s *Server) handleGetContext(ctx context.Context, _ *mcp.CallToolRequest, input gateway.ContextInput) (*mcp.CallToolResult, gateway.ContextOutput, error) {
	s.config.Logger.Debug("MCP get_context request", "user_id", input.UserID)

	out, err := s.config.Gateway.GetContext(ctx, input)
	if err != nil {
		return toolError(err), gateway.ContextOutput{}, nil
	}

	return textResult(out), *out, nil
}

// handleAddMemory processes an add_memory tool call.
func (s *Server) handleAddMemory(ctx context.Context, _ *mcp.CallToolRequest, input gateway.MemoryInput) (*mcp.CallToolResult, gateway.AddOutput, error) {
	s.config.Logger.Debug("MCP add_memory request", "user_id", input.UserID)

	out, err := s.config.Gateway.AddMemory(ctx, input)
	if err != nil {
		return toolError(err), gateway.AddOutput{}, nil
	}

	return textResult(out), *out, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
	}
}

// textResult serializes the structured output into a TextContent block for
// clients that do not read structured content.
func textResult(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("failed to serialize result: %w", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}
