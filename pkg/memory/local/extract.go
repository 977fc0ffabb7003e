package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
)

// Fact is one unit of long-term memory proposed by the extractor.
type Fact struct {
	Content string        `json:"content"`
	Type    history.Event `json:"type"`
}

type factsResponse struct {
	Facts []Fact `json:"facts"`
}

const extractionPrompt = `You are a personal memory organizer. Read the conversation below and extract
the durable facts worth remembering about the user: preferences, personal details,
plans, relationships, and anything they asked to be remembered.

Today's date is %s.

For each fact choose a type:
- "ADD": a new fact about the user.
- "UPDATE": a fact that corrects or refines something the user said before.
- "DELETE": the user asked to forget something or it is no longer true.

Ignore greetings, small talk, and anything the assistant said that is not about the user.
Write each fact as a short standalone sentence in the user's language.

Return JSON in exactly this shape:
{"facts": [{"content": "...", "type": "ADD"}]}

If there is nothing worth remembering, return {"facts": []}.

Conversation:
%s`

func (c *Client) extractFacts(ctx context.Context, text string) ([]Fact, error) {
	if c.llm == nil || !c.infer {
		return []Fact{{Content: text, Type: history.EventAdd}}, nil
	}

	prompt := fmt.Sprintf(extractionPrompt, c.now().Format(time.DateOnly), text)

	raw, err := c.llm(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extracting facts: %w", err)
	}

	return parseFacts(raw)
}

// parseFacts decodes the extractor reply. Markdown code fences around the
// JSON are tolerated; blank facts are dropped and unknown types become ADD.
func parseFacts(raw string) ([]Fact, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var resp factsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("parsing extracted facts: %w", err)
	}

	facts := make([]Fact, 0, len(resp.Facts))
	for _, f := range resp.Facts {
		f.Content = strings.TrimSpace(f.Content)
		if f.Content == "" {
			continue
		}

		f.Type = history.Event(strings.ToUpper(string(f.Type)))
		switch f.Type {
		case history.EventAdd, history.EventUpdate, history.EventDelete:
		default:
			f.Type = history.EventAdd
		}

		facts = append(facts, f)
	}

	return facts, nil
}
