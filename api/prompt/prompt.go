// Package prompt renders the system prompt handed back to the workflow
// before the assistant answers.
package prompt

import "strings"

const (
	// NotConfigured is returned in place of a prompt when no memory client exists.
	NotConfigured = "Error: Memory service not configured."

	// NoMemories replaces the memory block when a search finds nothing.
	NoMemories = "No specific past memories were found for this user."

	preamble      = "You are an intelligent AI Assistant."
	memoriesTitle = "Retrieved User Memories (USE THESE FOR CONTEXT):"
	separator     = "---"
)

// Render builds the system prompt for message from the retrieved memories,
// keeping their order.
func Render(message string, memories []string) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\n")

	if len(memories) == 0 {
		b.WriteString(NoMemories)
	} else {
		b.WriteString(memoriesTitle)
		b.WriteString("\n")
		for _, m := range memories {
			b.WriteString("- ")
			b.WriteString(m)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(separator)
	}

	b.WriteString("\n\n")
	b.WriteString(`Respond to the user's latest message: "`)
	b.WriteString(message)
	b.WriteString(`"`)

	return b.String()
}
