package prompt_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/api/prompt"
)

func bullets(s string) []string {
	var out []string
	for line := range strings.SplitSeq(s, "\n") {
		if strings.HasPrefix(line, "- ") {
			out = append(out, strings.TrimPrefix(line, "- "))
		}
	}
	return out
}

var _ = Describe("Render", func() {
	It("lists memories as bullets in order", func() {
		out := prompt.Render("What should I cook?", []string{"Is vegetarian", "Likes spicy food"})

		Expect(out).To(Equal("You are an intelligent AI Assistant.\n\n" +
			"Retrieved User Memories (USE THESE FOR CONTEXT):\n" +
			"- Is vegetarian\n" +
			"- Likes spicy food\n" +
			"\n---\n\n" +
			`Respond to the user's latest message: "What should I cook?"`))
		Expect(bullets(out)).To(Equal([]string{"Is vegetarian", "Likes spicy food"}))
	})

	It("uses the fallback sentence without bullets when nothing was found", func() {
		out := prompt.Render("hi", nil)

		Expect(out).To(ContainSubstring(prompt.NoMemories))
		Expect(out).NotTo(ContainSubstring("Retrieved User Memories"))
		Expect(bullets(out)).To(BeEmpty())
		Expect(out).To(HaveSuffix(`Respond to the user's latest message: "hi"`))
	})

	It("renders one bullet per memory", func() {
		memories := []string{"a", "b", "c", "d", "e"}
		Expect(bullets(prompt.Render("q", memories))).To(Equal(memories))
	})

	It("embeds the message verbatim", func() {
		out := prompt.Render(`say "hello"`, nil)
		Expect(out).To(ContainSubstring(`"say "hello""`))
	})
})
