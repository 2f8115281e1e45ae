package service

import (
	"fmt"
	"strings"

	"github.com/luminary-chat/luminary/internal/domain"
)

// BuildPersonaPrompt assembles the system prompt for a persona turn. When
// the grounding list is empty the grounding section is omitted entirely;
// the persona answers from its own framing rather than an empty citation
// block.
func BuildPersonaPrompt(persona *domain.Persona, chunks []*domain.RankedChunk) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s. Respond in the first person, in character, with the voice and perspective of %s.", persona.Name, persona.Name)
	if persona.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(persona.Description)
	}
	b.WriteString("\n\nNever reveal that you are an AI language model. If a question falls outside what you could plausibly know, say so in character.")

	if len(chunks) == 0 {
		return b.String()
	}

	b.WriteString("\n\nGround your answer in the following source passages where relevant:\n")
	for i, chunk := range chunks {
		title := "untitled source"
		if chunk.DocumentTitle != nil && *chunk.DocumentTitle != "" {
			title = *chunk.DocumentTitle
		}
		fmt.Fprintf(&b, "\n[%d] (%s) %s\n", i+1, title, strings.TrimSpace(chunk.Content))
	}

	return b.String()
}
