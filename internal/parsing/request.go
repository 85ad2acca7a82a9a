package parsing

import (
	"github.com/humexxx/tech9-parserdf/internal/llm"
)

// BuildRequest constructs the provider-specific messages for one document.
// Grok and Anthropic receive the instruction as a system message; Gemini gets
// a single user turn that starts with the instruction.
func BuildRequest(provider llm.Provider, fileName, mimeType, base64Data string) []llm.Message {
	attachment := llm.InlinePart(mimeType, base64Data)
	line := fileLine(fileName)

	if provider == llm.ProviderGemini {
		return []llm.Message{{
			Role:  llm.RoleUser,
			Parts: []llm.Part{llm.TextPart(ResumeParsingPrompt + "\n\n" + line), attachment},
		}}
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Parts: []llm.Part{llm.TextPart(ResumeParsingPrompt)}},
		{Role: llm.RoleUser, Parts: []llm.Part{llm.TextPart(line), attachment}},
	}
}
