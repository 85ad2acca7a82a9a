// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"regexp"
	"strings"
)

// fenceRe matches the first fenced block, with or without a language tag
var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \\t]*\\r?\\n?(.*?)\\s*```")

// CleanJSONBlock removes markdown code fence wrappers from a completion.
// Models often wrap JSON in ```json ... ``` blocks even when told not to.
// Text without a fence is returned trimmed.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Unterminated fence: drop the opening line
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		return strings.TrimSpace(text)
	}

	return text
}
