package parsing

import (
	"encoding/json"
	"strings"

	"github.com/humexxx/tech9-parserdf/internal/llm"
	"github.com/humexxx/tech9-parserdf/internal/schemas"
	"github.com/humexxx/tech9-parserdf/internal/types"
)

// ExtractStructured strips an optional code fence from the completion and
// decodes the resume. Malformed JSON or a wrongly typed document is a *ParseError.
func ExtractStructured(raw string) (*types.StructuredResume, error) {
	body := llm.CleanJSONBlock(raw)
	if strings.TrimSpace(body) == "" {
		return nil, &ParseError{Message: "response contained no JSON"}
	}

	if !json.Valid([]byte(body)) {
		return nil, &ParseError{Message: "response is not valid JSON", Cause: invalidJSONCause(body)}
	}

	if err := schemas.ValidateStructuredResume([]byte(body)); err != nil {
		return nil, &ParseError{Message: "response does not match the resume schema", Cause: err}
	}

	var resume types.StructuredResume
	if err := json.Unmarshal([]byte(body), &resume); err != nil {
		return nil, &ParseError{Message: "failed to decode resume", Cause: err}
	}
	return &resume, nil
}

func invalidJSONCause(body string) error {
	var v any
	return json.Unmarshal([]byte(body), &v)
}
