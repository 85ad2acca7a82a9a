// Package schemas holds the JSON Schema documents for structured data exchanged with the LLM.
package schemas

import "embed"

// FS contains every *.schema.json file in this directory
//
//go:embed *.schema.json
var FS embed.FS

// StructuredResume is the file name of the parsed resume schema
const StructuredResume = "structured_resume.schema.json"
