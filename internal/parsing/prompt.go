package parsing

import "github.com/humexxx/tech9-parserdf/internal/prompts"

const promptFile = "parsing.json"

// ResumeParsingPrompt is the fixed instruction sent with every document
var ResumeParsingPrompt = prompts.MustGet(promptFile, "parse-resume")

// fileLine names the attached document in the user turn
func fileLine(fileName string) string {
	return prompts.Format(prompts.MustGet(promptFile, "parse-resume-file"), map[string]string{"FileName": fileName})
}
