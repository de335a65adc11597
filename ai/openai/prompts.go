package openai

import (
	"fmt"
	"strings"
)

const summaryPrompt = `You are an AI that extracts titles and summaries from documentation chunks.
Return a JSON object with exactly two keys: "title" and "summary".
For the title: if this seems like the start of a document, extract its title. If it is a middle chunk, derive a descriptive title.
For the summary: create a concise summary of the main points in this chunk.
Keep both title and summary concise but informative.

Output ONLY valid JSON. Do not include any preamble, explanation, or text outside the object.

Example:
{"title":"Installing the CLI","summary":"Covers downloading the release archive, adding the binary to PATH and verifying the install."}`

const namingPrompt = `You are a helpful assistant.
You generate a short document name and a short topic name from a given document snippet.
Always return only a JSON object with exactly 2 keys: "doc_name" and "topic_name".
The short document name must be lowercase words joined by underscores in the format "xxx_xxx_doc" and must not exceed 40 characters.
The short topic name must be a 1 to 10 word phrase summarizing the overall topic of the document.

Examples:
- Content about agentic ai: {"doc_name":"agentic_ai_doc","topic_name":"agentic ai"}
- Content about the best football players of all time: {"doc_name":"best_football_player_doc","topic_name":"best football players"}
- Content about the current political scenario in the USA: {"doc_name":"usa_political_scenario_doc","topic_name":"political scenario in usa"}`

// buildSummaryInput renders the user message for one chunk. Only the first
// limit characters of content are sent.
func buildSummaryInput(url, content string, limit int) string {
	runes := []rune(content)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return fmt.Sprintf("URL: %s\n\nContent:\n%s...", url, string(runes))
}

// buildNamingInput joins the sample chunks into the naming request.
func buildNamingInput(samples []string) string {
	return "Based on the following text, generate a meaningful short name for it:\n\n" + strings.Join(samples, "\n")
}
