package generator

import (
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System  string
	User    string
	History []Message
	// JSON asks providers that support it for a JSON-only response.
	JSON bool
}

// Message 用于少量历史（可选）。
type Message struct {
	Role    string
	Content string
}

// NotFound is the sentinel the model returns when it cannot locate a sentence.
const NotFound = "NOT FOUND"

const sentenceContextLimit = 2000

// BuildLocatePrompt asks for the verbatim sentence in excerpt that the user meant by
// target, or the NotFound sentinel.
func BuildLocatePrompt(target, excerpt string) Prompt {
	if len(excerpt) > sentenceContextLimit {
		excerpt = excerpt[:sentenceContextLimit]
	}
	var sb strings.Builder
	sb.WriteString("Find the sentence in the LaTeX excerpt below that the user is referring to.\n\n")
	sb.WriteString(fmt.Sprintf("User is looking for: %q\n\n", target))
	sb.WriteString("LaTeX excerpt:\n")
	sb.WriteString(excerpt)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Return ONLY the exact sentence as it appears in the excerpt, character for character.\n")
	sb.WriteString("- Keep every LaTeX command, citation and math expression of that sentence.\n")
	sb.WriteString(fmt.Sprintf("- If no sentence matches, return exactly: %s\n", NotFound))

	return Prompt{
		System: "You locate text verbatim. Never paraphrase and never explain.",
		User:   sb.String(),
	}
}

// BuildConvertPrompt asks for plain prose rewritten as LaTeX body text.
func BuildConvertPrompt(text string) Prompt {
	var sb strings.Builder
	sb.WriteString("Convert the following plain text into LaTeX body text for an academic paper.\n")
	sb.WriteString("- Keep the meaning and wording; only add the markup that is needed.\n")
	sb.WriteString("- Preserve citations, math, numbers and technical terms exactly.\n")
	sb.WriteString("- Escape special characters (% & $ # _).\n")
	sb.WriteString("- Use itemize/enumerate for lists.\n")
	sb.WriteString("- Do not add a \\section heading, a preamble or \\begin{document}.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(text)

	return Prompt{
		System: "You are a LaTeX typesetter. Output only LaTeX, no explanations, no code fences.",
		User:   sb.String(),
	}
}

// BuildRewritePrompt asks for a section body rewritten according to instruction.
func BuildRewritePrompt(sectionTitle, body, instruction string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rewrite the body of the section %q according to the instruction.\n", sectionTitle))
	sb.WriteString("- Return only the new section body, without the \\section heading line.\n")
	sb.WriteString("- Keep every \\cite, \\ref, \\label, figure, table and math environment that still applies.\n")
	sb.WriteString("- Keep valid LaTeX; do not wrap the answer in code fences.\n\n")
	sb.WriteString(fmt.Sprintf("Instruction: %s\n\n", instruction))
	sb.WriteString("Current body:\n")
	sb.WriteString(body)

	return Prompt{
		System: "You are an experienced academic editor working directly in LaTeX.",
		User:   sb.String(),
	}
}

// BuildSectionPrompt asks for the body of a new section from a short description.
func BuildSectionPrompt(sectionName, description, excerpt string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write the body of a new section titled %q for an academic paper.\n", sectionName))
	if strings.TrimSpace(description) != "" {
		sb.WriteString(fmt.Sprintf("It should cover: %s\n", description))
	}
	sb.WriteString("- 2 to 3 paragraphs, 150 to 300 words in total.\n")
	sb.WriteString("- Plain LaTeX body text only: no \\section heading, no preamble, no code fences.\n")
	sb.WriteString("- Do not invent citations.\n")
	if strings.TrimSpace(excerpt) != "" {
		if len(excerpt) > sentenceContextLimit {
			excerpt = excerpt[:sentenceContextLimit]
		}
		sb.WriteString("\nFor tone and terminology, the paper begins:\n")
		sb.WriteString(excerpt)
	}

	return Prompt{
		System: "You are an academic writer producing concise LaTeX.",
		User:   sb.String(),
	}
}
