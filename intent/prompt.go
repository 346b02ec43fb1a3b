package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"latex_doc_editor/generator"
)

type example struct {
	instruction string
	intent      EditIntent
}

func ex(instruction string, in EditIntent) example {
	in.Confidence = 0.95
	return example{instruction: instruction, intent: Normalize(in)}
}

// examples cover every operation/targetType pairing the engine handles.
var examples = []example{
	ex(`replace "CGM" with "Continuous Glucose Monitor"`, EditIntent{Operation: OpReplace, Target: "CGM", NewText: "Continuous Glucose Monitor", TargetType: Word}),
	ex(`change "machine learning" to "deep learning"`, EditIntent{Operation: OpReplace, Target: "machine learning", NewText: "deep learning", TargetType: Phrase}),
	ex(`replace the sentence "The results were good." with "The results exceeded the baseline."`, EditIntent{Operation: OpReplace, Target: "The results were good.", NewText: "The results exceeded the baseline.", TargetType: Sentence}),
	ex(`replace the paragraph starting "In this work we" with "We study calibration."`, EditIntent{Operation: OpReplace, Target: "In this work we", NewText: "We study calibration.", TargetType: Paragraph}),
	ex(`replace the Abstract section content with "We propose a new method for glucose forecasting."`, EditIntent{Operation: OpReplace, Target: "Abstract", NewText: "We propose a new method for glucose forecasting.", TargetType: Section, SectionName: "Abstract", ConvertToPlainMarkup: true}),
	ex(`replace the table labelled tab:results with "\begin{tabular}{cc} a & b \\ \end{tabular}"`, EditIntent{Operation: OpReplace, Target: "tab:results", NewText: `\begin{tabular}{cc} a & b \\ \end{tabular}`, TargetType: Table}),
	ex(`replace the equation "E = mc^2" with "E = m c^2 + p"`, EditIntent{Operation: OpReplace, Target: "E = mc^2", NewText: "E = m c^2 + p", TargetType: Equation}),
	ex(`remove the word "very"`, EditIntent{Operation: OpRemove, Target: "very", TargetType: Word}),
	ex(`delete "in order to"`, EditIntent{Operation: OpRemove, Target: "in order to", TargetType: Phrase}),
	ex(`remove the sentence "This is left for future work."`, EditIntent{Operation: OpRemove, Target: "This is left for future work.", TargetType: Sentence}),
	ex(`delete the paragraph beginning "Prior studies have"`, EditIntent{Operation: OpRemove, Target: "Prior studies have", TargetType: Paragraph}),
	ex(`remove the Related Work section`, EditIntent{Operation: OpRemove, Target: "Related Work", TargetType: Section, SectionName: "Related Work"}),
	ex(`remove all tables`, EditIntent{Operation: OpRemove, Target: TargetAll, TargetType: Table}),
	ex(`remove the table with caption "Ablation results"`, EditIntent{Operation: OpRemove, Target: "Ablation results", TargetType: Table}),
	ex(`remove all inline equations`, EditIntent{Operation: OpRemove, Target: TargetInlineAll, TargetType: Equation}),
	ex(`remove all equations`, EditIntent{Operation: OpRemove, Target: TargetAll, TargetType: Equation}),
	ex(`add section "Discussion" before Limitations`, EditIntent{Operation: OpAdd, Target: "Limitations", TargetType: Section, SectionName: "Discussion", Position: Before, ConvertToPlainMarkup: true}),
	ex(`add a Limitations section about the small sample size`, EditIntent{Operation: OpAdd, Target: "Limitations", NewText: "the small sample size", TargetType: Section, SectionName: "Limitations", ConvertToPlainMarkup: true}),
	ex(`add "We used 5-fold cross-validation." to Methods`, EditIntent{Operation: OpAdd, Target: "Methods", NewText: "We used 5-fold cross-validation.", TargetType: Sentence, SectionName: "Methods", Position: End}),
	ex(`add this paragraph at the start of the Introduction: Diabetes affects millions of people worldwide and ...`, EditIntent{Operation: OpAdd, Target: "Introduction", NewText: "Diabetes affects millions of people worldwide and ...", TargetType: Paragraph, SectionName: "Introduction", Position: Before}),
	ex(`highlight "novel" in green`, EditIntent{Operation: OpFormat, Target: "novel", TargetType: Word, FormatAction: Highlight, Color: "green"}),
	ex(`make "state of the art" bold`, EditIntent{Operation: OpFormat, Target: "state of the art", TargetType: Phrase, FormatAction: Bold}),
	ex(`italicize the sentence "Our approach is simple."`, EditIntent{Operation: OpFormat, Target: "Our approach is simple.", TargetType: Sentence, FormatAction: Italic}),
	ex(`highlight the paragraph "We evaluate on three datasets and report mean absolute error across all patients and horizons."`, EditIntent{Operation: OpFormat, Target: "We evaluate on three datasets and report mean absolute error across all patients and horizons.", TargetType: Paragraph, FormatAction: Highlight, Color: DefaultColor}),
	ex(`improve the Introduction section to be more concise`, EditIntent{Operation: OpModify, Target: "Introduction", NewText: "be more concise", TargetType: Section, SectionName: "Introduction"}),
	ex(`rewrite the conclusion to emphasise clinical impact`, EditIntent{Operation: OpModify, Target: "Conclusion", NewText: "emphasise clinical impact", TargetType: Section, SectionName: "Conclusion"}),
}

// BuildPrompt renders the structured intent prompt for instruction.
func BuildPrompt(instruction string) generator.Prompt {
	var sb strings.Builder
	sb.WriteString("Convert the user's editing instruction for a LaTeX document into one JSON object.\n\n")
	sb.WriteString(fmt.Sprintf("Instruction: %q\n\n", instruction))

	sb.WriteString("Fields:\n")
	sb.WriteString(fmt.Sprintf("- operation (required): one of %s\n", joinEnum(Operations)))
	sb.WriteString("- action (required): operation and granularity label, e.g. replace_word, remove_table, add_section, add_content_to_section, highlight_phrase, modify_section_ai\n")
	sb.WriteString("- target (required): the exact text, section name, or table/equation identifier to locate\n")
	sb.WriteString("- newText: replacement text, new content, or the rewrite instruction for modify\n")
	sb.WriteString(fmt.Sprintf("- targetType (required): one of %s\n", joinEnum(TargetTypes)))
	sb.WriteString(fmt.Sprintf("- formatAction: one of %s; required when operation is format\n", joinEnum(FormatActions)))
	sb.WriteString(fmt.Sprintf("- color: required when formatAction is highlight, e.g. %s\n", strings.Join(Colors, ", ")))
	sb.WriteString("- sectionName: the section to anchor on, or the name of a new section\n")
	sb.WriteString(fmt.Sprintf("- position: one of %s; used by add\n", joinEnum(Positions)))
	sb.WriteString("- convertToPlainMarkup: true when plain prose must be converted to LaTeX before insertion\n")
	sb.WriteString("- confidence (required): number between 0 and 1\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- Copy target text exactly as the user wrote it; do not paraphrase.\n")
	sb.WriteString("- targetType: 1 word is word, 2-4 words phrase, a full sentence sentence, longer text paragraph, unless the user names the unit.\n")
	sb.WriteString(fmt.Sprintf("- For removing tables or equations use target %q for every block, %q or %q for equation kinds, or a caption/label to pick one.\n", TargetAll, TargetInlineAll, TargetDisplayAll))
	sb.WriteString("- For add with targetType section: sectionName is the new section, target is the anchor section when the user gives one.\n")
	sb.WriteString("- For add of text into a section: target and sectionName are that section, newText is the text.\n")
	sb.WriteString("- modify always uses targetType section.\n")
	sb.WriteString("- Output JSON only, no prose, no code fences.\n\n")

	sb.WriteString("Examples:\n")
	for _, e := range examples {
		b, err := json.Marshal(e.intent)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("Instruction: %s\nJSON: %s\n\n", e.instruction, b))
	}

	return generator.Prompt{
		System: "You are a precise parser of document editing instructions. Reply with a single JSON object.",
		User:   sb.String(),
		JSON:   true,
	}
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
