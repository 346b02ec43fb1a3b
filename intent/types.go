// Package intent turns a free-text editing instruction into a validated EditIntent.
package intent

import "fmt"

type Operation string

const (
	OpReplace Operation = "replace"
	OpRemove  Operation = "remove"
	OpAdd     Operation = "add"
	OpFormat  Operation = "format"
	OpModify  Operation = "modify"
)

var Operations = []Operation{OpReplace, OpRemove, OpAdd, OpFormat, OpModify}

type TargetType string

const (
	Word      TargetType = "word"
	Phrase    TargetType = "phrase"
	Sentence  TargetType = "sentence"
	Paragraph TargetType = "paragraph"
	Section   TargetType = "section"
	Table     TargetType = "table"
	Equation  TargetType = "equation"
)

var TargetTypes = []TargetType{Word, Phrase, Sentence, Paragraph, Section, Table, Equation}

type FormatAction string

const (
	Highlight FormatAction = "highlight"
	Bold      FormatAction = "bold"
	Italic    FormatAction = "italic"
)

var FormatActions = []FormatAction{Highlight, Bold, Italic}

type Position string

const (
	Before  Position = "before"
	After   Position = "after"
	Replace Position = "replace"
	End     Position = "end"
)

var Positions = []Position{Before, After, Replace, End}

// Source records which path produced an intent.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Special targets understood for table and equation removal.
const (
	TargetAll        = "all"
	TargetFirst      = "first"
	TargetInlineAll  = "inline_all"
	TargetDisplayAll = "display_all"
)

const DefaultColor = "yellow"

// Colors are the highlight colours the heuristic parser recognises, in priority order.
var Colors = []string{"red", "green", "blue", "yellow", "cyan", "magenta", "orange", "pink"}

// EditIntent is the structured form of one instruction. JSON names are part of the
// contract with the language service.
type EditIntent struct {
	Operation            Operation    `json:"operation"`
	Action               string       `json:"action"`
	Target               string       `json:"target"`
	NewText              string       `json:"newText,omitempty"`
	TargetType           TargetType   `json:"targetType"`
	FormatAction         FormatAction `json:"formatAction,omitempty"`
	Color                string       `json:"color,omitempty"`
	SectionName          string       `json:"sectionName,omitempty"`
	Position             Position     `json:"position,omitempty"`
	ConvertToPlainMarkup bool         `json:"convertToPlainMarkup"`
	Confidence           float64      `json:"confidence"`
	Source               Source       `json:"source,omitempty"`
}

// Action is the tagged variant an intent dispatches on. Format is empty unless
// Operation is OpFormat.
type Action struct {
	Operation  Operation
	TargetType TargetType
	Format     FormatAction
}

// ActionFor builds the Action for a combination, dropping Format for non-format
// operations.
func ActionFor(op Operation, tt TargetType, fa FormatAction) Action {
	if op != OpFormat {
		fa = ""
	}
	return Action{Operation: op, TargetType: tt, Format: fa}
}

// Kind returns the intent's Action.
func (i EditIntent) Kind() Action {
	return ActionFor(i.Operation, i.TargetType, i.FormatAction)
}

// String returns the action label, e.g. "replace_word", "add_section",
// "highlight_phrase".
func (a Action) String() string {
	switch a.Operation {
	case OpModify:
		return "modify_section_ai"
	case OpReplace:
		if a.TargetType == Section {
			return "replace_section_content"
		}
		return fmt.Sprintf("replace_%s", a.TargetType)
	case OpRemove:
		return fmt.Sprintf("remove_%s", a.TargetType)
	case OpAdd:
		if a.TargetType == Section {
			return "add_section"
		}
		return "add_content_to_section"
	case OpFormat:
		return fmt.Sprintf("%s_%s", a.Format, a.TargetType)
	default:
		return string(a.Operation)
	}
}

// AllActions enumerates every valid Action.
func AllActions() []Action {
	var out []Action
	for _, op := range Operations {
		for _, tt := range TargetTypes {
			if op != OpFormat {
				out = append(out, ActionFor(op, tt, ""))
				continue
			}
			for _, fa := range FormatActions {
				out = append(out, ActionFor(op, tt, fa))
			}
		}
	}
	return out
}
