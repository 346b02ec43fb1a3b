package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"latex_doc_editor/generator"
)

var ErrInvalidIntent = errors.New("invalid edit intent")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidIntent, fmt.Sprintf(format, args...))
}

// Normalize canonicalises enum spelling, fills the highlight colour default, clears
// fields that do not apply to the operation and recomputes Action.
func Normalize(in EditIntent) EditIntent {
	in.Operation = Operation(strings.ToLower(strings.TrimSpace(string(in.Operation))))
	in.TargetType = TargetType(strings.ToLower(strings.TrimSpace(string(in.TargetType))))
	in.FormatAction = FormatAction(strings.ToLower(strings.TrimSpace(string(in.FormatAction))))
	in.Position = Position(strings.ToLower(strings.TrimSpace(string(in.Position))))
	in.Color = strings.ToLower(strings.TrimSpace(in.Color))
	in.Target = strings.TrimSpace(in.Target)
	in.SectionName = strings.TrimSpace(in.SectionName)

	if in.Operation != OpFormat {
		in.FormatAction = ""
	}
	if in.FormatAction == Highlight && in.Color == "" {
		in.Color = DefaultColor
	}
	if in.FormatAction != Highlight {
		in.Color = ""
	}
	in.Action = in.Kind().String()
	return in
}

// Validate checks enum domains, required fields and the confidence range.
func Validate(in EditIntent) error {
	if !slices.Contains(Operations, in.Operation) {
		return invalid("operation %q", in.Operation)
	}
	if !slices.Contains(TargetTypes, in.TargetType) {
		return invalid("targetType %q", in.TargetType)
	}
	if in.Operation == OpFormat {
		if !slices.Contains(FormatActions, in.FormatAction) {
			return invalid("formatAction %q", in.FormatAction)
		}
		if in.FormatAction == Highlight && in.Color == "" {
			return invalid("highlight without color")
		}
	} else if in.FormatAction != "" {
		return invalid("formatAction %q on %s", in.FormatAction, in.Operation)
	}
	if in.Position != "" && !slices.Contains(Positions, in.Position) {
		return invalid("position %q", in.Position)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return invalid("confidence %v outside [0,1]", in.Confidence)
	}
	switch in.Operation {
	case OpAdd:
		if in.TargetType == Section && in.SectionName == "" && in.Target == "" {
			return invalid("add section without a name")
		}
		if in.TargetType != Section && strings.TrimSpace(in.NewText) == "" {
			return invalid("add without content")
		}
	default:
		if in.Target == "" {
			return invalid("empty target for %s", in.Operation)
		}
	}
	if want := in.Kind().String(); in.Action != want {
		return invalid("action %q does not match %s", in.Action, want)
	}
	return nil
}

var requiredFields = []string{"operation", "target", "targettype", "confidence"}

// ParseResponse decodes a model answer into a normalised, validated intent. Field names
// are matched case-insensitively and with or without underscores.
func ParseResponse(raw string) (EditIntent, error) {
	body, err := generator.ExtractJSON(raw)
	if err != nil {
		return EditIntent{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return EditIntent{}, fmt.Errorf("decode intent: %w", err)
	}
	norm := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if string(v) == "null" {
			continue
		}
		norm[strings.ToLower(strings.ReplaceAll(k, "_", ""))] = v
	}
	for _, f := range requiredFields {
		if _, ok := norm[f]; !ok {
			if f == "target" && isAdd(norm) {
				continue
			}
			return EditIntent{}, invalid("missing %s", f)
		}
	}

	var in EditIntent
	for key, dst := range map[string]any{
		"operation":            &in.Operation,
		"target":               &in.Target,
		"newtext":              &in.NewText,
		"targettype":           &in.TargetType,
		"formataction":         &in.FormatAction,
		"color":                &in.Color,
		"sectionname":          &in.SectionName,
		"position":             &in.Position,
		"converttoplainmarkup": &in.ConvertToPlainMarkup,
		"converttolatex":       &in.ConvertToPlainMarkup,
		"confidence":           &in.Confidence,
	} {
		v, ok := norm[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return EditIntent{}, invalid("field %s: %v", key, err)
		}
	}

	in = Normalize(in)
	in.Source = SourceAI
	if err := Validate(in); err != nil {
		return EditIntent{}, err
	}
	return in, nil
}

func isAdd(fields map[string]json.RawMessage) bool {
	var op string
	if v, ok := fields["operation"]; ok && json.Unmarshal(v, &op) == nil {
		return strings.EqualFold(strings.TrimSpace(op), string(OpAdd))
	}
	return false
}
