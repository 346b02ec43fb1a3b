package intent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ignoreMeta keeps the table focused on the parsed fields.
var ignoreMeta = cmpopts.IgnoreFields(EditIntent{}, "Action", "Confidence", "Source")

func TestFallback(t *testing.T) {
	cases := []struct {
		instruction string
		want        EditIntent
	}{
		{
			instruction: `replace 'accuracy' with 'precision'`,
			want:        EditIntent{Operation: OpReplace, Target: "accuracy", NewText: "precision", TargetType: Word},
		},
		{
			instruction: "replace CGM with Glucose Monitor",
			want:        EditIntent{Operation: OpReplace, Target: "CGM", NewText: "Glucose Monitor", TargetType: Word},
		},
		{
			instruction: "change deep learning to neural networks",
			want:        EditIntent{Operation: OpReplace, Target: "deep learning", NewText: "neural networks", TargetType: Phrase},
		},
		{
			instruction: `replace "results" with "findings" in the Discussion section`,
			want:        EditIntent{Operation: OpReplace, Target: "results", NewText: "findings", TargetType: Word, SectionName: "Discussion"},
		},
		{
			instruction: `replace the Abstract section content with "We propose a method."`,
			want: EditIntent{Operation: OpReplace, Target: "Abstract", NewText: "We propose a method.", TargetType: Section,
				SectionName: "Abstract", ConvertToPlainMarkup: true},
		},
		{
			instruction: "remove the word dataset.",
			want:        EditIntent{Operation: OpRemove, Target: "dataset", TargetType: Word},
		},
		{
			instruction: "remove the Related Work section",
			want:        EditIntent{Operation: OpRemove, Target: "Related Work", TargetType: Section, SectionName: "Related Work"},
		},
		{
			instruction: "remove all tables",
			want:        EditIntent{Operation: OpRemove, Target: TargetAll, TargetType: Table},
		},
		{
			instruction: `remove the table with caption "Ablation results"`,
			want:        EditIntent{Operation: OpRemove, Target: "Ablation results", TargetType: Table},
		},
		{
			instruction: "remove the table labelled tab:results",
			want:        EditIntent{Operation: OpRemove, Target: "tab:results", TargetType: Table},
		},
		{
			instruction: "remove the table",
			want:        EditIntent{Operation: OpRemove, Target: TargetFirst, TargetType: Table},
		},
		{
			instruction: "remove all inline equations",
			want:        EditIntent{Operation: OpRemove, Target: TargetInlineAll, TargetType: Equation},
		},
		{
			instruction: "delete every equation",
			want:        EditIntent{Operation: OpRemove, Target: TargetAll, TargetType: Equation},
		},
		{
			instruction: `add section "Discussion" before Limitations`,
			want: EditIntent{Operation: OpAdd, Target: "Limitations", TargetType: Section, SectionName: "Discussion",
				Position: Before, ConvertToPlainMarkup: true},
		},
		{
			instruction: "Add section 'Future Work' after the Results section",
			want: EditIntent{Operation: OpAdd, Target: "Results", TargetType: Section, SectionName: "Future Work",
				Position: After, ConvertToPlainMarkup: true},
		},
		{
			instruction: "add a new section called Related Work after Introduction",
			want: EditIntent{Operation: OpAdd, Target: "Introduction", TargetType: Section, SectionName: "Related Work",
				Position: After, ConvertToPlainMarkup: true},
		},
		{
			instruction: "add a Limitations section about the small sample size",
			want: EditIntent{Operation: OpAdd, Target: "Limitations", NewText: "the small sample size", TargetType: Section,
				SectionName: "Limitations", ConvertToPlainMarkup: true},
		},
		{
			instruction: `add "We used 5-fold cross-validation." to Methods`,
			want: EditIntent{Operation: OpAdd, Target: "Methods", NewText: "We used 5-fold cross-validation.", TargetType: Sentence,
				SectionName: "Methods", Position: End},
		},
		{
			instruction: `add "Code is available online." to the Methods section`,
			want: EditIntent{Operation: OpAdd, Target: "Methods", NewText: "Code is available online.", TargetType: Sentence,
				SectionName: "Methods", Position: End},
		},
		{
			instruction: "add this paragraph at the start of the Introduction: Diabetes affects millions of people.",
			want: EditIntent{Operation: OpAdd, Target: "Introduction", NewText: "Diabetes affects millions of people.",
				TargetType: Paragraph, SectionName: "Introduction", Position: Before},
		},
		{
			instruction: `highlight "novel" in green`,
			want:        EditIntent{Operation: OpFormat, Target: "novel", TargetType: Word, FormatAction: Highlight, Color: "green"},
		},
		{
			instruction: "highlight machine learning",
			want:        EditIntent{Operation: OpFormat, Target: "machine learning", TargetType: Phrase, FormatAction: Highlight, Color: DefaultColor},
		},
		{
			instruction: `make "state of the art" bold`,
			want:        EditIntent{Operation: OpFormat, Target: "state of the art", TargetType: Phrase, FormatAction: Bold},
		},
		{
			instruction: "bold the word results in the Discussion section",
			want:        EditIntent{Operation: OpFormat, Target: "results", TargetType: Word, FormatAction: Bold, SectionName: "Discussion"},
		},
		{
			instruction: `italicize the sentence "Our approach is simple."`,
			want:        EditIntent{Operation: OpFormat, Target: "Our approach is simple.", TargetType: Sentence, FormatAction: Italic},
		},
		{
			instruction: "italicize The model converges quickly.",
			want:        EditIntent{Operation: OpFormat, Target: "The model converges quickly.", TargetType: Sentence, FormatAction: Italic},
		},
		{
			instruction: "improve the Introduction section to be more concise",
			want:        EditIntent{Operation: OpModify, Target: "Introduction", NewText: "be more concise", TargetType: Section, SectionName: "Introduction"},
		},
		{
			instruction: "rewrite the conclusion to emphasise clinical impact",
			want:        EditIntent{Operation: OpModify, Target: "conclusion", NewText: "emphasise clinical impact", TargetType: Section, SectionName: "conclusion"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.instruction, func(t *testing.T) {
			got := Fallback(tc.instruction)
			if diff := cmp.Diff(tc.want, got, ignoreMeta); diff != "" {
				t.Errorf("Fallback(%q) mismatch (-want +got):\n%s", tc.instruction, diff)
			}
			assert.Equal(t, SourceFallback, got.Source)
			assert.InDelta(t, fallbackConfidence, got.Confidence, 1e-9)
			assert.Equal(t, got.Kind().String(), got.Action)
		})
	}
}

func TestFallback_Deterministic(t *testing.T) {
	instructions := []string{
		`replace 'accuracy' with 'precision'`,
		"remove all tables",
		`add section "Discussion" before Limitations`,
		"highlight novel in red",
		"make the abstract better",
	}
	for _, in := range instructions {
		first := Fallback(in)
		for i := 0; i < 5; i++ {
			require.Equal(t, first, Fallback(in))
		}
	}
}

func TestFallback_OutputsValidate(t *testing.T) {
	instructions := []string{
		`replace 'accuracy' with 'precision'`,
		"remove the sentence This is left for future work.",
		"add a Limitations section",
		`add "Thanks." to Acknowledgments`,
		"highlight novel in red",
		"improve the Methods section",
	}
	for _, in := range instructions {
		assert.NoError(t, Validate(Fallback(in)), in)
	}
}

func TestFallback_SentencePunctuation(t *testing.T) {
	got := Fallback("remove The results were good.")
	assert.Equal(t, Sentence, got.TargetType)
	assert.Equal(t, "The results were good.", got.Target)

	got = Fallback("remove the word good.")
	assert.Equal(t, Word, got.TargetType)
	assert.Equal(t, "good", got.Target)
}

func TestFallback_WordCountBuckets(t *testing.T) {
	assert.Equal(t, Word, bucketType("alpha"))
	assert.Equal(t, Phrase, bucketType("alpha beta gamma delta"))
	assert.Equal(t, Sentence, bucketType("one two three four five"))
	assert.Equal(t, Paragraph, bucketType("a b c d e f g h i j k l m n o p"))
	assert.Equal(t, Sentence, bucketType(`"Done!"`))
}

func TestFallback_MakeBetterIsModify(t *testing.T) {
	got := Fallback("make the abstract better")
	assert.Equal(t, OpModify, got.Operation)
	assert.Equal(t, "abstract", got.Target)
	assert.Equal(t, "modify_section_ai", got.Action)
}

func TestFallback_EmptyInstruction(t *testing.T) {
	got := Fallback("   ")
	assert.Equal(t, OpFormat, got.Operation)
	assert.Empty(t, got.Target)
}
