package intent

import (
	"regexp"
	"slices"
	"strings"
)

const fallbackConfidence = 0.6

var (
	quoteRe = regexp.MustCompile(`(?:^|[\s:(\[,=])(?:"([^"]+)"|“([^”]+)”|'([^']+)'|‘([^’]+)’)`)

	modifyRe  = regexp.MustCompile(`\b(?:modify|improve|enhance|refine|revise|update|rewrite|polish)\b|\bmake\b.*\bbetter\b`)
	replaceRe = regexp.MustCompile(`\b(?:replace|change|swap|substitute)\b`)
	removeRe  = regexp.MustCompile(`\b(?:remove|delete|erase)\b`)
	addRe     = regexp.MustCompile(`\b(?:add|insert|append|include|create)\b`)

	boldRe   = regexp.MustCompile(`\b(?:bold|boldface|embolden)\b`)
	italicRe = regexp.MustCompile(`\b(?:italic|italics|italicize|italicise|italicized|emphasize|emphasise)\b`)

	documentTailRe = regexp.MustCompile(`(?i)\s+(?:in|from|throughout|across)\s+(?:the\s+)?(?:whole\s+|entire\s+)?(?:document|paper|text|manuscript|file)\s*\.?\s*$`)
	scopeTailRe    = regexp.MustCompile(`(?i)\s+(?:in|within|inside|from)\s+(?:the\s+)?([^"'“”‘’]+?)\s+section\s*\.?\s*$`)

	tableNounRe     = regexp.MustCompile(`\b(?:tables?|tabular)\b`)
	equationNounRe  = regexp.MustCompile(`\b(?:equations?|formulas?|formulae|math)\b`)
	sectionNounRe   = regexp.MustCompile(`\bsections?\b`)
	paragraphNounRe = regexp.MustCompile(`\bparagraphs?\b`)
	sentenceNounRe  = regexp.MustCompile(`\b(?:sentences?|statements?)\b`)
	wordNounRe      = regexp.MustCompile(`\b(?:words?|terms?)\b`)

	replaceWithRe = regexp.MustCompile(`(?is)\b(?:replace|swap|substitute)\s+(?:all\s+(?:occurrences|instances)\s+of\s+)?(?:(?:the\s+)?(?:word|phrase|term|sentence|paragraph|text)\s+|(?-i:the)\s+)?(.+?)\s+(?:with|by|for)\s+(.+)$`)
	changeToRe    = regexp.MustCompile(`(?is)\bchange\s+(?:all\s+(?:occurrences|instances)\s+of\s+)?(?:(?:the\s+)?(?:word|phrase|term|sentence|paragraph|text)\s+|(?-i:the)\s+)?(.+?)\s+(?:to|into)\s+(.+)$`)
	removeWhatRe  = regexp.MustCompile(`(?is)\b(?:remove|delete|erase)\s+(?:all\s+(?:occurrences|instances)\s+of\s+)?(?:(?:the\s+)?(?:word|phrase|term|sentence|paragraph|section|text)\s*:?\s+|(?-i:the)\s+)?(.+)$`)
	identifierRe  = regexp.MustCompile(`(?i)\b(?:captioned|caption|labelled|labeled|label|titled|named|called)\s*:?\s*(?:as\s+)?(.+?)\s*\.?$`)

	contentNounRe = regexp.MustCompile(`\b(?:paragraphs?|sentences?|text|content|statements?|lines?)\b`)
	intoSectionRe = regexp.MustCompile(`\b(?:to|into|in)\s+(?:the\s+)?(?:[\w&-]+\s+){0,4}section\b`)

	sectionCalledRe = regexp.MustCompile(`(?i)\bsection\s+(?:called|named|titled|entitled)\s+["'“‘]?(.+?)["'”’]?(?:\s+(?:before|after|at|to|about|on|describing|covering|discussing|with)\b|\s*\.?\s*$)`)
	sectionQuotedRe = regexp.MustCompile(`(?i)\bsection\s+["'“‘]([^"'“”‘’]+)["'”’]`)
	namedSectionRe  = regexp.MustCompile(`(?i)\b(?:add|create|insert|append|include)\s+(?:a\s+|an\s+)?(?:new\s+)?["'“‘]?([^"'“”‘’]+?)["'”’]?\s+section\b`)
	anchorRe        = regexp.MustCompile(`(?is)\b(before|after)\s+(?:the\s+)?(.+?)\s*\.?\s*$`)
	atEndRe         = regexp.MustCompile(`(?i)\bat\s+the\s+(?:very\s+)?end\b`)
	descriptionRe   = regexp.MustCompile(`(?is)\b(?:about|on|describing|discussing|covering|explaining|that\s+(?:describes|discusses|covers|explains))\s+(.+?)\s*\.?\s*$`)

	colonContentRe  = regexp.MustCompile(`(?s)^([^:]*):\s*(.+)$`)
	contentTargetRe = regexp.MustCompile(`(?is)\b(?:to|into|in|of)\s+(?:the\s+)?(?:(?:start|beginning|end|top|bottom)\s+of\s+(?:the\s+)?)?(.+?)\s*\.?\s*$`)
	addToRe         = regexp.MustCompile(`(?is)\b(?:add|insert|append|include)\s+(.+?)\s+(?:to|into)\s+(?:the\s+)?(?:(?:start|beginning|end|top|bottom)\s+of\s+(?:the\s+)?)?(.+?)\s*\.?\s*$`)
	addVerbRe       = regexp.MustCompile(`(?is)^.*?\b(?:add|insert|append|include)\s+(?:this\s+|the\s+following\s+)?(?:(?:paragraph|sentence|text|content|line)\s*:?\s*)?(.+)$`)
	beforeWordsRe   = regexp.MustCompile(`\b(?:before|beginning|begin|start|top|prepend)\b`)
	afterWordRe     = regexp.MustCompile(`\bafter\b`)

	formatWhatRe  = regexp.MustCompile(`(?is)\b(?:highlight|bold|boldface|embolden|italicize|italicise|emphasize|emphasise|make|format|mark|color|colour|underline)\s+(?:all\s+(?:occurrences|instances)\s+of\s+)?(?:(?:(?:this|the|that)\s+)?(?:word|phrase|term|sentence|paragraph|text)\b|(?-i:this|the|that)\s+)?\s*:?\s*(.+)$`)
	formatCutRe   = regexp.MustCompile(`(?i)\s+(?:in|to|with|using|as)\s+`)
	styleSuffixRe = regexp.MustCompile(`(?i)\s+(?:bold|boldface|italic|italics|italicized|highlighted|red|green|blue|yellow|cyan|magenta|orange|pink)\s*\.?$`)

	modifySectionRe = regexp.MustCompile(`(?is)\b(?:modify|improve|enhance|refine|revise|update|rewrite|polish)\s+(?:the\s+)?(.+?)\s+section\b\s*(?:(?:to|by|so\s+that|so\s+it|and)\s+)?(.*)$`)
	modifyToRe      = regexp.MustCompile(`(?is)\b(?:modify|improve|enhance|refine|revise|update|rewrite|polish)\s+(?:the\s+)?(?:section\s+)?(.+?)\s+(?:to|by|so\s+that)\s+(.+)$`)
	modifyBareRe    = regexp.MustCompile(`(?is)\b(?:modify|improve|enhance|refine|revise|update|rewrite|polish)\s+(?:the\s+)?(?:section\s+)?(.+?)\s*\.?\s*$`)
	makeBetterRe    = regexp.MustCompile(`(?is)\bmake\s+(?:the\s+)?(.+?)(?:\s+section)?\s+better\b\s*(.*)$`)

	sectionSuffixRe  = regexp.MustCompile(`(?i)\s+section(?:\s+(?:content|contents|text|body))?$`)
	sectionPrefixRe  = regexp.MustCompile(`(?i)^(?:the\s+)?(?:(?:content|contents|text|body)\s+(?:of|in)\s+(?:the\s+)?)?(?:section\s+)?`)
	blockNounPrefix  = regexp.MustCompile(`(?i)^(?:the\s+)?(?:first\s+)?(?:tables?|tabular|equations?|formulas?)\b\s*`)
	allWordRe        = regexp.MustCompile(`\b(?:all|every|each)\b`)
	tablesPluralRe   = regexp.MustCompile(`\btables\b`)
	equationPluralRe = regexp.MustCompile(`\b(?:equations|formulas|formulae)\b`)
)

type fallbackParser struct {
	text     string
	quotes   []string
	quoteEnd int
	// work is text with trailing scope clauses cut; bare is work lower-cased with the
	// quoted segments blanked out.
	work  string
	bare  string
	scope string
}

// Fallback parses an instruction with keyword rules and regular expressions only. It
// makes no external call, so the same text always yields the same intent.
func Fallback(instruction string) EditIntent {
	p := newFallbackParser(instruction)
	in := EditIntent{Operation: p.operation()}

	switch in.Operation {
	case OpReplace:
		p.cutTails()
		p.parseReplace(&in)
	case OpRemove:
		p.cutTails()
		p.parseRemove(&in)
	case OpAdd:
		p.parseAdd(&in)
	case OpModify:
		p.parseModify(&in)
	default:
		p.cutTails()
		p.parseFormat(&in)
	}

	if in.Target == "" && in.Operation != OpAdd {
		in.Target = lastWord(p.text)
	}
	if in.SectionName == "" && p.scope != "" {
		in.SectionName = p.scope
	}
	in.ConvertToPlainMarkup = (in.Operation == OpAdd || in.Operation == OpReplace) && in.TargetType == Section
	in.Confidence = fallbackConfidence
	in.Source = SourceFallback
	return Normalize(in)
}

func newFallbackParser(instruction string) *fallbackParser {
	p := &fallbackParser{text: strings.TrimSpace(instruction)}
	for _, m := range quoteRe.FindAllStringSubmatchIndex(p.text, -1) {
		for g := 1; g <= 4; g++ {
			if s, e := m[2*g], m[2*g+1]; s >= 0 {
				p.quotes = append(p.quotes, strings.TrimSpace(p.text[s:e]))
				break
			}
		}
		if p.quoteEnd == 0 {
			p.quoteEnd = m[1]
		}
	}
	p.setWork(p.text)
	return p
}

func (p *fallbackParser) setWork(work string) {
	p.work = work
	p.bare = strings.ToLower(quoteRe.ReplaceAllString(work, " _ "))
}

func (p *fallbackParser) cutTails() {
	work := documentTailRe.ReplaceAllString(p.text, "")
	if m := scopeTailRe.FindStringSubmatchIndex(work); m != nil {
		p.scope = cleanSection(work[m[2]:m[3]])
		work = work[:m[0]]
	}
	p.setWork(work)
}

func (p *fallbackParser) operation() Operation {
	switch {
	case modifyRe.MatchString(p.bare):
		return OpModify
	case replaceRe.MatchString(p.bare):
		return OpReplace
	case removeRe.MatchString(p.bare):
		return OpRemove
	case addRe.MatchString(p.bare):
		return OpAdd
	default:
		return OpFormat
	}
}

// nounType returns the structural unit named outside quoted text, if any.
func nounType(bare string) (TargetType, bool) {
	switch {
	case tableNounRe.MatchString(bare):
		return Table, true
	case equationNounRe.MatchString(bare):
		return Equation, true
	case sectionNounRe.MatchString(bare):
		return Section, true
	case paragraphNounRe.MatchString(bare):
		return Paragraph, true
	case sentenceNounRe.MatchString(bare):
		return Sentence, true
	case wordNounRe.MatchString(bare):
		return Word, true
	}
	return "", false
}

// bucketType sizes free text: 1 word, up to 4, up to 15, longer. Sentence punctuation
// at the end always means a sentence.
func bucketType(text string) TargetType {
	trimmed := strings.TrimRight(strings.TrimSpace(text), `"'”’)`)
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
		return Sentence
	}
	switch n := len(strings.Fields(text)); {
	case n <= 1:
		return Word
	case n <= 4:
		return Phrase
	case n <= 15:
		return Sentence
	default:
		return Paragraph
	}
}

func (p *fallbackParser) targetType(target string) TargetType {
	if tt, ok := nounType(p.bare); ok {
		return tt
	}
	return bucketType(target)
}

func (p *fallbackParser) parseReplace(in *EditIntent) {
	quoted := len(p.quotes) >= 2
	if quoted {
		in.Target, in.NewText = p.quotes[0], p.quotes[1]
	} else if m := replaceWithRe.FindStringSubmatch(p.work); m != nil {
		in.Target, in.NewText = trimQuotes(m[1]), trimQuotes(m[2])
	} else if m := changeToRe.FindStringSubmatch(p.work); m != nil {
		in.Target, in.NewText = trimQuotes(m[1]), trimQuotes(m[2])
	}
	in.TargetType = p.targetType(in.Target)
	in.Target = p.finishTarget(in.Operation, in.TargetType, in.Target, quoted)
	if !quoted && (in.TargetType == Word || in.TargetType == Phrase) {
		in.NewText = strings.TrimRight(in.NewText, ".,;:!?")
	}
	if in.TargetType == Section {
		in.SectionName = in.Target
	}
}

func (p *fallbackParser) parseRemove(in *EditIntent) {
	quoted := len(p.quotes) > 0
	if quoted {
		in.Target = p.quotes[0]
	} else if m := removeWhatRe.FindStringSubmatch(p.work); m != nil {
		in.Target = trimQuotes(m[1])
	}
	in.TargetType = p.targetType(in.Target)
	in.Target = p.finishTarget(in.Operation, in.TargetType, in.Target, quoted)
	if in.TargetType == Section {
		in.SectionName = in.Target
	}
}

// finishTarget applies the per-type clean-ups shared by replace and remove.
func (p *fallbackParser) finishTarget(op Operation, tt TargetType, target string, quoted bool) string {
	switch tt {
	case Section:
		return cleanSection(target)
	case Table, Equation:
		return p.blockTarget(op, tt, target, quoted)
	case Word, Phrase:
		if !quoted {
			return strings.TrimRight(target, ".,;:!?")
		}
	}
	return target
}

// blockTarget maps a table or equation reference to all, inline_all, display_all, an
// identifier or first.
func (p *fallbackParser) blockTarget(op Operation, tt TargetType, target string, quoted bool) string {
	if quoted {
		return target
	}
	if op == OpRemove {
		all := allWordRe.MatchString(p.bare)
		if tt == Table && (all || tablesPluralRe.MatchString(p.bare)) {
			return TargetAll
		}
		if tt == Equation {
			plural := all || equationPluralRe.MatchString(p.bare)
			switch {
			case plural && strings.Contains(p.bare, "inline"):
				return TargetInlineAll
			case plural && (strings.Contains(p.bare, "display") || strings.Contains(p.bare, "numbered")):
				return TargetDisplayAll
			case plural:
				return TargetAll
			}
		}
	}
	if m := identifierRe.FindStringSubmatch(target); m != nil {
		return trimQuotes(m[1])
	}
	if rest := strings.TrimSpace(blockNounPrefix.ReplaceAllString(target, "")); rest != "" && rest != target {
		return trimQuotes(rest)
	}
	return TargetFirst
}

func (p *fallbackParser) parseAdd(in *EditIntent) {
	if p.isSectionAdd() {
		p.parseAddSection(in)
		return
	}
	p.parseAddContent(in)
}

// isSectionAdd reports whether the instruction creates a new heading rather than
// inserting text into an existing section.
func (p *fallbackParser) isSectionAdd() bool {
	loc := sectionNounRe.FindStringIndex(p.bare)
	if loc == nil {
		return false
	}
	if contentNounRe.MatchString(p.bare[:loc[0]]) {
		return false
	}
	return !intoSectionRe.MatchString(p.bare)
}

func (p *fallbackParser) parseAddSection(in *EditIntent) {
	in.TargetType = Section
	rest := p.text
	for _, re := range []*regexp.Regexp{sectionCalledRe, sectionQuotedRe, namedSectionRe} {
		if m := re.FindStringSubmatchIndex(p.text); m != nil {
			in.SectionName = trimQuotes(p.text[m[2]:m[3]])
			rest = p.text[m[3]:]
			break
		}
	}
	if in.SectionName == "" && len(p.quotes) > 0 {
		in.SectionName = p.quotes[0]
		rest = p.text[p.quoteEnd:]
	}
	if in.SectionName == "" {
		in.SectionName = lastWord(p.text)
	}
	in.SectionName = cleanSection(in.SectionName)

	if m := anchorRe.FindStringSubmatchIndex(rest); m != nil {
		in.Position = Position(strings.ToLower(rest[m[2]:m[3]]))
		in.Target = cleanSection(rest[m[4]:m[5]])
		rest = rest[:m[0]]
	} else if atEndRe.MatchString(rest) {
		in.Position = End
	}
	if in.Target == "" {
		in.Target = in.SectionName
	}
	if m := descriptionRe.FindStringSubmatch(rest); m != nil {
		in.NewText = trimQuotes(m[1])
	}
}

func (p *fallbackParser) parseAddContent(in *EditIntent) {
	head := p.text
	var section string
	switch {
	case len(p.quotes) > 0:
		in.NewText = p.quotes[0]
		head = p.text[:p.quoteEnd]
		if m := contentTargetRe.FindStringSubmatch(p.text[p.quoteEnd:]); m != nil {
			section = m[1]
		}
	case colonContentRe.MatchString(p.text):
		m := colonContentRe.FindStringSubmatch(p.text)
		head, in.NewText = m[1], strings.TrimSpace(m[2])
		if t := contentTargetRe.FindStringSubmatch(head); t != nil {
			section = t[1]
		}
	default:
		if m := addToRe.FindStringSubmatchIndex(p.text); m != nil {
			in.NewText, section = trimQuotes(p.text[m[2]:m[3]]), p.text[m[4]:m[5]]
			head = p.text[:m[2]] + p.text[m[3]:]
		} else if m := addVerbRe.FindStringSubmatch(p.text); m != nil {
			in.NewText = strings.TrimSpace(m[1])
		}
	}

	section = cleanSection(section)
	in.Target, in.SectionName = section, section

	headBare := strings.ToLower(quoteRe.ReplaceAllString(head, " _ "))
	switch {
	case beforeWordsRe.MatchString(headBare):
		in.Position = Before
	case afterWordRe.MatchString(headBare):
		in.Position = After
	default:
		in.Position = End
	}

	switch {
	case paragraphNounRe.MatchString(headBare):
		in.TargetType = Paragraph
	case sentenceNounRe.MatchString(headBare):
		in.TargetType = Sentence
	default:
		in.TargetType = bucketType(in.NewText)
		if in.TargetType == Word {
			in.TargetType = Phrase
		}
	}
}

func (p *fallbackParser) parseFormat(in *EditIntent) {
	switch {
	case boldRe.MatchString(p.bare):
		in.FormatAction = Bold
	case italicRe.MatchString(p.bare):
		in.FormatAction = Italic
	default:
		in.FormatAction = Highlight
		in.Color = p.color()
	}

	quoted := len(p.quotes) > 0
	if quoted {
		in.Target = p.quotes[0]
	} else if m := formatWhatRe.FindStringSubmatch(p.work); m != nil {
		target := m[1]
		if loc := formatCutRe.FindStringIndex(target); loc != nil {
			target = target[:loc[0]]
		}
		for styleSuffixRe.MatchString(target) {
			target = styleSuffixRe.ReplaceAllString(target, "")
		}
		in.Target = trimQuotes(target)
	}
	in.TargetType = p.targetType(in.Target)
	if !quoted && (in.TargetType == Word || in.TargetType == Phrase) {
		in.Target = strings.TrimRight(in.Target, ".,;:!?")
	}
}

var colorRes = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(Colors))
	for i, c := range Colors {
		out[i] = regexp.MustCompile(`\b` + c + `\b`)
	}
	return out
}()

func (p *fallbackParser) color() string {
	for i, re := range colorRes {
		if re.MatchString(p.bare) {
			return Colors[i]
		}
	}
	return DefaultColor
}

func (p *fallbackParser) parseModify(in *EditIntent) {
	in.TargetType = Section
	for _, re := range []*regexp.Regexp{modifySectionRe, makeBetterRe, modifyToRe, modifyBareRe} {
		m := re.FindStringSubmatch(p.text)
		if m == nil {
			continue
		}
		in.Target = cleanSection(m[1])
		if len(m) > 2 {
			in.NewText = strings.TrimSpace(m[2])
		}
		break
	}
	if in.NewText == "" {
		in.NewText = p.text
	}
	in.SectionName = in.Target
}

func cleanSection(s string) string {
	s = trimQuotes(s)
	s = sectionPrefixRe.ReplaceAllString(s, "")
	s = sectionSuffixRe.ReplaceAllString(s, "")
	return trimQuotes(strings.TrimRight(s, ".,;:!? "))
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) > 0 {
		r := []rune(s)
		first, last := r[0], r[len(r)-1]
		if len(r) >= 2 && slices.Contains([]rune(`"'“‘`), first) && slices.Contains([]rune(`"'”’`), last) {
			s = strings.TrimSpace(string(r[1 : len(r)-1]))
			continue
		}
		break
	}
	return s
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[len(fields)-1], `.,;:!?"'“”‘’()`)
}
