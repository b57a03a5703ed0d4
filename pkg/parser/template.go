package parser

import "strings"

// TemplateHole is one {{ ... }} placeholder found in a template string.
type TemplateHole struct {
	// Expression is the trimmed text between the braces. Empty when the
	// hole contained only whitespace (an "empty hole"), which the
	// orchestrator skips without parsing, leaving the hole's original text
	// unchanged in the output.
	Expression string
	// Start and End are byte offsets of the opening "{{" and the character
	// immediately after the closing "}}", respectively, in the original
	// source. Used to splice evaluated results back into the literal text.
	Start, End int
}

// SplitTemplate scans source for non-nested {{ ... }} holes using
// non-greedy matching: scanning stops at the first "}}" after each "{{"
// rather than the last, and a "{{" found before the matching "}}" is a
// syntax error rather than the start of a nested hole. This matches
// spec.md §4.D's template grammar exactly.
func SplitTemplate(source string) ([]TemplateHole, error) {
	var holes []TemplateHole
	i := 0
	for i < len(source) {
		open := strings.Index(source[i:], "{{")
		if open < 0 {
			break
		}
		open += i
		closeRel := strings.Index(source[open+2:], "}}")
		if closeRel < 0 {
			return nil, errUnclosedHole(open)
		}
		closeIdx := open + 2 + closeRel
		inner := source[open+2 : closeIdx]
		if nested := strings.Index(inner, "{{"); nested >= 0 {
			return nil, errUnclosedHole(open + 2 + nested)
		}
		holes = append(holes, TemplateHole{
			Expression: strings.TrimSpace(inner),
			Start:      open,
			End:        closeIdx + 2,
		})
		i = closeIdx + 2
	}
	return holes, nil
}

// HasTemplateHoles reports whether source contains at least one {{ }} pair,
// without doing full validation. Used by the metadata extractor to set
// ParsedExpression.HasTemplates cheaply for the common direct-mode case.
func HasTemplateHoles(source string) bool {
	return strings.Contains(source, "{{") && strings.Contains(source, "}}")
}

type templateError struct {
	pos int
}

func (e *templateError) Error() string {
	return "unclosed template hole"
}

func errUnclosedHole(pos int) error {
	return &templateError{pos: pos}
}

// Position returns the byte offset where the unclosed hole begins.
func (e *templateError) Position() int {
	return e.pos
}
