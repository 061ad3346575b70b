package pptdeck

import (
	"regexp"
	"strings"

	"github.com/connctd/pptdeck/pptx"
)

// emphasisPattern matches **bold** or *italic* spans, shortest match first.
// The double marker alternative has to come first, otherwise "**a**" would
// be split into two empty italic spans.
var emphasisPattern = regexp.MustCompile(`\*\*.*?\*\*|\*.*?\*`)

// StyledRun is a contiguous span of text with uniform emphasis.
type StyledRun struct {
	Text   string
	Bold   bool
	Italic bool
}

// ParseFormattedText splits s into runs at its **bold** and *italic* spans.
// Markers are stripped, spans never nest and an unmatched "*" stays literal.
// Runs with empty text, including zero length spans like "****", are
// dropped.
func ParseFormattedText(s string) []StyledRun {
	var runs []StyledRun
	emit := func(r StyledRun) {
		if r.Text != "" {
			runs = append(runs, r)
		}
	}

	last := 0
	for _, m := range emphasisPattern.FindAllStringIndex(s, -1) {
		emit(StyledRun{Text: s[last:m[0]]})
		span := s[m[0]:m[1]]
		if strings.HasPrefix(span, "**") && len(span) >= 4 {
			emit(StyledRun{Text: span[2 : len(span)-2], Bold: true})
		} else {
			emit(StyledRun{Text: span[1 : len(span)-1], Italic: true})
		}
		last = m[1]
	}
	emit(StyledRun{Text: s[last:]})
	return runs
}

// pptxRuns converts formatter output into encoder runs.
func pptxRuns(runs []StyledRun) []pptx.Run {
	out := make([]pptx.Run, 0, len(runs))
	for _, r := range runs {
		out = append(out, pptx.Run{Text: r.Text, Bold: r.Bold, Italic: r.Italic})
	}
	return out
}

// itemRuns formats bullet text, or keeps it as one plain run when literal.
func itemRuns(s string, literal bool) []pptx.Run {
	if !literal {
		return pptxRuns(ParseFormattedText(s))
	}
	if s == "" {
		return nil
	}
	return []pptx.Run{{Text: s}}
}
