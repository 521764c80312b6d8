package diag

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// RenderFixItDoc renders a diagnostic's accumulated fix-its as an HTML
// snippet: a short Markdown document (the diagnostic kind as a heading,
// each fix-it's replacement text as a fenced code block) converted with
// goldmark. This is the ambient doc-surface side of a Fix-It — a driver
// wiring this package to an editor can show the rendered HTML directly
// in a hover or quick-fix panel instead of re-implementing Markdown
// rendering itself.
func RenderFixItDoc(rec Record) (string, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", rec.Kind)
	if len(rec.FixIts) == 0 {
		md.WriteString("_no suggested fix_\n")
	}
	for i, f := range rec.FixIts {
		switch {
		case f.IsRemoval:
			fmt.Fprintf(&md, "%d. remove the highlighted range\n", i+1)
		case f.IsInsertion:
			fmt.Fprintf(&md, "%d. insert:\n\n```\n%s\n```\n\n", i+1, f.Text)
		default:
			fmt.Fprintf(&md, "%d. replace with:\n\n```\n%s\n```\n\n", i+1, f.Text)
		}
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &html); err != nil {
		return "", fmt.Errorf("diag: rendering fix-it doc: %w", err)
	}
	return html.String(), nil
}
