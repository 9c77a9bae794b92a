package mdutil

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Title returns the text of the first heading in markdown, or "" if there is none.
func Title(markdown string) string {
	reader := text.NewReader([]byte(markdown))
	doc := goldmark.New().Parser().Parse(reader)
	var title string
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := node.(*ast.Heading); ok {
			title = strings.TrimSpace(string(h.Text(reader.Source())))
			if title != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return title
}

// TitleOr falls back to the first non-empty line, cut to max runes, then to fallback.
func TitleOr(markdown string, max int, fallback string) string {
	if t := Title(markdown); t != "" {
		return t
	}
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); max > 0 && len(r) > max {
			return string(r[:max]) + "..."
		}
		return line
	}
	return fallback
}
