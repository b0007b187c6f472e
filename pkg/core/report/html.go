package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var htmlConverter = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// RenderHTML converts a markdown note to an HTML fragment. The Table
// extension is required: every note leans on pipe tables.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := htmlConverter.Convert([]byte(CleanMarkdown(markdown)), &buf); err != nil {
		return "", fmt.Errorf("markdown rendering failed: %w", err)
	}
	return buf.String(), nil
}

// CleanMarkdown strips conversational filler and outer markdown code blocks.
// AI commentary tends to arrive wrapped in ```markdown fences; rendering
// needs the bare document.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)

	if strings.HasPrefix(cleaned, "```markdown") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```markdown")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	} else if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	return cleaned
}

// Validate checks that the input parses to a non-empty markdown document.
// Goldmark is very permissive, so this is a structural sanity check, not a
// linter.
func Validate(markdown string) error {
	cleaned := CleanMarkdown(markdown)
	if cleaned == "" {
		return fmt.Errorf("empty markdown document")
	}
	doc := goldmark.DefaultParser().Parse(text.NewReader([]byte(cleaned)))
	if doc == nil || !doc.HasChildren() {
		return fmt.Errorf("markdown did not parse to any block")
	}
	return nil
}
