// Package metadata derives best-effort document metadata from raw page text.
// Poor-quality input degrades to nil fields, never to an error.
package metadata

import (
	"regexp"
	"strings"
)

const (
	titleMaxLen    = 300
	abstractMaxLen = 1500
)

var (
	abstractMarker = regexp.MustCompile(`(?is)\babstract\b[:.\s]*(.*)`)
	// A numbered or well-known heading ends the abstract span.
	sectionHeader = regexp.MustCompile(`(?im)^\s*(\d+[.)]?\s+\S|introduction\b|keywords\b|index terms\b)`)
)

// Meta is the extraction result. Title and Abstract stay nil when the
// heuristics find nothing usable.
type Meta struct {
	Title     *string
	Abstract  *string
	PageCount int
}

// Extract runs the title and abstract heuristics over ordered page texts.
// The title comes from page 0; the abstract from page 0, falling back to
// page 1.
func Extract(pages []string) Meta {
	meta := Meta{PageCount: len(pages)}
	if len(pages) == 0 {
		return meta
	}

	if title := extractTitle(pages[0]); title != "" {
		meta.Title = &title
	}

	if abstract := extractAbstract(pages[0]); abstract != "" {
		meta.Abstract = &abstract
	} else if len(pages) > 1 {
		if abstract := extractAbstract(pages[1]); abstract != "" {
			meta.Abstract = &abstract
		}
	}
	return meta
}

// extractTitle returns the first non-empty line under the length ceiling.
func extractTitle(pageText string) string {
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > titleMaxLen {
			return ""
		}
		return line
	}
	return ""
}

// extractAbstract returns the text following an "abstract" marker, cut at
// the next section header, paragraph break, or the length ceiling.
func extractAbstract(pageText string) string {
	m := abstractMarker.FindStringSubmatch(pageText)
	if m == nil {
		return ""
	}
	span := m[1]

	if loc := sectionHeader.FindStringIndex(span); loc != nil {
		span = span[:loc[0]]
	}
	if idx := strings.Index(span, "\n\n"); idx >= 0 {
		span = span[:idx]
	}

	span = strings.TrimSpace(span)
	if len(span) > abstractMaxLen {
		span = strings.TrimSpace(span[:abstractMaxLen])
	}
	// Collapse the line breaks PDF extraction leaves inside the paragraph.
	return strings.Join(strings.Fields(span), " ")
}
