// Package chunker splits page-indexed document text into overlapping
// windows for embedding and retrieval.
package chunker

import (
	"strings"

	"paperqa/internal/chunkstore"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Split windows each page's text by rune count, never crossing a page
// boundary, and records the rune offset of each window within its page.
// Page 0 chunks are tagged as abstract when the metadata pass found an
// abstract span; everything else is body.
func Split(source string, pages []string, abstractOnFirstPage bool, size, overlap int) []chunkstore.Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	var chunks []chunkstore.Chunk
	for page, text := range pages {
		section := chunkstore.SectionBody
		if page == 0 && abstractOnFirstPage {
			section = chunkstore.SectionAbstract
		}

		runes := []rune(text)
		for start := 0; start < len(runes); {
			end := start + size
			if end > len(runes) {
				end = len(runes)
			}
			window := strings.TrimSpace(string(runes[start:end]))
			if window != "" {
				chunks = append(chunks, chunkstore.Chunk{
					Source:  source,
					Page:    page,
					Offset:  start,
					Section: section,
					Text:    window,
				})
			}
			if end == len(runes) {
				break
			}
			start += size - overlap
		}
	}
	return chunks
}
