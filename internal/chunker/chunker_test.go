package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/chunkstore"
)

func TestSplitWindowsAndOverlap(t *testing.T) {
	page := strings.Repeat("a", 2500)
	chunks := Split("paper.pdf", []string{page}, false, 1000, 200)

	// Windows start at 0, 800 and 1600; the last one absorbs the tail.
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 800, chunks[1].Offset)
	assert.Equal(t, 1600, chunks[2].Offset)
	assert.Len(t, chunks[0].Text, 1000)
	assert.Len(t, chunks[2].Text, 900)
}

func TestSplitPreservesPageBoundaries(t *testing.T) {
	pages := []string{
		strings.Repeat("a", 1200),
		strings.Repeat("b", 300),
	}
	chunks := Split("paper.pdf", pages, false, 1000, 200)

	for _, c := range chunks {
		assert.NotContains(t, c.Text, "ab", "a window must not cross pages")
	}
	assert.Equal(t, 0, chunks[0].Page)
	last := chunks[len(chunks)-1]
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, 0, last.Offset, "offsets restart per page")
}

func TestSplitSectionTagging(t *testing.T) {
	pages := []string{"first page text", "second page text"}

	withAbstract := Split("paper.pdf", pages, true, 1000, 200)
	require.Len(t, withAbstract, 2)
	assert.Equal(t, chunkstore.SectionAbstract, withAbstract[0].Section)
	assert.Equal(t, chunkstore.SectionBody, withAbstract[1].Section)

	withoutAbstract := Split("paper.pdf", pages, false, 1000, 200)
	for _, c := range withoutAbstract {
		assert.Equal(t, chunkstore.SectionBody, c.Section)
	}
}

func TestSplitSkipsBlankPages(t *testing.T) {
	chunks := Split("paper.pdf", []string{"   \n  ", "real content"}, false, 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "real content", chunks[0].Text)
}

func TestSplitSourceCarried(t *testing.T) {
	chunks := Split("paper.pdf", []string{"text"}, false, 0, -1)
	require.Len(t, chunks, 1)
	assert.Equal(t, "paper.pdf", chunks[0].Source)
}
