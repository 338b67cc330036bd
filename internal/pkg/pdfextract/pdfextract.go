package pdfextract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractPages reads the PDF at path and returns its plain text page by
// page, in page order. A page without extractable text yields an empty
// string; an unreadable file yields an error.
func ExtractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf has no readable pages")
	}

	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unextractable page degrades to empty text rather than
			// failing the whole document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
