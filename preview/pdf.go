package preview

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LoadPages parses the PDF at path and returns its plain text page by page.
// The page count is authoritative even when individual pages yield no
// extractable text; those render as an empty page rather than failing the
// whole document.
func LoadPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if total < 1 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}
