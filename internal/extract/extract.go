// Package extract pulls plain text out of uploaded PDFs. It is a stateless
// transform; quota is charged later, on the notes request itself.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrInvalidPageRange = errors.New("invalid page range")

// PDFText extracts the text of pages [startPage, endPage] (1-based,
// inclusive) and returns it together with the effective range. An endPage
// past the document is clamped to the last page.
func PDFText(data []byte, startPage, endPage int) (string, int, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	from := startPage
	if from < 1 {
		from = 1
	}
	to := endPage
	if to > reader.NumPage() {
		to = reader.NumPage()
	}
	if from > to {
		return "", 0, 0, ErrInvalidPageRange
	}

	var sb strings.Builder
	for i := from; i <= to; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, 0, fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), from, to, nil
}
