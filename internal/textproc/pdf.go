package textproc

import (
	"errors"
	"strings"
)

// ErrPDFUnavailable is reported when no PDF extractor is wired in or the
// extractor itself fails.
var ErrPDFUnavailable = errors.New("pdf extraction unavailable")

// PDFDocument is the extractor output: one joined text string per page.
type PDFDocument struct {
	Pages     []string
	PageCount int
}

// PDFExtractor is the injected PDF text extraction collaborator. The core
// never bundles an extractor; the composition root decides which one to wire.
type PDFExtractor interface {
	Extract(data []byte) (*PDFDocument, error)
}

// ExtractPDFText runs the extractor and joins the pages into one document,
// translating any failure into ErrPDFUnavailable for the authoring surface.
func ExtractPDFText(ex PDFExtractor, data []byte) (string, error) {
	if ex == nil {
		return "", ErrPDFUnavailable
	}
	doc, err := ex.Extract(data)
	if err != nil {
		return "", errors.Join(ErrPDFUnavailable, err)
	}
	return strings.Join(doc.Pages, "\n\n"), nil
}
