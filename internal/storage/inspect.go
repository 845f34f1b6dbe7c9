package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// PDFContentType is the type every payload is served with.
const PDFContentType = "application/pdf"

const sniffLen = 3072

// Inspection is what could be learned from a payload without trusting the client.
type Inspection struct {
	ContentType string
	PageCount   int
}

// IsPDF reports whether the sniffed content type is PDF.
func (i Inspection) IsPDF() bool {
	return i.ContentType == PDFContentType
}

// Inspect sniffs the content type of r and, for PDFs, counts pages.
// Unreadable PDFs report zero pages rather than an error.
func Inspect(r io.ReaderAt, size int64) (Inspection, error) {
	if size <= 0 {
		return Inspection{}, errors.New("empty payload")
	}

	head := make([]byte, min(size, sniffLen))
	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return Inspection{}, fmt.Errorf("read payload head: %w", err)
	}

	mtype := mimetype.Detect(head[:n])
	out := Inspection{ContentType: mtype.String()}
	if mtype.Is(PDFContentType) {
		out.ContentType = PDFContentType
		out.PageCount = countPages(r, size)
	}
	return out, nil
}

// countPages guards against the parser panicking on malformed input.
func countPages(r io.ReaderAt, size int64) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
