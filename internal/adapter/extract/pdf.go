// Package extract pulls per-page text out of PDF files by shelling out
// to pdftotext. Pages arrive separated by form-feed characters, which
// keeps the page attribution needed for citations.
package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"docchat/internal/port"
)

// CommandRunner executes an external command and returns its stdout.
// It is a seam for tests; the default implementation uses os/exec.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFExtractor extracts text from PDF documents via the pdftotext
// binary (poppler-utils).
type PDFExtractor struct {
	runner  CommandRunner
	timeout time.Duration
}

// NewPDFExtractor creates an extractor using the system pdftotext.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{runner: execRunner{}, timeout: 60 * time.Second}
}

// NewPDFExtractorWithRunner creates an extractor with a custom runner.
func NewPDFExtractorWithRunner(runner CommandRunner) *PDFExtractor {
	return &PDFExtractor{runner: runner, timeout: 60 * time.Second}
}

// Extract returns the text of each page of the PDF at path. A corrupt
// or unreadable PDF is an error; a readable PDF with no text is not.
func (e *PDFExtractor) Extract(path string) ([]port.Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("document not readable: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	// "-" writes to stdout; pdftotext separates pages with \f.
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("text extraction failed for %s: %w", path, err)
	}

	return splitPages(string(out)), nil
}

// splitPages turns pdftotext output into numbered pages. The trailing
// empty fragment produced by the final form feed is dropped.
func splitPages(out string) []port.Page {
	raw := strings.Split(out, "\f")
	pages := make([]port.Page, 0, len(raw))
	for i, text := range raw {
		text = strings.TrimRight(text, "\n ")
		if text == "" && i == len(raw)-1 {
			continue
		}
		pages = append(pages, port.Page{Number: i + 1, Text: text})
	}
	return pages
}
