package port

// Page is one page of extracted document text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor pulls raw text out of a source document, page by page.
type Extractor interface {
	Extract(path string) ([]Page, error)
}
