package domain

import "time"

type Document struct {
	ID       string
	Filename string
	Location string
	Uploaded time.Time
}

// Chunk is the atomic unit of retrieval: a bounded slice of extracted
// document text with the metadata needed to cite it back to its source.
type Chunk struct {
	ID     string `json:"id"`
	DocID  string `json:"doc_id"`
	Source string `json:"source"`
	Page   string `json:"page"`
	Seq    int    `json:"seq"`
	Text   string `json:"text"`
}

// PageUnknown is stored when the extractor could not attribute a chunk
// to a page. It is never the empty string.
const PageUnknown = "?"

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Citation identifies where an answer's supporting text came from.
type Citation struct {
	Source string `json:"source"`
	Page   string `json:"page"`
}

// Ref renders the citation in the canonical "<source>:<page>" form,
// e.g. "manual.pdf:12".
func (c Citation) Ref() string {
	return c.Source + ":" + c.Page
}

// Answer is the synthesized response for one query. Citations preserve
// the order of first appearance of the chunks that grounded the answer.
type Answer struct {
	Text      string
	Citations []Citation
}

type IndexStats struct {
	Entries   int
	Model     string
	Dimension int
}
