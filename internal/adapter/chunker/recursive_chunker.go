// Package chunker splits extracted document text into overlapping
// segments, preferring larger semantic boundaries (paragraphs, then
// sentences, then words) before cutting arbitrarily.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"docchat/internal/domain"
	"docchat/internal/port"
)

// separators are tried in order; the first one present in the text is
// used for splitting at that level.
var separators = []string{"\n\n", "\n", "。", ". ", " "}

type RecursiveChunker struct {
	size    int
	overlap int
}

func NewRecursiveChunker(size, overlap int) *RecursiveChunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &RecursiveChunker{size: size, overlap: overlap}
}

// Chunk splits each page independently so every chunk inherits the page
// it was extracted from. Empty input yields an empty result, not an
// error: ingesting a blank or image-only PDF must not crash the pipeline.
func (c *RecursiveChunker) Chunk(doc domain.Document, pages []port.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	seq := 0

	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}

		page := domain.PageUnknown
		if p.Number > 0 {
			page = strconv.Itoa(p.Number)
		}

		for _, piece := range c.Split(text) {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:     chunkID(doc.ID, page, seq),
				DocID:  doc.ID,
				Source: doc.Filename,
				Page:   page,
				Seq:    seq,
				Text:   piece,
			})
			seq++
		}
	}

	return chunks, nil
}

// Split splits raw text into segments of at most size runes (plus the
// carried overlap), with consecutive segments sharing roughly overlap
// runes of context.
func (c *RecursiveChunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.merge(c.pieces(text, separators))
}

// pieces recursively splits text on the coarsest separator present
// until every piece fits within the target size.
func (c *RecursiveChunker) pieces(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}

	sep := ""
	var rest []string
	for i, s := range seps {
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return c.hardSplit(text)
	}

	var out []string
	for _, part := range splitKeep(text, sep) {
		if utf8.RuneCountInString(part) > c.size {
			out = append(out, c.pieces(part, rest)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// merge packs pieces back into chunks close to the target size,
// seeding each new chunk with the overlap tail of the previous one.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	onlyTail := true // cur holds nothing but carried overlap

	for _, p := range pieces {
		pl := utf8.RuneCountInString(p)
		if curLen > 0 && !onlyTail && curLen+pl > c.size {
			chunk := cur.String()
			out = append(out, chunk)

			tail := overlapTail(chunk, c.overlap)
			cur.Reset()
			cur.WriteString(tail)
			curLen = utf8.RuneCountInString(tail)
			onlyTail = true
		}
		cur.WriteString(p)
		curLen += pl
		onlyTail = false
	}

	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}

// hardSplit cuts text into fixed-size rune windows. Last resort when no
// separator is available.
func (c *RecursiveChunker) hardSplit(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap
	if step <= 0 {
		step = c.size
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// splitKeep splits on sep, keeping the separator attached to the end of
// each piece so no characters are lost in reassembly.
func splitKeep(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// overlapTail returns the last n runes of s.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func chunkID(docID, page string, seq int) string {
	data := fmt.Sprintf("%s:%s:%d", docID, page, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

// ContentID derives a chunk ID from the chunk content instead of the
// ingestion run, so re-ingesting an identical document maps onto the
// same IDs. Used when deduplication is enabled.
func ContentID(chunk domain.Chunk) string {
	data := fmt.Sprintf("%s:%s:%s", chunk.Source, chunk.Page, chunk.Text)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
