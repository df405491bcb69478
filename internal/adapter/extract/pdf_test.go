package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
}

func (m *mockRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return m.output, m.err
}

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0644))
	return path
}

func TestExtract_SplitsPages(t *testing.T) {
	runner := &mockRunner{output: []byte("page one text\n\fpage two text\n\fpage three text\n\f")}
	e := NewPDFExtractorWithRunner(runner)

	pages, err := e.Extract(writeTempPDF(t))
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "page one text", pages[0].Text)
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, "page two text", pages[1].Text)
	assert.Equal(t, 3, pages[2].Number)
}

func TestExtract_SinglePageNoTrailingFormFeed(t *testing.T) {
	runner := &mockRunner{output: []byte("only page")}
	e := NewPDFExtractorWithRunner(runner)

	pages, err := e.Extract(writeTempPDF(t))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "only page", pages[0].Text)
}

func TestExtract_EmptyDocument(t *testing.T) {
	runner := &mockRunner{output: []byte("")}
	e := NewPDFExtractorWithRunner(runner)

	pages, err := e.Extract(writeTempPDF(t))
	require.NoError(t, err)
	assert.Empty(t, pages, "empty output must not be an error")
}

func TestExtract_BlankMiddlePageKept(t *testing.T) {
	runner := &mockRunner{output: []byte("first\f\fthird\f")}
	e := NewPDFExtractorWithRunner(runner)

	pages, err := e.Extract(writeTempPDF(t))
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "", pages[1].Text)
	assert.Equal(t, 3, pages[2].Number)
}

func TestExtract_CommandFailure(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1")}
	e := NewPDFExtractorWithRunner(runner)

	_, err := e.Extract(writeTempPDF(t))
	assert.Error(t, err)
}

func TestExtract_MissingFile(t *testing.T) {
	e := NewPDFExtractorWithRunner(&mockRunner{output: []byte("x")})

	_, err := e.Extract(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}
