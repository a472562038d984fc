package service

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadContentPlainText(t *testing.T) {
	svc := newTestDocumentService(t)

	path := writeSourceFile(t, "notes.txt", "line one\nline two")
	content, err := svc.ReadContent(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", content)
}

func TestReadContentMarkdown(t *testing.T) {
	svc := newTestDocumentService(t)

	path := writeSourceFile(t, "notes.md", "# Heading\n\nBody text")
	content, err := svc.ReadContent(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n\nBody text", content)
}

func writeDocxFile(t *testing.T, paragraphs []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)

	body := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`
	_, err = doc.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return path
}

func TestReadContentDocxParagraphs(t *testing.T) {
	svc := newTestDocumentService(t)

	path := writeDocxFile(t, []string{"First paragraph", "Second paragraph"})
	content, err := svc.ReadContent(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph\n", content)
}

func TestReadContentLegacyDocReturnsEmpty(t *testing.T) {
	svc := newTestDocumentService(t)

	path := writeSourceFile(t, "legacy.doc", "binary-ish content")
	content, err := svc.ReadContent(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestReadContentMissingFile(t *testing.T) {
	svc := newTestDocumentService(t)

	_, err := svc.ReadContent(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
