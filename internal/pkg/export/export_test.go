package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BookForge/app/models"
)

type fakePDF struct {
	html string
	err  error
}

func (f *fakePDF) HTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

func sampleBook() Book {
	return Book{
		Title:    "Tea & Time",
		Author:   "A. Writer",
		Language: "German",
		Chapters: []Chapter{
			{Number: 1, Title: "Leaves", Content: "First paragraph.\n\nSecond <b>paragraph</b>."},
			{Number: 2, Title: "Water", Content: "Only one."},
		},
	}
}

func TestExport_HTML(t *testing.T) {
	e, err := NewExporter(nil)
	require.NoError(t, err)

	doc, err := e.Export(context.Background(), sampleBook(), models.ExportFormatHTML)
	require.NoError(t, err)
	out := string(doc.Data)
	assert.Equal(t, ".html", doc.Extension)
	assert.Contains(t, out, `<html lang="de">`)
	assert.Contains(t, out, "Tea &amp; Time")
	assert.Contains(t, out, "<h2>Chapter 2: Water</h2>")
	assert.Contains(t, out, "<p>First paragraph.</p>")
	assert.Contains(t, out, "Second &lt;b&gt;paragraph&lt;/b&gt;.")
}

func TestExport_Doc(t *testing.T) {
	e, err := NewExporter(nil)
	require.NoError(t, err)

	doc, err := e.Export(context.Background(), sampleBook(), models.ExportFormatDoc)
	require.NoError(t, err)
	assert.Equal(t, "application/msword", doc.ContentType)
	assert.Contains(t, string(doc.Data), "urn:schemas-microsoft-com:office:word")
	assert.Contains(t, string(doc.Data), "<h2>Chapter 1: Leaves</h2>")
}

func TestExport_Markdown(t *testing.T) {
	e, err := NewExporter(nil)
	require.NoError(t, err)

	doc, err := e.Export(context.Background(), sampleBook(), models.ExportFormatMarkdown)
	require.NoError(t, err)
	want := "# Tea & Time\n\n*A. Writer*\n\n## Chapter 1: Leaves\n\nFirst paragraph.\n\nSecond <b>paragraph</b>.\n\n## Chapter 2: Water\n\nOnly one.\n"
	assert.Equal(t, want, string(doc.Data))
}

func TestExport_PDF(t *testing.T) {
	pdf := &fakePDF{}
	e, err := NewExporter(pdf)
	require.NoError(t, err)

	doc, err := e.Export(context.Background(), sampleBook(), models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Data), "%PDF"))
	assert.Contains(t, pdf.html, "<h1>Tea &amp; Time</h1>")

	pdf.err = errors.New("chrome gone")
	_, err = e.Export(context.Background(), sampleBook(), models.ExportFormatPDF)
	assert.Error(t, err)
}

func TestExport_Errors(t *testing.T) {
	e, err := NewExporter(nil)
	require.NoError(t, err)

	_, err = e.Export(context.Background(), sampleBook(), models.ExportFormatPDF)
	assert.ErrorIs(t, err, ErrPDFUnavailable)
	_, err = e.Export(context.Background(), sampleBook(), "epub")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = e.Export(context.Background(), Book{Title: "x"}, models.ExportFormatHTML)
	assert.ErrorIs(t, err, ErrEmptyBook)
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, Paragraphs("  a\r\n\r\nb c\n  \n\nd\n"))
	assert.Empty(t, Paragraphs("   "))
}

func TestBookFromProject(t *testing.T) {
	p := &models.DirectorProject{Title: "T", Language: "English", Chapters: []models.DirectorChapter{{Number: 1, Title: "One", Content: "x"}}}
	book := BookFromProject(p)
	require.Len(t, book.Chapters, 1)
	assert.Equal(t, "One", book.Chapters[0].Title)
}
