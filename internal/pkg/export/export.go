package export

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"
	"strings"

	"github.com/gofiber/template/html/v2"

	"github.com/ManuelReschke/BookForge/app/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrEmptyBook         = errors.New("book has no chapters")
	ErrPDFUnavailable    = errors.New("pdf rendering not configured")
)

// Chapter is one chapter of an exported book.
type Chapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Book is the exportable form of a finished project.
type Book struct {
	Title    string    `json:"title" validate:"required,max=200"`
	Author   string    `json:"author,omitempty" validate:"max=120"`
	Language string    `json:"language,omitempty"`
	Chapters []Chapter `json:"chapters" validate:"required,min=1,dive"`
}

// Document is a rendered export.
type Document struct {
	Data        []byte
	ContentType string
	Extension   string
}

// PDFConverter turns a standalone HTML document into PDF bytes.
type PDFConverter interface {
	HTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// Exporter renders books into the supported formats.
type Exporter struct {
	engine *html.Engine
	pdf    PDFConverter
}

// NewExporter loads the embedded templates. pdf may be nil, in which case
// pdf exports fail with ErrPDFUnavailable.
func NewExporter(pdf PDFConverter) (*Exporter, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load export templates: %w", err)
	}
	return &Exporter{engine: engine, pdf: pdf}, nil
}

// Export renders book as format.
func (e *Exporter) Export(ctx context.Context, book Book, format string) (*Document, error) {
	if len(book.Chapters) == 0 {
		return nil, ErrEmptyBook
	}

	switch format {
	case models.ExportFormatHTML:
		out, err := e.render("book", book)
		if err != nil {
			return nil, err
		}
		return &Document{Data: out, ContentType: "text/html; charset=utf-8", Extension: ".html"}, nil
	case models.ExportFormatDoc:
		out, err := e.render("word", book)
		if err != nil {
			return nil, err
		}
		return &Document{Data: out, ContentType: "application/msword", Extension: ".doc"}, nil
	case models.ExportFormatMarkdown:
		return &Document{Data: []byte(Markdown(book)), ContentType: "text/markdown; charset=utf-8", Extension: ".md"}, nil
	case models.ExportFormatPDF:
		if e.pdf == nil {
			return nil, ErrPDFUnavailable
		}
		out, err := e.render("book", book)
		if err != nil {
			return nil, err
		}
		data, err := e.pdf.HTMLToPDF(ctx, string(out))
		if err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		return &Document{Data: data, ContentType: "application/pdf", Extension: ".pdf"}, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

type chapterView struct {
	Number     int
	Title      string
	Paragraphs []string
}

type bookView struct {
	Title    string
	Author   string
	Lang     string
	Chapters []chapterView
}

func (e *Exporter) render(name string, book Book) ([]byte, error) {
	view := bookView{
		Title:  book.Title,
		Author: book.Author,
		Lang:   langCode(book.Language),
	}
	for _, ch := range book.Chapters {
		view.Chapters = append(view.Chapters, chapterView{
			Number:     ch.Number,
			Title:      ch.Title,
			Paragraphs: Paragraphs(ch.Content),
		})
	}

	var buf bytes.Buffer
	if err := e.engine.Render(&buf, name, view); err != nil {
		return nil, fmt.Errorf("render %s template: %w", name, err)
	}
	return buf.Bytes(), nil
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits chapter text on blank lines.
func Paragraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	parts := blankLines.Split(strings.TrimSpace(content), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Markdown renders book as a markdown document.
func Markdown(book Book) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", book.Title)
	if book.Author != "" {
		fmt.Fprintf(&b, "*%s*\n\n", book.Author)
	}
	for _, ch := range book.Chapters {
		fmt.Fprintf(&b, "## Chapter %d: %s\n\n", ch.Number, ch.Title)
		for _, p := range Paragraphs(ch.Content) {
			b.WriteString(p)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

var languageCodes = map[string]string{
	"english":    "en",
	"german":     "de",
	"spanish":    "es",
	"french":     "fr",
	"hindi":      "hi",
	"portuguese": "pt",
	"italian":    "it",
}

func langCode(language string) string {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(language))]; ok {
		return code
	}
	return "en"
}

// BookFromProject converts a director project into an exportable book.
func BookFromProject(p *models.DirectorProject) Book {
	book := Book{Title: p.Title, Language: p.Language}
	for _, ch := range p.Chapters {
		book.Chapters = append(book.Chapters, Chapter{Number: ch.Number, Title: ch.Title, Content: ch.Content})
	}
	return book
}
