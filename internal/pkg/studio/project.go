package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/internal/pkg/credits"
	"github.com/ManuelReschke/BookForge/internal/pkg/export"
	"github.com/ManuelReschke/BookForge/internal/pkg/generation"
	"github.com/ManuelReschke/BookForge/internal/pkg/outline"
)

// State is a step of the book workflow.
type State string

const (
	StateIdea     State = "idea"
	StateOutlines State = "outlines"
	StateWriting  State = "writing"
	StateBook     State = "book"
)

var (
	ErrEmptyIdea           = errors.New("please describe your book idea first")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidTransition   = errors.New("action not available in the current step")
	ErrChapterNotFound     = errors.New("chapter not found")
	ErrCoolingDown         = errors.New("please wait before generating the next chapter")
	ErrChaptersIncomplete  = errors.New("every chapter must be written first")
)

// API is the part of the BookForge API the workflow needs.
type API interface {
	GetBalance(ctx context.Context) (int, error)
	Deduct(ctx context.Context, amount int, transactionType, description string) (*credits.DeductResult, error)
	Generate(ctx context.Context, req generation.GenerateRequest) (string, error)
}

// Settings describe the book to plan.
type Settings struct {
	Idea         string
	Title        string
	Language     string
	BookType     string
	WritingStyle string
	Chapters     int
}

// Project drives one book from idea to finished manuscript. A project is
// used by one session at a time and is not safe for concurrent use.
type Project struct {
	api      API
	cooldown *Cooldown

	state    State
	settings Settings
	outlines []outline.Chapter
	chapters []outline.Chapter
	balance  int
	warning  string
}

// Option configures a Project.
type Option func(*Project)

// WithClock replaces the clock of the chapter cooldown.
func WithClock(now func() time.Time) Option {
	return func(p *Project) {
		p.cooldown = NewCooldown(ChapterCooldown, now)
	}
}

func NewProject(api API, opts ...Option) *Project {
	p := &Project{
		api:      api,
		cooldown: NewCooldown(ChapterCooldown, nil),
		state:    StateIdea,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Project) State() State { return p.state }

// Balance is the last balance shown to the user.
func (p *Project) Balance() int { return p.balance }

// Warning returns the message of the last accounting problem, if any.
func (p *Project) Warning() string { return p.warning }

// Cooldown exposes the chapter cooldown for display.
func (p *Project) Cooldown() *Cooldown { return p.cooldown }

func (p *Project) Settings() Settings { return p.settings }

// Outlines returns a copy of the generated outlines.
func (p *Project) Outlines() []outline.Chapter {
	return append([]outline.Chapter(nil), p.outlines...)
}

// Chapters returns a copy of the chapters being written.
func (p *Project) Chapters() []outline.Chapter {
	return append([]outline.Chapter(nil), p.chapters...)
}

// SetSettings replaces the book settings while still in the idea step.
func (p *Project) SetSettings(s Settings) error {
	if p.state != StateIdea {
		return ErrInvalidTransition
	}
	p.settings = s
	return nil
}

// Cost returns the credit price of generating the configured outlines.
func (p *Project) Cost() int {
	return credits.CostForChapters(p.chapterCount())
}

func (p *Project) chapterCount() int {
	n := p.settings.Chapters
	if n <= 0 {
		n = generation.DefaultChapters
	}
	if n > generation.MaxChapters {
		n = generation.MaxChapters
	}
	return n
}

// RefreshBalance reloads the balance from the server.
func (p *Project) RefreshBalance(ctx context.Context) (int, error) {
	balance, err := p.api.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	p.balance = balance
	return balance, nil
}

// GenerateOutlines moves from idea to outlines. The balance is checked
// before generation and charged after it; a failed charge keeps the outlines
// and leaves a warning, so the user may end up not being charged.
func (p *Project) GenerateOutlines(ctx context.Context) error {
	if p.state != StateIdea {
		return ErrInvalidTransition
	}
	idea := strings.TrimSpace(p.settings.Idea)
	if idea == "" {
		return ErrEmptyIdea
	}

	cost := p.Cost()
	balance, err := p.RefreshBalance(ctx)
	if err != nil {
		return err
	}
	if balance < cost {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, cost, balance)
	}

	text, err := p.api.Generate(ctx, generation.GenerateRequest{
		Type:         generation.TypeOutlines,
		Idea:         idea,
		Language:     p.settings.Language,
		Chapters:     p.chapterCount(),
		BookType:     p.settings.BookType,
		WritingStyle: p.settings.WritingStyle,
	})
	if err != nil {
		return fmt.Errorf("outline generation failed: %w", err)
	}

	p.outlines = outline.Parse(text)
	p.state = StateOutlines
	p.warning = ""

	res, err := p.api.Deduct(ctx, cost, models.TransactionChapterGeneration, fmt.Sprintf("Outline with %d chapters", p.chapterCount()))
	if err != nil || res == nil || !res.Success {
		log.Warnf("[Studio] Credit deduction of %d failed after outline generation: %v", cost, err)
		p.warning = fmt.Sprintf("Your outlines were generated, but deducting %d credits failed. Please contact support so we can reconcile your balance.", cost)
		return nil
	}
	p.balance = res.Credits
	return nil
}

// EditChapter changes a chapter while outlines or chapters are being worked on.
// Empty title or outline arguments keep the current values.
func (p *Project) EditChapter(id, title, outlineText, content string) error {
	var list []outline.Chapter
	switch p.state {
	case StateOutlines:
		list = p.outlines
	case StateWriting:
		list = p.chapters
	default:
		return ErrInvalidTransition
	}
	i := indexOf(list, id)
	if i < 0 {
		return ErrChapterNotFound
	}
	if title = strings.TrimSpace(title); title != "" {
		list[i].Title = title
	}
	if outlineText = strings.TrimSpace(outlineText); outlineText != "" {
		list[i].Outline = outlineText
	}
	if p.state == StateWriting && content != "" {
		list[i].Content = content
		list[i].IsWritten = true
	}
	return nil
}

// StartWriting moves from outlines to writing.
func (p *Project) StartWriting() error {
	if p.state != StateOutlines {
		return ErrInvalidTransition
	}
	p.chapters = append([]outline.Chapter(nil), p.outlines...)
	p.state = StateWriting
	return nil
}

// WriteChapter generates the text of one chapter and starts the cooldown.
func (p *Project) WriteChapter(ctx context.Context, id string) (outline.Chapter, error) {
	if p.state != StateWriting {
		return outline.Chapter{}, ErrInvalidTransition
	}
	if !p.cooldown.Ready() {
		return outline.Chapter{}, fmt.Errorf("%w (%ds)", ErrCoolingDown, p.cooldown.Remaining())
	}
	i := indexOf(p.chapters, id)
	if i < 0 {
		return outline.Chapter{}, ErrChapterNotFound
	}

	ch := p.chapters[i]
	req := generation.GenerateRequest{
		Type:         generation.TypeChapter,
		Title:        ch.Title,
		Outline:      ch.Outline,
		Language:     p.settings.Language,
		BookType:     p.settings.BookType,
		WritingStyle: p.settings.WritingStyle,
	}
	if i > 0 && p.chapters[i-1].IsWritten {
		req.Previous = tail(p.chapters[i-1].Content, 1500)
	}

	content, err := p.api.Generate(ctx, req)
	if err != nil {
		return outline.Chapter{}, fmt.Errorf("chapter generation failed: %w", err)
	}

	p.chapters[i].Content = content
	p.chapters[i].IsWritten = true
	p.cooldown.Start()
	return p.chapters[i], nil
}

// AllWritten reports whether every chapter has content.
func (p *Project) AllWritten() bool {
	if len(p.chapters) == 0 {
		return false
	}
	for _, ch := range p.chapters {
		if !ch.IsWritten {
			return false
		}
	}
	return true
}

// FinishBook moves from writing to book once every chapter is written.
func (p *Project) FinishBook() error {
	if p.state != StateWriting {
		return ErrInvalidTransition
	}
	if !p.AllWritten() {
		return ErrChaptersIncomplete
	}
	p.state = StateBook
	return nil
}

// Book returns the manuscript in exportable form.
func (p *Project) Book(author string) export.Book {
	title := strings.TrimSpace(p.settings.Title)
	if title == "" {
		title = firstLine(p.settings.Idea, 80)
	}
	book := export.Book{Title: title, Author: author, Language: p.settings.Language}
	for _, ch := range p.chapters {
		book.Chapters = append(book.Chapters, export.Chapter{Number: ch.Number, Title: ch.Title, Content: ch.Content})
	}
	return book
}

// Reset starts a new project. The balance is kept.
func (p *Project) Reset() {
	p.state = StateIdea
	p.settings = Settings{}
	p.outlines = nil
	p.chapters = nil
	p.warning = ""
}

func indexOf(list []outline.Chapter, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func firstLine(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > n {
		return strings.TrimSpace(string(r[:n]))
	}
	return s
}
