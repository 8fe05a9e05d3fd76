package director

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/app/repository"
	"github.com/ManuelReschke/BookForge/internal/pkg/credits"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
	"github.com/ManuelReschke/BookForge/internal/pkg/generation"
	"github.com/ManuelReschke/BookForge/internal/pkg/outline"
)

// DefaultCost is charged per director message.
const DefaultCost = 6

const maxContextRunes = 4000

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrEmptyMessage        = errors.New("message is required")
	ErrChapterNotFound     = errors.New("chapter not found")
	ErrInvalidProject      = errors.New("invalid project")
)

var revisePattern = regexp.MustCompile(`(?i)^\s*revise\s+chapter\s+(\d+)\s*[:.,-]?\s*(.*)$`)

// CreateProjectInput is the body for a new director project.
type CreateProjectInput struct {
	Title        string `json:"title"`
	Idea         string `json:"idea"`
	Language     string `json:"language"`
	BookType     string `json:"bookType"`
	WritingStyle string `json:"writingStyle"`
}

// Service runs director mode: every message is charged first, then turned
// into a new or revised chapter.
type Service struct {
	repo     repository.DirectorRepository
	ledger   *credits.Ledger
	provider generation.Provider
	cost     int
	validate *validator.Validate
}

func NewService(repo repository.DirectorRepository, ledger *credits.Ledger, provider generation.Provider, cost int) *Service {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Service{repo: repo, ledger: ledger, provider: provider, cost: cost, validate: validator.New()}
}

// NewServiceFromEnv reads DIRECTOR_COST.
func NewServiceFromEnv(repo repository.DirectorRepository, ledger *credits.Ledger, provider generation.Provider) *Service {
	return NewService(repo, ledger, provider, env.GetEnvInt("DIRECTOR_COST", DefaultCost))
}

// Cost returns the credits charged per message.
func (s *Service) Cost() int {
	return s.cost
}

func (s *Service) CreateProject(ctx context.Context, userID string, in CreateProjectInput) (*models.DirectorProject, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, credits.ErrNotAuthenticated
	}
	project := &models.DirectorProject{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        strings.TrimSpace(in.Title),
		Idea:         strings.TrimSpace(in.Idea),
		Language:     orDefault(in.Language, "English"),
		BookType:     strings.TrimSpace(in.BookType),
		WritingStyle: strings.TrimSpace(in.WritingStyle),
	}
	if err := s.validate.Struct(project); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	if err := s.repo.CreateProject(project); err != nil {
		return nil, err
	}
	project.Chapters = []models.DirectorChapter{}
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, userID, projectID string) (*models.DirectorProject, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, credits.ErrNotAuthenticated
	}
	return s.repo.GetProject(userID, projectID)
}

// SendMessage charges the director cost, generates the next chapter or
// revises chapter N when the message reads "revise chapter N ...", stores
// it and returns the updated project. Credits are refunded when generation
// fails after the charge.
func (s *Service) SendMessage(ctx context.Context, userID, projectID, message string) (*models.DirectorProject, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	project, err := s.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	target, instruction, revising, err := s.resolveTarget(project, message)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Deduct(ctx, userID, s.cost, models.TransactionDirectorMode,
		fmt.Sprintf("Director mode: %s, chapter %d", project.Title, target.Number))
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, ErrInsufficientCredits
	}

	chapter, err := s.generate(ctx, project, target, instruction, revising)
	if err == nil {
		err = s.repo.SaveChapter(chapter)
	}
	if err != nil {
		if _, rerr := s.ledger.Add(ctx, userID, s.cost, models.TransactionManualAdjustment,
			fmt.Sprintf("Refund: director generation failed for chapter %d", target.Number)); rerr != nil {
			log.Errorf("[Director] Refund of %d credits for user %s failed: %v", s.cost, userID, rerr)
		}
		return nil, fmt.Errorf("director generation: %w", err)
	}

	log.Infof("[Director] Project %s: stored chapter %d for user %s", project.ID, chapter.Number, userID)
	return s.repo.GetProject(userID, projectID)
}

func (s *Service) resolveTarget(project *models.DirectorProject, message string) (models.DirectorChapter, string, bool, error) {
	if m := revisePattern.FindStringSubmatch(message); m != nil {
		n, _ := strconv.Atoi(m[1])
		for _, ch := range project.Chapters {
			if ch.Number == n {
				instruction := strings.TrimSpace(m[2])
				if instruction == "" {
					instruction = "Improve this chapter."
				}
				return ch, instruction, true, nil
			}
		}
		return models.DirectorChapter{}, "", false, ErrChapterNotFound
	}

	next := models.DirectorChapter{ProjectID: project.ID, Number: 1}
	if n := len(project.Chapters); n > 0 {
		next.Number = project.Chapters[n-1].Number + 1
	}
	return next, message, false, nil
}

func (s *Service) generate(ctx context.Context, project *models.DirectorProject, target models.DirectorChapter, instruction string, revising bool) (*models.DirectorChapter, error) {
	text, err := s.provider.Complete(ctx, generation.CompletionRequest{
		SystemPrompt: "You are a ghostwriter following the directions of the book's author.",
		Prompt:       buildPrompt(project, target, instruction, revising),
		Temperature:  0.8,
	})
	if err != nil {
		return nil, err
	}

	title := target.Title
	heading, content, ok := outline.SplitHeading(text)
	if ok && heading != "" {
		title = heading
	}
	if title == "" {
		title = fmt.Sprintf("Chapter %d", target.Number)
	}
	if content == "" {
		return nil, generation.ErrEmptyCompletion
	}

	return &models.DirectorChapter{
		ProjectID:   project.ID,
		Number:      target.Number,
		Title:       title,
		Content:     content,
		Instruction: instruction,
	}, nil
}

func buildPrompt(project *models.DirectorProject, target models.DirectorChapter, instruction string, revising bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book: %s\nIdea: %s\nLanguage: %s\n", project.Title, project.Idea, project.Language)
	if project.BookType != "" {
		fmt.Fprintf(&b, "Book type: %s\n", project.BookType)
	}
	if project.WritingStyle != "" {
		fmt.Fprintf(&b, "Writing style: %s\n", project.WritingStyle)
	}

	if revising {
		fmt.Fprintf(&b, "\nRevise chapter %d \"%s\" following this direction: %s\n", target.Number, target.Title, instruction)
		fmt.Fprintf(&b, "\nCurrent text:\n%s\n", tail(target.Content, maxContextRunes))
	} else {
		if n := len(project.Chapters); n > 0 {
			prev := project.Chapters[n-1]
			fmt.Fprintf(&b, "\nPrevious chapter %d \"%s\" ended:\n%s\n", prev.Number, prev.Title, tail(prev.Content, maxContextRunes))
		}
		fmt.Fprintf(&b, "\nWrite chapter %d following this direction: %s\n", target.Number, instruction)
	}
	fmt.Fprintf(&b, "\nStart with the line \"Chapter %d: <title>\" followed by the chapter text.", target.Number)
	return b.String()
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
