package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
)

// Generation request types.
const (
	TypeOutlines = "outlines"
	TypeChapter  = "chapter"
)

const (
	DefaultChapters = 5
	MaxChapters     = 30
)

var ErrInvalidRequest = errors.New("invalid generation request")

// GenerateRequest is the body accepted by the generation endpoint.
type GenerateRequest struct {
	Type         string `json:"type" validate:"required,oneof=outlines chapter"`
	Idea         string `json:"idea,omitempty" validate:"max=5000"`
	Title        string `json:"title,omitempty" validate:"max=200"`
	Outline      string `json:"outline,omitempty" validate:"max=5000"`
	Language     string `json:"language,omitempty" validate:"max=40"`
	Chapters     int    `json:"chapters,omitempty" validate:"min=0,max=30"`
	BookType     string `json:"bookType,omitempty" validate:"max=60"`
	WritingStyle string `json:"writingStyle,omitempty" validate:"max=60"`
	Instruction  string `json:"instruction,omitempty" validate:"max=2000"`
	Previous     string `json:"previous,omitempty"`
}

// GenerateResponse is returned by the generation endpoint.
type GenerateResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Service turns generation requests into provider prompts.
type Service struct {
	provider Provider
	validate *validator.Validate
}

func NewService(provider Provider) *Service {
	return &Service{provider: provider, validate: validator.New()}
}

// Generate validates req and returns the generated text.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var prompt string
	switch req.Type {
	case TypeOutlines:
		if strings.TrimSpace(req.Idea) == "" {
			return "", fmt.Errorf("%w: idea is required", ErrInvalidRequest)
		}
		if req.Chapters == 0 {
			req.Chapters = DefaultChapters
		}
		prompt = outlinePrompt(req)
	case TypeChapter:
		if strings.TrimSpace(req.Title) == "" {
			return "", fmt.Errorf("%w: title is required", ErrInvalidRequest)
		}
		prompt = chapterPrompt(req)
	}

	content, err := s.provider.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		Temperature:  0.8,
	})
	if err != nil {
		log.Errorf("[Generation] %s request failed: %v", req.Type, err)
		return "", err
	}
	return strings.TrimSpace(content), nil
}
