package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls []CompletionRequest
	reply string
	err   error
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func TestClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Chapter 1: Hi"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", "test-model")
	out, err := c.Complete(context.Background(), CompletionRequest{SystemPrompt: "sys", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1: Hi", out)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
}

func TestClient_CompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "").Complete(context.Background(), CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = NewClient(srv.URL, "key", "").Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestService_GenerateOutlines(t *testing.T) {
	p := &fakeProvider{reply: "  Chapter 1: A\nbody  "}
	s := NewService(p)

	out, err := s.Generate(context.Background(), GenerateRequest{Type: TypeOutlines, Idea: "a book about tea", Chapters: 3, Language: "German"})
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1: A\nbody", out)
	require.Len(t, p.calls, 1)
	assert.Contains(t, p.calls[0].Prompt, "exactly 3 chapters")
	assert.Contains(t, p.calls[0].Prompt, "Language: German")
	assert.Contains(t, p.calls[0].Prompt, "a book about tea")
}

func TestService_GenerateChapter(t *testing.T) {
	p := &fakeProvider{reply: "It was a dark night."}
	s := NewService(p)

	out, err := s.Generate(context.Background(), GenerateRequest{Type: TypeChapter, Title: "Night", Outline: "it gets dark", WritingStyle: "noir"})
	require.NoError(t, err)
	assert.Equal(t, "It was a dark night.", out)
	assert.Contains(t, p.calls[0].Prompt, `"Night"`)
	assert.Contains(t, p.calls[0].Prompt, "Writing style: noir")
}

func TestService_Validation(t *testing.T) {
	p := &fakeProvider{reply: "x"}
	s := NewService(p)

	tests := []GenerateRequest{
		{Type: "poem", Idea: "x"},
		{Type: TypeOutlines},
		{Type: TypeOutlines, Idea: "x", Chapters: MaxChapters + 1},
		{Type: TypeChapter},
	}
	for _, req := range tests {
		_, err := s.Generate(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "type=%q", req.Type)
	}
	assert.Empty(t, p.calls)
}

func TestService_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	s := NewService(&fakeProvider{err: boom})
	_, err := s.Generate(context.Background(), GenerateRequest{Type: TypeChapter, Title: "T"})
	assert.ErrorIs(t, err, boom)
}
