// Package summarizer turns a research topic into summary text using a hosted
// language model.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderVertex = "vertex"
	ProviderGroq   = "groq"
)

var (
	ErrRefusal      = errors.New("model refused to summarize")
	ErrEmptySummary = errors.New("model returned an empty summary")
)

// Summarizer produces summary text for a topic.
type Summarizer interface {
	Summarize(ctx context.Context, topic string) (string, error)
}

// Error is returned for any text generation failure.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s summarization failed: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config selects and configures a provider.
type Config struct {
	Provider    string
	ProjectID   string
	Region      string
	VertexModel string
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string
}

// New creates the Summarizer named by cfg.Provider. The returned close
// function releases provider clients and is never nil.
func New(ctx context.Context, cfg Config) (Summarizer, func() error, error) {
	switch cfg.Provider {
	case ProviderGroq:
		s, err := NewGroqSummarizer(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case ProviderVertex:
		s, err := NewVertexSummarizer(ctx, cfg.ProjectID, cfg.Region, cfg.VertexModel)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"as a large language model",
}

// checkSummary rejects empty output and refusals.
func checkSummary(provider, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Error{Provider: provider, Err: ErrEmptySummary}
	}
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", &Error{Provider: provider, Err: fmt.Errorf("%w: response contains %q", ErrRefusal, phrase)}
		}
	}
	return text, nil
}
