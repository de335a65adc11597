package openai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/docingest/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Summarizer implements ai.Summarizer using an OpenAI-compatible chat API.
type Summarizer struct {
	client       llms.Model
	contextChars int
	logger       *slog.Logger
}

var _ ai.Summarizer = (*Summarizer)(nil)

func newChatClient(config *ai.Config) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
}

func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}
	return newSummarizerWithModel(client, config.SummaryContextChars), nil
}

func newSummarizerWithModel(client llms.Model, contextChars int) *Summarizer {
	return &Summarizer{
		client:       client,
		contextChars: contextChars,
		logger:       slog.Default().With("component", "openai-summarizer"),
	}
}

// NewSummarizer creates a new summarizer using the provided configuration.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// Summarize asks the model for a title and summary of the opening of content.
func (s *Summarizer) Summarize(ctx context.Context, url, content string) (ai.Summary, error) {
	var resp map[string]json.RawMessage
	input := buildSummaryInput(url, content, s.contextChars)
	if err := completeJSON(ctx, s.client, s.logger, summaryPrompt, input, &resp); err != nil {
		return ai.Summary{}, err
	}
	fields, err := exactFields(resp, "title", "summary")
	if err != nil {
		return ai.Summary{}, err
	}
	return ai.Summary{Title: fields[0], Summary: fields[1]}, nil
}
