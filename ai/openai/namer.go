package openai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/docingest/ai"
	"github.com/tmc/langchaingo/llms"
)

// DocumentNamer implements ai.DocumentNamer using an OpenAI-compatible chat API.
type DocumentNamer struct {
	client llms.Model
	logger *slog.Logger
}

var _ ai.DocumentNamer = (*DocumentNamer)(nil)

func newDocumentNamer(config *ai.Config) (*DocumentNamer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}
	return newDocumentNamerWithModel(client), nil
}

func newDocumentNamerWithModel(client llms.Model) *DocumentNamer {
	return &DocumentNamer{
		client: client,
		logger: slog.Default().With("component", "openai-namer"),
	}
}

// NewDocumentNamer creates a new document namer using the provided configuration.
func NewDocumentNamer(config *ai.Config) (ai.DocumentNamer, error) {
	return newDocumentNamer(config)
}

// NameDocument asks the model for a doc name and topic from sample chunks.
func (n *DocumentNamer) NameDocument(ctx context.Context, samples []string) (ai.DocumentName, error) {
	var resp map[string]json.RawMessage
	if err := completeJSON(ctx, n.client, n.logger, namingPrompt, buildNamingInput(samples), &resp); err != nil {
		return ai.DocumentName{}, err
	}
	fields, err := exactFields(resp, "doc_name", "topic_name")
	if err != nil {
		return ai.DocumentName{}, err
	}
	return ai.DocumentName{DocName: fields[0], TopicName: fields[1]}, nil
}
