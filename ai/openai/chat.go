package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrEmptyResponse is returned when the model produces no choices.
	ErrEmptyResponse = errors.New("model returned no choices")

	// ErrMissingKey is returned when a reply lacks a required key.
	ErrMissingKey = errors.New("model response missing required key")

	// ErrUnexpectedKey is returned when a reply carries keys beyond the required ones.
	ErrUnexpectedKey = errors.New("model response has unexpected key")
)

// parseAttempts is how many times a malformed JSON reply is re-requested.
const parseAttempts = 3

// completeJSON sends a system and user message in JSON mode and decodes the
// reply into out. Transport errors are returned at once. Replies that do not
// parse are re-requested up to parseAttempts times.
func completeJSON(ctx context.Context, client llms.Model, logger *slog.Logger, system, user string, out any) error {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			return ErrEmptyResponse
		}

		responseText := cleanResponse(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = err
			logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return nil
	}

	return fmt.Errorf("parse model response: %w", lastErr)
}

// cleanResponse strips markdown code fences and repairs common key quoting
// mistakes.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return repairJSON(s)
}

// exactFields requires obj to hold exactly keys, each a JSON string, and
// returns their trimmed values in key order.
func exactFields(obj map[string]json.RawMessage, keys ...string) ([]string, error) {
	var extra []string
	for k := range obj {
		if !slices.Contains(keys, k) {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedKey, strings.Join(extra, ", "))
	}

	values := make([]string, len(keys))
	for i, k := range keys {
		raw, ok := obj[k]
		if !ok || string(raw) == "null" {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, k)
		}
		if err := json.Unmarshal(raw, &values[i]); err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		values[i] = strings.TrimSpace(values[i])
	}
	return values, nil
}
