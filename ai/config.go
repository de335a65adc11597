// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// Default model service settings.
const (
	DefaultHost                = "https://api.openai.com/v1"
	DefaultChatModel           = "gpt-4o-mini"
	DefaultEmbeddingModel      = "text-embedding-3-small"
	DefaultEmbeddingDimension  = 1536
	DefaultSummaryContextChars = 1000
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	EmbeddingHost string

	// ChatHost is the base URL for the chat completion service used for
	// titles, summaries and document names.
	ChatHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	EmbeddingModel string

	// ChatModel is the model identifier to use for chat completions.
	// Example: "gpt-4o-mini"
	ChatModel string

	// APIKey is sent as the bearer token. Local OpenAI-compatible servers
	// usually accept any value.
	APIKey string

	// EmbeddingDimension is the expected vector length. Vectors of any other
	// length are treated as failed embeddings.
	EmbeddingDimension int

	// SummaryContextChars is how much of a chunk is sent for title and
	// summary generation.
	SummaryContextChars int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingDimension sets the expected embedding length.
func WithEmbeddingDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimension = dim
	}
}

// WithSummaryContextChars sets how many characters of a chunk are summarized.
func WithSummaryContextChars(n int) ConfigOption {
	return func(c *Config) {
		c.SummaryContextChars = n
	}
}

// DefaultConfig returns a Config targeting the OpenAI API.
// Both services use the same host by default.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:       DefaultHost,
		ChatHost:            DefaultHost,
		EmbeddingModel:      DefaultEmbeddingModel,
		ChatModel:           DefaultChatModel,
		EmbeddingDimension:  DefaultEmbeddingDimension,
		SummaryContextChars: DefaultSummaryContextChars,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	    WithEmbeddingDimension(768),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ChatHost = normalizeHost(c.ChatHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.EmbeddingDimension < 1 {
		return errors.New("ai config: EmbeddingDimension must be positive")
	}
	if c.SummaryContextChars < 1 {
		return errors.New("ai config: SummaryContextChars must be positive")
	}
	return nil
}
