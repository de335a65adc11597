package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/poiesic/docingest/ai"
)

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, the title is the first line of content and the summary names the url.
	SummarizeFunc func(ctx context.Context, url, content string) (ai.Summary, error)

	callCount atomic.Int64
}

var _ ai.Summarizer = (*MockSummarizer)(nil)

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// WithSummarizeFunc sets SummarizeFunc and returns the mock for chaining.
func (m *MockSummarizer) WithSummarizeFunc(fn func(ctx context.Context, url, content string) (ai.Summary, error)) *MockSummarizer {
	m.SummarizeFunc = fn
	return m
}

// Summarize returns the injected result or a deterministic default.
func (m *MockSummarizer) Summarize(ctx context.Context, url, content string) (ai.Summary, error) {
	m.callCount.Add(1)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, url, content)
	}

	title, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	return ai.Summary{
		Title:   title,
		Summary: fmt.Sprintf("%d characters from %s", len(content), url),
	}, nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockSummarizer) Reset() {
	m.callCount.Store(0)
	m.SummarizeFunc = nil
}
