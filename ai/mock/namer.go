package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/docingest/ai"
)

// MockDocumentNamer is a test double for ai.DocumentNamer.
type MockDocumentNamer struct {
	// NameDocumentFunc is called by NameDocument if set.
	// If nil, returns "mock_doc" / "mock topic".
	NameDocumentFunc func(ctx context.Context, samples []string) (ai.DocumentName, error)

	callCount atomic.Int64
}

var _ ai.DocumentNamer = (*MockDocumentNamer)(nil)

// NewMockDocumentNamer creates a mock namer with default behavior.
func NewMockDocumentNamer() *MockDocumentNamer {
	return &MockDocumentNamer{}
}

// WithNameDocumentFunc sets NameDocumentFunc and returns the mock for chaining.
func (m *MockDocumentNamer) WithNameDocumentFunc(fn func(ctx context.Context, samples []string) (ai.DocumentName, error)) *MockDocumentNamer {
	m.NameDocumentFunc = fn
	return m
}

// NameDocument returns the injected result or a fixed default.
func (m *MockDocumentNamer) NameDocument(ctx context.Context, samples []string) (ai.DocumentName, error) {
	m.callCount.Add(1)

	if m.NameDocumentFunc != nil {
		return m.NameDocumentFunc(ctx, samples)
	}
	return ai.DocumentName{DocName: "mock_doc", TopicName: "mock topic"}, nil
}

// CallCount returns the number of times NameDocument was called.
func (m *MockDocumentNamer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockDocumentNamer) Reset() {
	m.callCount.Store(0)
	m.NameDocumentFunc = nil
}
