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


package mock

import "github.com/poiesic/docingest/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates the mock embedder, summarizer and namer.
type MockProvider struct {
	embedder   *MockEmbedder
	summarizer *MockSummarizer
	namer      *MockDocumentNamer
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Use GetMockEmbedder()/GetMockSummarizer()/GetMockNamer() to reach the
// concrete types for test assertions.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockSummarizer(), NewMockDocumentNamer())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
func NewMockProviderWithServices(embedder *MockEmbedder, summarizer *MockSummarizer, namer *MockDocumentNamer) *MockProvider {
	return &MockProvider{
		embedder:   embedder,
		summarizer: summarizer,
		namer:      namer,
	}
}

var _ ai.AIProvider = (*MockProvider)(nil)

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Summarizer returns the mock summarizer.
func (p *MockProvider) Summarizer() ai.Summarizer {
	return p.summarizer
}

// DocumentNamer returns the mock namer.
func (p *MockProvider) DocumentNamer() ai.DocumentNamer {
	return p.namer
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockSummarizer returns the underlying mock summarizer for test assertions.
func (p *MockProvider) GetMockSummarizer() *MockSummarizer {
	return p.summarizer
}

// GetMockNamer returns the underlying mock namer for test assertions.
func (p *MockProvider) GetMockNamer() *MockDocumentNamer {
	return p.namer
}
