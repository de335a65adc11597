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


// Package ai provides abstractions for the model services used during ingestion.
//
// Three services are consumed:
//
//   - Embedder: Generates vector embeddings from text
//   - Summarizer: Produces a title and summary for a chunk
//   - DocumentNamer: Produces a short name and topic for a whole document
//
// AIProvider aggregates them for convenient initialization.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors in ai/openai return INTERFACE types so callers never
// couple to the concrete client:
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Mock constructors return CONCRETE types so tests can inject behavior and
// assert on call counts:
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	mockEmbed.WithEmbedTextFunc(...)
//	count := mockEmbed.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	sum, err := provider.Summarizer().Summarize(ctx, "https://example.com/a", chunkText)
package ai
