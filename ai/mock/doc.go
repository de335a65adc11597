// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Summarizer,
// ai.DocumentNamer and ai.AIProvider for use in unit tests. The mocks allow
// tests to run without external AI service dependencies and enable controlled,
// deterministic behavior. Call counts are atomic so the mocks can sit behind
// worker pools.
//
// # Usage in Tests
//
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return nil, errors.New("service unavailable")
//	    })
//
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic 1536-length vectors based on text hash
//   - MockSummarizer: Uses the first line of content as the title
//   - MockDocumentNamer: Returns "mock_doc" / "mock topic"
package mock
