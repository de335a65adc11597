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


package core

import "fmt"

// ValidateChunk validates a Chunk before it is written to storage.
//
// Validation rules:
//   - DocumentID must be set
//   - Content must not be empty
//   - ChunkNumber must not be negative
//
// NOT validated (may be degraded by the enricher):
//   - Title and Summary (placeholders are valid)
//   - Embedding (a zero vector is valid)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.DocumentID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingDocumentID)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.ChunkNumber < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkNumber)
	}

	return nil
}

// ValidateDocument validates a Document row before it is written to storage.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingDocumentID)
	}

	if doc.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptySource)
	}

	return nil
}

// ZeroVector returns a zero-filled embedding of the given dimension.
func ZeroVector(dim int) []float32 {
	if dim <= 0 {
		dim = DefaultEmbeddingDimension
	}
	return make([]float32, dim)
}
