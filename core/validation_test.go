package core

import (
	"errors"
	"testing"
)

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{DocumentID: 1, Content: "text", ChunkNumber: 0},
			wantErr: nil,
		},
		{
			name:    "valid chunk with zero embedding",
			chunk:   &Chunk{DocumentID: 1, Content: "text", Embedding: ZeroVector(4)},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "missing document id",
			chunk:   &Chunk{Content: "text"},
			wantErr: ErrMissingDocumentID,
		},
		{
			name:    "empty content",
			chunk:   &Chunk{DocumentID: 1},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "negative chunk number",
			chunk:   &Chunk{DocumentID: 1, Content: "text", ChunkNumber: -1},
			wantErr: ErrNegativeChunkNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	if err := ValidateDocument(&Document{ID: 1, Source: "documents/a.md"}); err != nil {
		t.Errorf("ValidateDocument() unexpected error = %v", err)
	}
	if err := ValidateDocument(nil); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("ValidateDocument(nil) error = %v", err)
	}
	if err := ValidateDocument(&Document{Source: "x"}); !errors.Is(err, ErrMissingDocumentID) {
		t.Errorf("ValidateDocument() error = %v, want ErrMissingDocumentID", err)
	}
	if err := ValidateDocument(&Document{ID: 1}); !errors.Is(err, ErrEmptySource) {
		t.Errorf("ValidateDocument() error = %v, want ErrEmptySource", err)
	}
}

func TestZeroVector(t *testing.T) {
	v := ZeroVector(0)
	if len(v) != DefaultEmbeddingDimension {
		t.Fatalf("ZeroVector(0) length = %d, want %d", len(v), DefaultEmbeddingDimension)
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("ZeroVector()[%d] = %f", i, x)
		}
	}
	if len(ZeroVector(8)) != 8 {
		t.Errorf("ZeroVector(8) wrong length")
	}
}
