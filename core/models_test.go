package core

import (
	"errors"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestDocumentIDFor(t *testing.T) {
	a := DocumentIDFor("documents/a.md", "hello")
	if a != DocumentIDFor("documents/a.md", "hello") {
		t.Errorf("DocumentIDFor() is not deterministic")
	}
	if a == DocumentIDFor("documents/b.md", "hello") {
		t.Errorf("DocumentIDFor() ignored the source")
	}
	if a == DocumentIDFor("documents/a.md", "hello!") {
		t.Errorf("DocumentIDFor() ignored the text")
	}
}

func TestID_StringRoundTrip(t *testing.T) {
	id := IDFromContent("round trip")
	s := id.String()
	if len(s) != 16 {
		t.Fatalf("String() = %q, want 16 hex characters", s)
	}

	parsed, err := ParseID(s)
	if err != nil {
		t.Fatalf("ParseID() error = %v", err)
	}
	if parsed != id {
		t.Errorf("ParseID() = %d, want %d", parsed, id)
	}

	if _, err := ParseID("not-hex"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("ParseID() error = %v, want ErrInvalidID", err)
	}
}

func TestStoredDocument_Content(t *testing.T) {
	doc := &StoredDocument{
		Chunks: []*Chunk{
			{ChunkNumber: 0, Content: "first"},
			{ChunkNumber: 1, Content: "second"},
		},
	}
	if got := doc.Content(); got != "first\n\nsecond" {
		t.Errorf("Content() = %q", got)
	}
	if got := (&StoredDocument{}).Content(); got != "" {
		t.Errorf("Content() of empty document = %q", got)
	}
}
