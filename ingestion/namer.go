package ingestion

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
)

const (
	// NamingSampleChunks is how many leading chunks are sent for naming.
	NamingSampleChunks = 4

	// MaxDocNameLength is the advisory upper bound on a document name.
	MaxDocNameLength = 40

	// PlaceholderDocName is used when naming fails.
	PlaceholderDocName = "untitled_doc"

	// PlaceholderTopic is used when naming fails.
	PlaceholderTopic = "untitled topic"
)

var docNamePattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// Namer derives one document name and topic from a document's opening chunks.
type Namer struct {
	namer     ai.DocumentNamer
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// NewNamer creates a namer.
func NewNamer(namer ai.DocumentNamer, opts ...Option) (*Namer, error) {
	if namer == nil {
		return nil, ErrNamerRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newNamer(namer, s), nil
}

func newNamer(namer ai.DocumentNamer, s *settings) *Namer {
	return &Namer{
		namer:     namer,
		attempts:  s.maxAttempts,
		baseDelay: s.retryBaseDelay,
		logger:    s.logger.With("component", "namer"),
	}
}

// Name returns the name and topic for the document the chunks belong to.
// It never fails: model errors and blank values produce placeholders.
func (n *Namer) Name(ctx context.Context, chunks []*core.Chunk) ai.DocumentName {
	samples := make([]string, 0, NamingSampleChunks)
	for _, c := range chunks[:min(len(chunks), NamingSampleChunks)] {
		samples = append(samples, c.Content)
	}

	var result ai.DocumentName
	err := RetryWithBackoff(ctx, n.logger, func() error {
		var err error
		result, err = n.namer.NameDocument(ctx, samples)
		return err
	}, n.attempts, n.baseDelay)
	if err != nil {
		n.logger.Error("error naming document", "err", err)
		return ai.DocumentName{DocName: PlaceholderDocName, TopicName: PlaceholderTopic}
	}

	result.DocName = strings.TrimSpace(result.DocName)
	result.TopicName = strings.TrimSpace(result.TopicName)
	if result.DocName == "" {
		result.DocName = PlaceholderDocName
	}
	if result.TopicName == "" {
		result.TopicName = PlaceholderTopic
	}

	if !ValidDocName(result.DocName) {
		n.logger.Warn("document name does not follow convention", "doc_name", result.DocName)
	}
	return result
}

// ValidDocName reports whether name is lowercase words joined by underscores
// and at most MaxDocNameLength characters.
func ValidDocName(name string) bool {
	return len(name) <= MaxDocNameLength && docNamePattern.MatchString(name)
}
