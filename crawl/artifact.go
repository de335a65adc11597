package crawl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

// maxCreateAttempts bounds retries when another process claims the same run
// number first.
const maxCreateAttempts = 16

var artifactName = regexp.MustCompile(`^markdown-(\d+)\.md$`)

// ArtifactName returns the file name of crawl run n.
func ArtifactName(n int) string {
	return fmt.Sprintf("markdown-%d.md", n)
}

// NextRunNumber returns one more than the highest run number in dir, or 1 when
// dir holds no artifacts.
func NextRunNumber(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 1, nil
		}
		return 0, err
	}

	highest := 0
	for _, e := range entries {
		m := artifactName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// ArtifactWriter appends page blocks to one crawl artifact. Appends from
// concurrent goroutines never interleave.
type ArtifactWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	blocks int
}

// NewArtifact creates the next numbered artifact in dir. The file is created
// exclusively, so two runs never share a file.
func NewArtifact(dir string) (*ArtifactWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		n, err := NextRunNumber(dir)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, ArtifactName(n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &ArtifactWriter{path: path, file: f}, nil
	}
	return nil, fmt.Errorf("create artifact in %s: %d attempts raced with other runs", dir, maxCreateAttempts)
}

// Path returns the artifact's file path.
func (w *ArtifactWriter) Path() string {
	return w.path
}

// Blocks returns how many page blocks have been written.
func (w *ArtifactWriter) Blocks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.blocks
}

// Append writes one page block tagged with its source URL.
func (w *ArtifactWriter) Append(url, text string) error {
	block := "\n\n<!-- Source: " + url + " -->\n\n" + text + "\n"

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ErrArtifactClosed
	}
	if _, err := w.file.WriteString(block); err != nil {
		return fmt.Errorf("append %s: %w", url, err)
	}
	w.blocks++
	return nil
}

// Close closes the artifact. Safe to call more than once.
func (w *ArtifactWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
