package crawl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRunNumber(t *testing.T) {
	dir := t.TempDir()

	n, err := NextRunNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, name := range []string{"markdown-3.md", "markdown-12.md", "markdown-x.md", "notes.md", "markdown-40.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	n, err = NextRunNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	n, err = NextRunNumber(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewArtifact_StrictlyIncreasing(t *testing.T) {
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 3; i++ {
		w, err := NewArtifact(dir)
		require.NoError(t, err)
		paths = append(paths, w.Path())
		require.NoError(t, w.Close())
	}
	assert.Equal(t, []string{
		filepath.Join(dir, "markdown-1.md"),
		filepath.Join(dir, "markdown-2.md"),
		filepath.Join(dir, "markdown-3.md"),
	}, paths)
}

func TestNewArtifact_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "documents")
	w, err := NewArtifact(dir)
	require.NoError(t, err)
	defer w.Close()
	assert.FileExists(t, filepath.Join(dir, "markdown-1.md"))
}

func TestNewArtifact_ConcurrentRunsGetDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	const runs = 8

	paths := make([]string, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := NewArtifact(dir)
			if !assert.NoError(t, err) {
				return
			}
			paths[i] = w.Path()
			_ = w.Close()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate artifact %s", p)
		seen[p] = true
	}
}

func TestArtifactWriter_BlockFormat(t *testing.T) {
	w, err := NewArtifact(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Append("https://docs.test/a", "# A\n\nbody"))
	require.NoError(t, w.Append("https://docs.test/b", "B"))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"\n\n<!-- Source: https://docs.test/a -->\n\n# A\n\nbody\n"+
			"\n\n<!-- Source: https://docs.test/b -->\n\nB\n",
		string(data))
	assert.Equal(t, 2, w.Blocks())

	assert.ErrorIs(t, w.Append("https://docs.test/c", "C"), ErrArtifactClosed)
}

func TestArtifactWriter_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	w, err := NewArtifact(t.TempDir())
	require.NoError(t, err)

	const writers = 20
	body := strings.Repeat("line of page text\n", 200)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Append(fmt.Sprintf("https://docs.test/%d", i), body))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	blocks := strings.Split(string(data), "\n\n<!-- Source: ")
	require.Len(t, blocks, writers+1)
	assert.Empty(t, blocks[0])
	for _, b := range blocks[1:] {
		header, rest, ok := strings.Cut(b, " -->\n\n")
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(header, "https://docs.test/"))
		assert.Equal(t, body+"\n", rest)
	}
}
