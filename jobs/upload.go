package jobs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const maxNameAttempts = 10000

// SanitizeFilename reduces an uploaded name to its base name. Both slash and
// backslash count as separators. Empty names, "." and ".." are rejected.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := strings.TrimSpace(path.Base(name))
	switch {
	case base == "", base == ".", base == "..", base == "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	case strings.ContainsRune(base, 0):
		return "", fmt.Errorf("%w: contains NUL", ErrInvalidFilename)
	}
	return base, nil
}

// candidateName returns name for n == 0 and "<stem> (<n>)<ext>" otherwise.
func candidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

// SaveUpload writes r to dir under the sanitized name, adding the smallest
// free " (n)" suffix on collision. It returns the path written.
func SaveUpload(dir, name string, r io.Reader) (string, error) {
	base, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	for n := 0; n < maxNameAttempts; n++ {
		target := filepath.Join(dir, candidateName(base, n))
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		_, err = io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(target)
			return "", fmt.Errorf("write upload %s: %w", target, err)
		}
		return target, nil
	}
	return "", fmt.Errorf("%w: no free name for %q", ErrInvalidFilename, base)
}
