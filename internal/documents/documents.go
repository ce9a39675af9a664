// Package documents handles the user-facing files: the CV text the run
// starts from and the cover letters it produces. PDF extraction is left to
// the caller; the assistant consumes pre-extracted text.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoadCV reads the CV text from the given file. The content is trimmed and
// must not be empty.
func LoadCV(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("cv file path is not configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading cv from %q: %w", path, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("cv file %q is empty", path)
	}

	return content, nil
}

// SaveLetter writes a cover letter into dir and returns the created file
// path. The label becomes part of the file name.
func SaveLetter(dir, label, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("cover letter content must not be empty")
	}

	if dir = strings.TrimSpace(dir); dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %q: %w", dir, err)
	}

	name := fmt.Sprintf("cover-letter-%s-%s.md", slugify(label), time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing cover letter to %q: %w", path, err)
	}

	return path, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "letter"
	}

	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}
