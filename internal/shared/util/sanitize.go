package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// SourceIDFromFileName derives a stable source document ID from an uploaded file
// name: the base name without path or traversal, whitespace collapsed to dashes.
func SourceIDFromFileName(name string) (string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	s = filepath.Base(s)
	if s == "." || s == "/" || strings.Contains(s, "..") {
		return "", errors.New("invalid file name")
	}
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
			dash = false
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "", errors.New("invalid file name")
	}
	return out, nil
}
