package utils

import (
	"regexp"
	"strings"
)

var unsafeFileChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)

// SafeFileName turns a controller-supplied name into a single path element
func SafeFileName(name string) string {
	cleaned := strings.TrimSpace(unsafeFileChars.ReplaceAllString(name, "_"))
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return "unnamed"
	}
	return cleaned
}
