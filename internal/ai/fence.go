package ai

import "strings"

// StripFence removes a leading ```json line and a trailing ``` line from
// generator output, then trims surrounding whitespace. Text without a fence
// comes back trimmed and otherwise unchanged; line endings inside the body
// are kept as they are. The result is not checked for valid JSON.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 0 && strings.ToLower(strings.TrimSpace(lines[0])) == "```json" {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
