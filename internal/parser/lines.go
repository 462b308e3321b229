package parser

import "strings"

// MinMeaningfulLines is the smallest number of lines a block needs to be
// considered a post.
const MinMeaningfulLines = 3

// Lines splits rendered text into trimmed, non-empty lines, discarding
// structural marker lines such as "=== Content Block 3 ===".
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || isStructuralMarker(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isStructuralMarker(line string) bool {
	return strings.HasPrefix(line, "===") && strings.Contains(line, "Content Block")
}
