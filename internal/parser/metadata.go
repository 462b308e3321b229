package parser

import "strings"

// Metadata holds the fields recovered from a post's raw lines.
type Metadata struct {
	Title      string
	Author     string
	PostedTime string
}

// ParseMetadata extracts title, author and posted time from lines. It never
// fails: a missing signal yields the default for that field.
func (r *Rules) ParseMetadata(lines []string) Metadata {
	md := Metadata{Title: r.DefaultTitle}

	scan := lines
	if len(scan) > r.TitleScanLines {
		scan = scan[:r.TitleScanLines]
	}
	for _, line := range scan {
		if r.IsTitleLine(line) {
			md.Title = truncateRunes(line, r.TitleMaxLen)
			break
		}
	}

	for _, line := range lines {
		if containsAny(strings.ToLower(line), r.Authors) {
			md.Author = strings.TrimSpace(line)
			break
		}
	}

	for _, line := range lines {
		if containsAny(strings.ToLower(line), r.TimeKeywords) {
			md.PostedTime = strings.TrimSpace(line)
			break
		}
	}

	return md
}
