// Package parser turns the rendered text of a feed post into metadata and
// a normalized, markup-annotated document.
//
// Both the metadata heuristics and the formatter read from a single Rules
// table so that title detection cannot drift between them.
package parser

import (
	"strings"
	"unicode/utf8"
)

// Rules is the keyword table shared by ParseMetadata and Format.
type Rules struct {
	// TitleKeywords mark heading-like lines.
	TitleKeywords []string

	// Authors is the known-author allowlist, lowercase.
	Authors []string

	// TimeKeywords mark relative posted-time lines.
	TimeKeywords []string

	// LabelTerms mark section labels rendered in bold.
	LabelTerms []string

	// DeadlineTerm marks warning lines.
	DeadlineTerm string

	// Boilerplate lines are dropped from formatted content.
	Boilerplate []string

	// BulletPrefixes pass through unchanged.
	BulletPrefixes []string

	// LinkMarkers flag lines that carry a URL.
	LinkMarkers []string

	DefaultTitle   string
	TitleScanLines int
	TitleMaxLen    int
	HeadingMinLen  int
	HeadingMaxLen  int
}

// DefaultRules returns the rule table for the placement portal feed.
func DefaultRules() *Rules {
	return &Rules{
		TitleKeywords: []string{
			"open for applications",
			"hiring",
			"placement",
			"job",
			"internship",
			"hackathon",
			"campus connect",
			"webinar",
		},
		Authors: []string{
			"anurag srivastava",
			"anita marwaha",
			"vinod kumar",
			"archita kumar",
			"deeksha jain",
			"placement team",
			"sanjay dawar",
			"breg. sanjay dawar",
		},
		TimeKeywords: []string{
			"days ago",
			"hours ago",
			"minutes ago",
			"yesterday",
			"today",
			"hrs",
			"mins",
			"ago",
		},
		LabelTerms:     []string{"eligibility", "process", "benefits"},
		DeadlineTerm:   "deadline",
		Boilerplate:    []string{"See Less", "·"},
		BulletPrefixes: []string{"•", "-"},
		LinkMarkers:    []string{"http", "www."},
		DefaultTitle:   "Untitled Post",
		TitleScanLines: 5,
		TitleMaxLen:    100,
		HeadingMinLen:  20,
		HeadingMaxLen:  150,
	}
}

// HasTitleKeyword reports whether line contains any title keyword, ignoring case.
func (r *Rules) HasTitleKeyword(line string) bool {
	return containsAny(strings.ToLower(line), r.TitleKeywords)
}

// IsTitleLine is the metadata title test: a keyword and more than HeadingMinLen runes.
func (r *Rules) IsTitleLine(line string) bool {
	return r.HasTitleKeyword(line) && utf8.RuneCountInString(line) > r.HeadingMinLen
}

// IsHeading is the formatter heading test: a title line shorter than HeadingMaxLen runes.
func (r *Rules) IsHeading(line string) bool {
	return r.IsTitleLine(line) && utf8.RuneCountInString(line) < r.HeadingMaxLen
}

func (r *Rules) isBoilerplate(line string) bool {
	for _, b := range r.Boilerplate {
		if line == b {
			return true
		}
	}
	return false
}

func (r *Rules) isBullet(line string) bool {
	for _, p := range r.BulletPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// containsAny reports whether s contains any of the (lowercase) needles.
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
