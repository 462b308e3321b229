package parser

import "strings"

// Markup emitted by Format.
const (
	HeadingPrefix  = "## "
	DeadlinePrefix = "⚠️ DEADLINE: "
	LinkPrefix     = "🔗 "
)

// Format renders lines as the canonical post document. The first matching
// rule wins for each line; lines keep their original order.
//
// Format must only ever be given raw lines: its output is hashed for
// deduplication, and formatting already formatted text would add markup twice.
func (r *Rules) Format(lines []string) string {
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || r.isBoilerplate(line) {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case r.IsHeading(line):
			out = append(out, HeadingPrefix+line)
		case strings.Contains(lower, r.DeadlineTerm):
			out = append(out, DeadlinePrefix+line)
		case containsAny(lower, r.LabelTerms):
			out = append(out, "**"+line+":**")
		case r.isBullet(line):
			out = append(out, line)
		case containsAny(lower, r.LinkMarkers):
			out = append(out, LinkPrefix+line)
		default:
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}
