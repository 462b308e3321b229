package types

// Outcome classifies what happened to a single candidate block.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeDuplicate
	OutcomeSkipped
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// RunStats aggregates the outcomes of one ingestion pass.
type RunStats struct {
	// Processed counts every block that produced an outcome, including
	// skipped blocks and the duplicate that halted the pass.
	Processed int `json:"processed"`
	Saved     int `json:"saved"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`

	// Halted is true when a duplicate stopped the pass.
	Halted bool `json:"halted"`

	// HaltedAt is the block index of the duplicate, or -1.
	HaltedAt int `json:"halted_at"`

	// NewPosts holds the formatted content of newly saved posts, in order.
	NewPosts []string `json:"new_posts,omitempty"`
}

// NewRunStats returns empty stats with no halt recorded.
func NewRunStats() RunStats {
	return RunStats{HaltedAt: -1}
}

// Record folds a single outcome into the stats.
func (s *RunStats) Record(index int, outcome Outcome, content string) {
	s.Processed++
	switch outcome {
	case OutcomeSaved:
		s.Saved++
		s.NewPosts = append(s.NewPosts, content)
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		s.Errored++
	case OutcomeDuplicate:
		s.Halted = true
		s.HaltedAt = index
	}
}
