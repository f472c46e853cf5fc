package record

// OutcomeKind distinguishes accepted archives from skipped ones.
type OutcomeKind int

const (
	// Accepted means the archive produced a publishable Record.
	Accepted OutcomeKind = iota
	// Skipped means the archive was deliberately left out of the current set.
	Skipped
)

func (k OutcomeKind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of extracting one archive.
// Exactly one of Record (Accepted) or Reason (Skipped) is meaningful.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Path   string      `json:"path"`
	Record Record      `json:"record,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Accept wraps a record in an Accepted outcome.
func Accept(path string, r Record) Outcome {
	return Outcome{Kind: Accepted, Path: path, Record: r}
}

// Skip builds a Skipped outcome for path.
func Skip(path, reason string) Outcome {
	return Outcome{Kind: Skipped, Path: path, Reason: reason}
}

// Split separates outcomes into accepted records and the number skipped.
func Split(outcomes []Outcome) ([]Record, int) {
	records := make([]Record, 0, len(outcomes))
	skipped := 0
	for _, o := range outcomes {
		if o.Kind == Skipped {
			skipped++
			continue
		}
		records = append(records, o.Record)
	}
	return records, skipped
}
