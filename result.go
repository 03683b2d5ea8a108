package emailprobe

import "github.com/optimode/emailprobe/types"

// Result is the full outcome of an email validation.
type Result struct {
	Email  string                 `json:"email"`
	Checks map[Stage]CheckOutcome `json:"checks"`
	Status Status                 `json:"status"`
	Score  int                    `json:"score"`
	Reason string                 `json:"reason"`
	// Suggestion is a corrected address when the domain looks like a typo
	// of a well-known provider. It never affects Status.
	Suggestion      string `json:"suggestion,omitempty"`
	ExecutionTimeMs int64  `json:"executionTimeMs"`
}

// FailedChecks returns the outcomes that did not pass, skipped stages
// excluded, in pipeline order.
func (r Result) FailedChecks() []CheckOutcome {
	var out []CheckOutcome
	for _, stage := range types.Stages {
		if c, ok := r.Checks[stage]; ok && !c.Passed && !c.Skipped {
			out = append(out, c)
		}
	}
	return out
}

// CheckFor returns the outcome for the given stage, if it exists.
// The second return value indicates whether the stage was recorded.
func (r Result) CheckFor(stage Stage) (CheckOutcome, bool) {
	c, ok := r.Checks[stage]
	return c, ok
}
