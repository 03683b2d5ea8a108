package emailprobe

import (
	"fmt"

	"github.com/optimode/emailprobe/types"
)

// Scores assigned by Classify.
const (
	ScoreUnknown       = 0
	ScoreSyntaxInvalid = 10
	ScoreNoDomain      = 15
	ScoreNoMX          = 20
	ScoreSMTPRejected  = 25
	ScoreDisposable    = 40
	ScoreSMTPTemporary = 60
	ScoreRoleBased     = 70
	ScoreValid         = 100
)

// Classify reduces the stage outcomes to a status, a score and a reason.
// Rules are checked in severity order and the first match wins, so a
// syntax failure outranks everything after it. A missing stage yields
// StatusUnknown.
func Classify(checks map[Stage]CheckOutcome) (Status, int, string) {
	for _, stage := range types.Stages {
		if _, ok := checks[stage]; !ok {
			return StatusUnknown, ScoreUnknown, fmt.Sprintf("no outcome recorded for the %s stage", stage)
		}
	}

	failed := func(stage Stage) (CheckOutcome, bool) {
		c := checks[stage]
		return c, !c.Passed && !c.Skipped
	}

	if c, ok := failed(StageSyntax); ok {
		return StatusInvalid, ScoreSyntaxInvalid, "invalid syntax: " + c.Message
	}
	if c, ok := failed(StageDomain); ok {
		return StatusInvalid, ScoreNoDomain, "domain does not resolve: " + c.Message
	}
	if c, ok := failed(StageMX); ok {
		return StatusInvalid, ScoreNoMX, "domain cannot receive mail: " + c.Message
	}
	if c := checks[StageSMTP]; !c.Skipped {
		if c.Temporary {
			return StatusRisky, ScoreSMTPTemporary, "mailbox could not be confirmed (temporary failure): " + c.Message
		}
		if !c.Passed {
			return StatusInvalid, ScoreSMTPRejected, "mailbox rejected or unreachable: " + c.Message
		}
	}
	if _, ok := failed(StageDisposable); ok {
		return StatusRisky, ScoreDisposable, "disposable email domain"
	}
	if _, ok := failed(StageRoleBased); ok {
		return StatusRisky, ScoreRoleBased, "role-based address"
	}
	return StatusValid, ScoreValid, "all checks passed"
}
