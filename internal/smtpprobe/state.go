package smtpprobe

import (
	"fmt"
	"strings"
)

// State is a step of the probe session.
type State int

const (
	StateGreeting State = iota // waiting for the 220 banner
	StateHelo                  // HELO sent, waiting for 250
	StateMailFrom              // MAIL FROM sent, waiting for 250
	StateRcptTo                // RCPT TO sent, waiting for the verdict
	StateDone
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateHelo:
		return "HELO"
	case StateMailFrom:
		return "MAIL FROM"
	case StateRcptTo:
		return "RCPT TO"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Verdict is how a single probe attempt ended.
type Verdict int

const (
	// VerdictFailed covers transport errors, protocol anomalies and
	// unexpected replies. Other hosts may still be tried.
	VerdictFailed Verdict = iota
	// VerdictAccepted means the server accepted RCPT TO.
	VerdictAccepted
	// VerdictRejected means the server definitively refused the mailbox.
	VerdictRejected
	// VerdictTemporary means a 4xx reply, typically greylisting or rate limiting.
	VerdictTemporary
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictRejected:
		return "rejected"
	case VerdictTemporary:
		return "temporary"
	}
	return "failed"
}

// Outcome is the result of one probe attempt against one host.
type Outcome struct {
	Verdict Verdict
	Host    string
	State   State // the step the session ended in
	Code    int   // reply code, 0 on transport failures
	Message string
}

// Definitive reports whether the outcome settles the address, so no other
// host needs to be asked.
func (o Outcome) Definitive() bool {
	return o.Verdict == VerdictAccepted || o.Verdict == VerdictRejected
}

// Reply is a complete, possibly multi-line, SMTP reply.
type Reply struct {
	Code  int
	Lines []string // text of each line without the code and separator
}

// Text returns the reply text with lines joined by a space.
func (r Reply) Text() string {
	return strings.Join(r.Lines, " ")
}

func (r Reply) String() string {
	if t := r.Text(); t != "" {
		return fmt.Sprintf("%d %s", r.Code, t)
	}
	return fmt.Sprintf("%d", r.Code)
}

// rcptVerdicts classifies RCPT TO reply codes.
var rcptVerdicts = map[int]Verdict{
	250: VerdictAccepted,
	251: VerdictAccepted, // user not local, will forward
	550: VerdictRejected,
	551: VerdictRejected,
	553: VerdictRejected,
	421: VerdictTemporary,
	450: VerdictTemporary,
	451: VerdictTemporary,
	452: VerdictTemporary,
}

// temporaryHints are matched against the text of replies whose code is
// not in rcptVerdicts. This is a heuristic: servers are free to word
// their replies any way they like.
var temporaryHints = []string{
	"greylist",
	"graylist",
	"try again",
	"try later",
	"temporarily",
	"rate limit",
	"too many",
}

// ClassifyRcpt maps a RCPT TO reply to a verdict.
func ClassifyRcpt(r Reply) Verdict {
	if v, ok := rcptVerdicts[r.Code]; ok {
		return v
	}
	text := strings.ToLower(r.Text())
	for _, hint := range temporaryHints {
		if strings.Contains(text, hint) {
			return VerdictTemporary
		}
	}
	return VerdictFailed
}

// Step advances the session state machine on a reply. It returns the next
// state, and a non-nil outcome once the session is decided.
func Step(state State, r Reply) (State, *Outcome) {
	fail := func(format string) (State, *Outcome) {
		return StateDone, &Outcome{
			Verdict: VerdictFailed,
			State:   state,
			Code:    r.Code,
			Message: fmt.Sprintf(format, r),
		}
	}

	switch state {
	case StateGreeting:
		if r.Code != 220 {
			return fail("connection rejected by server: %s")
		}
		return StateHelo, nil
	case StateHelo:
		if r.Code != 250 {
			return fail("HELO rejected: %s")
		}
		return StateMailFrom, nil
	case StateMailFrom:
		if r.Code != 250 {
			return fail("MAIL FROM rejected: %s")
		}
		return StateRcptTo, nil
	case StateRcptTo:
		out := &Outcome{Verdict: ClassifyRcpt(r), State: state, Code: r.Code}
		switch out.Verdict {
		case VerdictAccepted:
			out.Message = fmt.Sprintf("recipient accepted: %s", r)
		case VerdictRejected:
			out.Message = fmt.Sprintf("mailbox rejected: %s", r)
		case VerdictTemporary:
			out.Message = fmt.Sprintf("temporary failure: %s", r)
		default:
			out.Message = fmt.Sprintf("unexpected RCPT TO reply: %s", r)
		}
		return StateDone, out
	}
	return fail("reply in unexpected state: %s")
}
