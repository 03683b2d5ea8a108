// Package types contains the shared types for emailprobe.
// This package does not import anything from other emailprobe packages
// to avoid circular imports.
package types

// Stage identifies one step of the validation pipeline.
type Stage = string

const (
	StageSyntax     Stage = "syntax"
	StageDomain     Stage = "domain"
	StageMX         Stage = "mx"
	StageSMTP       Stage = "smtp"
	StageDisposable Stage = "disposable"
	StageRoleBased  Stage = "roleBased"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageSyntax,
	StageDomain,
	StageMX,
	StageSMTP,
	StageDisposable,
	StageRoleBased,
}

// Status is the final verdict for an address.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusRisky   Status = "risky"
	StatusUnknown Status = "unknown"
)

// MXRecord is a mail exchanger of a domain. Lower priority is preferred.
type MXRecord struct {
	Host     string `json:"host"`
	Priority int    `json:"priority"`
}

// CheckOutcome is the result of a single stage.
type CheckOutcome struct {
	Stage   Stage  `json:"stage"`
	Passed  bool   `json:"passed"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
	// Temporary is set on an SMTP outcome that ended on a 4xx reply
	// (greylisting, rate limiting) and was softened by policy.
	Temporary bool       `json:"temporary,omitempty"`
	Code      int        `json:"code,omitempty"`
	MXHost    string     `json:"mxHost,omitempty"`
	MXRecords []MXRecord `json:"mxRecords,omitempty"`
}

// Skip returns a skipped outcome for the given stage.
func Skip(stage Stage, reason string) CheckOutcome {
	return CheckOutcome{Stage: stage, Skipped: true, Message: "skipped: " + reason}
}
