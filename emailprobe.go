// Package emailprobe tells whether an email address can receive mail
// without sending any. An address goes through six stages: syntax, domain
// existence, MX lookup, an SMTP RCPT TO probe against the domain's mail
// exchangers, and the disposable-domain and role-mailbox heuristics. The
// stage outcomes are then reduced to a status, a score and a reason.
//
// Basic usage:
//
//	result, err := emailprobe.New(emailprobe.Config{
//	    HeloIdentity:  "verify.myapp.com",
//	    SenderAddress: "verify@myapp.com",
//	}).Validate(ctx, "user@example.com")
//
// Offline checks only:
//
//	result, err := emailprobe.New(emailprobe.Config{SkipSMTPValidation: true}).
//	    Validate(ctx, "user@example.com")
//
// Only configuration errors are returned as errors. Network failures are
// part of the Result.
package emailprobe

import "github.com/optimode/emailprobe/types"

// CheckOutcome is a re-export from the types package so that consumers
// don't need to import the types package directly.
type CheckOutcome = types.CheckOutcome

// Stage is a re-export.
type Stage = types.Stage

// Status is a re-export.
type Status = types.Status

// MXRecord is a re-export.
type MXRecord = types.MXRecord

// Stage constants re-exported.
const (
	StageSyntax     = types.StageSyntax
	StageDomain     = types.StageDomain
	StageMX         = types.StageMX
	StageSMTP       = types.StageSMTP
	StageDisposable = types.StageDisposable
	StageRoleBased  = types.StageRoleBased
)

// Status constants re-exported.
const (
	StatusValid   = types.StatusValid
	StatusInvalid = types.StatusInvalid
	StatusRisky   = types.StatusRisky
	StatusUnknown = types.StatusUnknown
)
