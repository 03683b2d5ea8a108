package emailprobe

import "errors"

var (
	// ErrInvalidConfig is returned by Validate and ValidateBatch when the
	// Config or BatchOptions hold an invalid value.
	ErrInvalidConfig = errors.New("emailprobe: invalid configuration")

	// ErrMissingSMTPIdentity is returned when SMTP validation is enabled
	// but HeloIdentity or SenderAddress is missing.
	ErrMissingSMTPIdentity = errors.New("emailprobe: SMTP validation requires HeloIdentity and SenderAddress")
)
