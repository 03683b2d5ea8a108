// Package check contains the validation stages of emailprobe: syntax,
// domain existence, MX lookup, the SMTP probe with its retry policy, and
// the disposable/role heuristics. Each checker returns a
// types.CheckOutcome and never an error; network failures are reported in
// the outcome. The recommended entry point is the emailprobe.Validator,
// which sequences the stages and enforces their deadlines.
package check
