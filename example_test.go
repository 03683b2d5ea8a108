package emailprobe_test

import (
	"context"
	"fmt"
	"time"

	"github.com/optimode/emailprobe"
)

func ExampleValidate() {
	result, _ := emailprobe.Validate(context.Background(), "not-an-email", emailprobe.Config{
		SkipSMTPValidation: true,
	})
	fmt.Println(result.Status, result.Score)
	fmt.Println(result.Reason)
	// Output:
	// invalid 10
	// invalid syntax: email address must contain exactly one @
}

func ExampleValidator_Validate() {
	dns := (&fakeDNS{}).withDomain("example.com", "mx1.example.com")
	v := emailprobe.New(emailprobe.Config{SkipSMTPValidation: true}).
		WithResolver(dns).
		WithLogger(quietLogger())

	for _, email := range []string{"jane@example.com", "support@example.com", "jane@nowhere.example"} {
		result, _ := v.Validate(context.Background(), email)
		fmt.Printf("%-22s %-7s %3d\n", result.Email, result.Status, result.Score)
	}
	// Output:
	// jane@example.com       valid   100
	// support@example.com    risky    70
	// jane@nowhere.example   invalid  15
}

func ExampleValidator_ValidateMany() {
	dns := (&fakeDNS{}).withDomain("example.com", "mx1.example.com")
	v := emailprobe.New(emailprobe.Config{SkipSMTPValidation: true}).
		WithResolver(dns).
		WithLogger(quietLogger())

	emails := []string{"alice@example.com", "invalid", "bob@example.com"}
	results, _ := v.ValidateMany(context.Background(), emails, emailprobe.BatchOptions{
		BatchSize: 2,
		Pause:     10 * time.Millisecond,
	})

	for _, r := range results {
		fmt.Printf("%-20s %s\n", r.Email, r.Status)
	}
	// Output:
	// alice@example.com    valid
	// invalid              invalid
	// bob@example.com      valid
}

func ExampleResult_CheckFor() {
	dns := (&fakeDNS{}).withDomain("example.com")
	v := emailprobe.New(emailprobe.Config{SkipSMTPValidation: true}).
		WithResolver(dns).
		WithLogger(quietLogger())

	result, _ := v.Validate(context.Background(), "user@example.com")
	if mx, ok := result.CheckFor(emailprobe.StageMX); ok {
		fmt.Println(mx.Passed, mx.Message)
	}
	if smtp, ok := result.CheckFor(emailprobe.StageSMTP); ok {
		fmt.Println(smtp.Skipped, smtp.Message)
	}
	// Output:
	// false no MX records found
	// true skipped: MX check failed
}

func ExampleResult_FailedChecks() {
	result, _ := emailprobe.Validate(context.Background(), ".user@example.com", emailprobe.Config{
		SkipSMTPValidation: true,
	})

	for _, c := range result.FailedChecks() {
		fmt.Printf("[%s] %s\n", c.Stage, c.Message)
	}
	// Output:
	// [syntax] local part cannot start or end with a dot
}

func ExampleClassify() {
	checks := map[emailprobe.Stage]emailprobe.CheckOutcome{
		emailprobe.StageSyntax:     {Passed: true},
		emailprobe.StageDomain:     {Passed: true},
		emailprobe.StageMX:         {Passed: true},
		emailprobe.StageSMTP:       {Passed: true, Temporary: true, Message: "greylisted"},
		emailprobe.StageDisposable: {Passed: true},
		emailprobe.StageRoleBased:  {Passed: false},
	}
	status, score, _ := emailprobe.Classify(checks)
	fmt.Println(status, score)
	// Output: risky 60
}
