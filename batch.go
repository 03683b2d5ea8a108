package emailprobe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchItem is the outcome of one address in a batch run. Err is set when
// the validation could not complete (cancelled context, panic); Result is
// then the zero value.
type BatchItem struct {
	Index  int // position in the de-duplicated list
	Email  string
	Result Result
	Err    error
}

// Dedupe returns emails with duplicates removed, keeping the first
// occurrence. Addresses are compared trimmed and case-insensitively.
func Dedupe(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// ValidateBatch validates emails in batches of opts.BatchSize, at most
// opts.Concurrency at a time, pausing opts.Pause between batches.
// Duplicates are validated once. Each item is sent on the returned channel
// as soon as it completes; the channel is closed after the last one. The
// caller must drain the channel.
//
// Cancelling ctx does not drop addresses: those not yet started are
// reported with ctx.Err().
func (v *Validator) ValidateBatch(ctx context.Context, emails []string, opts ...BatchOptions) (<-chan BatchItem, error) {
	if v.err != nil {
		return nil, v.err
	}
	var o BatchOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if err := validateStruct(o); err != nil {
		return nil, err
	}
	o = o.withDefaults()

	var limiter *rate.Limiter
	if o.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.RateLimit), max(1, int(o.RateLimit)))
	}

	list := Dedupe(emails)
	out := make(chan BatchItem, min(len(list), o.BatchSize))

	go func() {
		defer close(out)
		for start := 0; start < len(list); start += o.BatchSize {
			if start > 0 {
				if err := pause(ctx, o.Pause); err != nil {
					for i := start; i < len(list); i++ {
						out <- BatchItem{Index: i, Email: list[i], Err: err}
					}
					return
				}
			}

			end := min(start+o.BatchSize, len(list))
			v.log.WithField("batch", start/o.BatchSize+1).Debugf("validating %d address(es)", end-start)

			var g errgroup.Group
			g.SetLimit(o.Concurrency)
			for i := start; i < end; i++ {
				g.Go(func() error {
					out <- v.validateItem(ctx, limiter, i, list[i])
					return nil
				})
			}
			_ = g.Wait()
		}
	}()

	return out, nil
}

func (v *Validator) validateItem(ctx context.Context, limiter *rate.Limiter, index int, email string) (item BatchItem) {
	item = BatchItem{Index: index, Email: email}
	defer func() {
		if p := recover(); p != nil {
			item.Result = Result{}
			item.Err = fmt.Errorf("panic: %v", p)
			v.log.WithField("email", email).Errorf("validation panicked: %v", p)
		}
	}()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			item.Err = err
			return item
		}
	}
	if err := ctx.Err(); err != nil {
		item.Err = err
		return item
	}
	item.Result, item.Err = v.Validate(ctx, email)
	return item
}

// ValidateMany validates emails through ValidateBatch and collects the
// results. The result order matches the input slice order; a duplicate
// address gets a copy of the first occurrence's result. The returned error
// is the first per-item error, if any.
func (v *Validator) ValidateMany(ctx context.Context, emails []string, opts ...BatchOptions) ([]Result, error) {
	items, err := v.ValidateBatch(ctx, emails, opts...)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]Result, len(emails))
	var firstErr error
	firstIdx := -1
	for item := range items {
		if item.Err != nil {
			if firstIdx < 0 || item.Index < firstIdx {
				firstIdx = item.Index
				firstErr = fmt.Errorf("validating %q: %w", item.Email, item.Err)
			}
			continue
		}
		byKey[strings.ToLower(item.Email)] = item.Result
	}

	results := make([]Result, len(emails))
	for i, e := range emails {
		results[i] = byKey[strings.ToLower(strings.TrimSpace(e))]
	}
	return results, firstErr
}

func pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
