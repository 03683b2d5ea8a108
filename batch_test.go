package emailprobe_test

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailprobe"
)

func drain(ch <-chan emailprobe.BatchItem) []emailprobe.BatchItem {
	var items []emailprobe.BatchItem
	for item := range ch {
		items = append(items, item)
	}
	return items
}

func offlineValidator(dns *fakeDNS) *emailprobe.Validator {
	return newValidator(emailprobe.Config{SkipSMTPValidation: true}, dns, nil)
}

func TestDedupe(t *testing.T) {
	got := emailprobe.Dedupe([]string{"a@example.com", " A@Example.com ", "b@example.com", "a@example.com"})
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)
}

func TestValidateBatch_EmitsEveryAddressOnce(t *testing.T) {
	dns := (&fakeDNS{}).withDomain("example.com", "mx1.example.com")
	v := offlineValidator(dns)

	var emails []string
	for i := range 45 {
		emails = append(emails, fmt.Sprintf("user%d@example.com", i))
	}
	emails = append(emails, "USER0@example.com", "not-an-email")

	ch, err := v.ValidateBatch(context.Background(), emails, emailprobe.BatchOptions{BatchSize: 20, Pause: time.Millisecond})
	require.NoError(t, err)
	items := drain(ch)

	require.Len(t, items, 46)
	seen := map[int]bool{}
	for _, item := range items {
		assert.False(t, seen[item.Index], "index %d emitted twice", item.Index)
		seen[item.Index] = true
		assert.NoError(t, item.Err)
		assert.Equal(t, item.Email, item.Result.Email)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	assert.Equal(t, emailprobe.StatusValid, items[0].Result.Status)
	assert.Equal(t, emailprobe.StatusInvalid, items[45].Result.Status)
}

// slowDNS holds every host lookup for a moment and records the highest
// number of lookups seen in flight at once.
type slowDNS struct {
	*fakeDNS
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (d *slowDNS) LookupHost(ctx context.Context, host string) ([]string, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return d.fakeDNS.LookupHost(ctx, host)
}

func TestValidateBatch_ConcurrencyLimit(t *testing.T) {
	dns := &slowDNS{fakeDNS: (&fakeDNS{}).withDomain("example.com", "mx1.example.com")}
	v := emailprobe.New(emailprobe.Config{SkipSMTPValidation: true}).WithResolver(dns).WithLogger(quietLogger())

	var emails []string
	for i := range 8 {
		emails = append(emails, fmt.Sprintf("user%d@example.com", i))
	}

	ch, err := v.ValidateBatch(context.Background(), emails, emailprobe.BatchOptions{BatchSize: 8, Concurrency: 2})
	require.NoError(t, err)
	items := drain(ch)

	require.Len(t, items, 8)
	for _, item := range items {
		assert.NoError(t, item.Err)
		assert.Equal(t, emailprobe.StatusValid, item.Result.Status)
	}
	assert.Equal(t, int32(2), dns.peak.Load())
}

func TestValidateBatch_PausesBetweenBatches(t *testing.T) {
	v := offlineValidator(&fakeDNS{})
	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}

	start := time.Now()
	ch, err := v.ValidateBatch(context.Background(), emails, emailprobe.BatchOptions{BatchSize: 2, Pause: 40 * time.Millisecond})
	require.NoError(t, err)
	items := drain(ch)

	assert.Len(t, items, 5)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestValidateBatch_RateLimit(t *testing.T) {
	v := offlineValidator(&fakeDNS{})
	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}

	start := time.Now()
	ch, err := v.ValidateBatch(context.Background(), emails, emailprobe.BatchOptions{RateLimit: 20})
	require.NoError(t, err)
	assert.Len(t, drain(ch), 4)
	// burst of 20 covers all four starts
	assert.Less(t, time.Since(start), time.Second)
}

func TestValidateBatch_CancelledContext(t *testing.T) {
	v := offlineValidator(&fakeDNS{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := v.ValidateBatch(ctx, []string{"a@example.com", "b@example.com", "c@example.com"}, emailprobe.BatchOptions{BatchSize: 2})
	require.NoError(t, err)
	items := drain(ch)

	require.Len(t, items, 3)
	for _, item := range items {
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
}

func TestValidateBatch_PanicIsPerItem(t *testing.T) {
	dns := (&fakeDNS{panicOn: "boom.example"}).withDomain("example.com", "mx1.example.com")
	v := offlineValidator(dns)

	ch, err := v.ValidateBatch(context.Background(), []string{"user@boom.example", "user@example.com"})
	require.NoError(t, err)
	items := drain(ch)
	require.Len(t, items, 2)

	byEmail := map[string]emailprobe.BatchItem{}
	for _, item := range items {
		byEmail[item.Email] = item
	}
	assert.ErrorContains(t, byEmail["user@boom.example"].Err, "panic")
	assert.NoError(t, byEmail["user@example.com"].Err)
	assert.Equal(t, emailprobe.StatusValid, byEmail["user@example.com"].Result.Status)
}

func TestValidateBatch_InvalidOptions(t *testing.T) {
	v := offlineValidator(&fakeDNS{})
	_, err := v.ValidateBatch(context.Background(), []string{"a@example.com"}, emailprobe.BatchOptions{BatchSize: -1})
	assert.ErrorIs(t, err, emailprobe.ErrInvalidConfig)

	_, err = emailprobe.New(emailprobe.Config{}).ValidateBatch(context.Background(), []string{"a@example.com"})
	assert.ErrorIs(t, err, emailprobe.ErrMissingSMTPIdentity)
}

func TestValidateMany(t *testing.T) {
	dns := (&fakeDNS{}).withDomain("example.com", "mx1.example.com")
	v := offlineValidator(dns)

	emails := []string{"a@example.com", "invalid", "B@example.com", "a@example.com"}
	results, err := v.ValidateMany(context.Background(), emails)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, emailprobe.StatusValid, results[0].Status)
	assert.Equal(t, emailprobe.StatusInvalid, results[1].Status)
	assert.Equal(t, "B@example.com", results[2].Email)
	assert.Equal(t, results[0].Status, results[3].Status)
}
