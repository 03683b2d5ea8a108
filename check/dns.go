package check

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/optimode/emailprobe/internal/deadline"
	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/types"
)

// Resolver error codes reported in failing DNS outcomes.
const (
	CodeNotFound = "ENOTFOUND"
	CodeTimeout  = "ETIMEOUT"
	CodeServFail = "ESERVFAIL"
)

// Resolver is the subset of *net.Resolver the DNS stages need.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// DNSChecker runs the domain and MX stages. Each lookup runs against its
// own deadline.
type DNSChecker struct {
	resolver Resolver
	timeout  time.Duration
}

func NewDNSChecker(resolver Resolver, timeout time.Duration) *DNSChecker {
	return &DNSChecker{resolver: resolver, timeout: timeout}
}

// CheckDomain verifies that the domain resolves to at least one address.
func (c *DNSChecker) CheckDomain(ctx context.Context, email parse.Email) types.CheckOutcome {
	return deadline.Race(ctx, c.timeout,
		func(ctx context.Context) types.CheckOutcome {
			addrs, err := c.resolver.LookupHost(ctx, email.Domain)
			if err != nil {
				return lookupFailure(types.StageDomain, "domain lookup", err)
			}
			if len(addrs) == 0 {
				return types.CheckOutcome{
					Stage:   types.StageDomain,
					Message: fmt.Sprintf("domain lookup failed (%s): no addresses for %s", CodeNotFound, email.Domain),
				}
			}
			return types.CheckOutcome{
				Stage:   types.StageDomain,
				Passed:  true,
				Message: fmt.Sprintf("domain resolves to %d address(es)", len(addrs)),
			}
		},
		func(err error) types.CheckOutcome {
			return lookupFailure(types.StageDomain, "domain lookup", err)
		})
}

// CheckMX looks up the mail exchangers of the domain. An empty answer is a
// failure of its own, distinct from a lookup error. On success the
// records are returned in attempt order.
func (c *DNSChecker) CheckMX(ctx context.Context, email parse.Email) types.CheckOutcome {
	return deadline.Race(ctx, c.timeout,
		func(ctx context.Context) types.CheckOutcome {
			mx, err := c.resolver.LookupMX(ctx, email.Domain)
			if err != nil {
				return lookupFailure(types.StageMX, "MX lookup", err)
			}
			records := SortMX(mx)
			if len(records) == 0 {
				return types.CheckOutcome{Stage: types.StageMX, Message: "no MX records found"}
			}
			return types.CheckOutcome{
				Stage:     types.StageMX,
				Passed:    true,
				Message:   fmt.Sprintf("%d MX record(s) found", len(records)),
				MXHost:    records[0].Host,
				MXRecords: records,
			}
		},
		func(err error) types.CheckOutcome {
			return lookupFailure(types.StageMX, "MX lookup", err)
		})
}

// SortMX converts MX answers into records ordered by ascending priority,
// trimming the trailing dot of each host. Records with an empty host or
// the null MX "." are dropped. Equal priorities keep the resolver's order.
func SortMX(mx []*net.MX) []types.MXRecord {
	records := make([]types.MXRecord, 0, len(mx))
	for _, m := range mx {
		if m == nil {
			continue
		}
		host := strings.TrimSuffix(m.Host, ".")
		if host == "" {
			continue
		}
		records = append(records, types.MXRecord{Host: host, Priority: int(m.Pref)})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Priority < records[j].Priority
	})
	return records
}

// ErrorCode maps a resolver error to ENOTFOUND, ETIMEOUT or ESERVFAIL.
func ErrorCode(err error) string {
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeTimeout
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		return CodeNotFound
	case errors.As(err, &dnsErr) && dnsErr.IsTimeout:
		return CodeTimeout
	}
	return CodeServFail
}

func lookupFailure(stage types.Stage, what string, err error) types.CheckOutcome {
	return types.CheckOutcome{
		Stage:   stage,
		Message: fmt.Sprintf("%s failed (%s): %v", what, ErrorCode(err), err),
	}
}
