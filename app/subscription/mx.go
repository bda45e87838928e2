package subscription

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// MXChecker reports whether a domain can receive mail.
type MXChecker interface {
	HasMX(ctx context.Context, domain string) (bool, error)
}

var _ MXChecker = (*ResolverMXChecker)(nil)

// ResolverMXChecker performs a DNS MX lookup with the system resolver.
type ResolverMXChecker struct {
	resolver *net.Resolver
}

func NewResolverMXChecker() *ResolverMXChecker {
	return &ResolverMXChecker{resolver: net.DefaultResolver}
}

func (c *ResolverMXChecker) HasMX(ctx context.Context, domain string) (bool, error) {
	records, err := c.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		// NXDOMAIN and empty answers mean "not mail-capable", not a
		// lookup infrastructure failure
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, fmt.Errorf("MX lookup for %s failed: %w", domain, err)
	}
	return len(records) > 0, nil
}
