package mcstatus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// srvService is the SRV prefix game clients use to discover the
	// real host and port behind a bare hostname.
	srvService = "_minecraft._tcp."

	// DefaultDNSServer answers SRV lookups unless overridden.
	DefaultDNSServer = "1.1.1.1:53"

	// DefaultDNSTimeout bounds a single SRV query.
	DefaultDNSTimeout = 3 * time.Second
)

// Resolver answers SRV lookups for servers registered without an
// explicit port.
type Resolver struct {
	server string
	client *dns.Client
}

// ResolverOption configures a [Resolver].
type ResolverOption func(*Resolver)

// WithDNSServer sets the host:port of the DNS server queried for SRV
// records.
func WithDNSServer(server string) ResolverOption {
	return func(r *Resolver) {
		r.server = server
	}
}

// WithDNSTimeout bounds each SRV query.
func WithDNSTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.client.Timeout = d
	}
}

// NewResolver creates a [Resolver] with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		server: DefaultDNSServer,
		client: &dns.Client{Timeout: DefaultDNSTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LookupSRV resolves the game SRV record for host and returns the
// target host and port of the first answer. Fails when the query
// errors or yields no SRV records.
func (r *Resolver) LookupSRV(ctx context.Context, host string) (string, int, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(srvService+host), dns.TypeSRV)

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return "", 0, fmt.Errorf("srv lookup for %s: %w", host, err)
	}

	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			return strings.TrimSuffix(srv.Target, "."), int(srv.Port), nil
		}
	}
	return "", 0, fmt.Errorf("no srv record for %s", host)
}
