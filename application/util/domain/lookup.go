package domain

import (
	"context"
	"net"
	"net/netip"

	"github.com/pkg/errors"
)

var ErrDomainNotFound = errors.New("domain not found")

type Lookuper interface {
	LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error)
}

type mapLookuper struct {
	set map[string][]netip.Addr
}

var _ Lookuper = (*mapLookuper)(nil)

// NewMapLookuper creates a [Lookuper] answering from a fixed table,
// similar to /etc/hosts.
func NewMapLookuper(set map[string][]netip.Addr) *mapLookuper {
	m := &mapLookuper{set: make(map[string][]netip.Addr, len(set))}
	for domain, addrs := range set {
		m.Set(domain, addrs)
	}
	return m
}

func (m *mapLookuper) LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error) {
	addrs, ok := m.set[domain]
	if !ok {
		return nil, ErrDomainNotFound
	}
	return addrs, nil
}

func (m *mapLookuper) Set(domain string, addrs []netip.Addr) {
	if len(addrs) == 0 {
		return
	}
	m.set[domain] = addrs
}

func (m *mapLookuper) Del(domain string) { delete(m.set, domain) }

type resolverLookuper struct {
	resolver *net.Resolver
	network  string
}

var _ Lookuper = (*resolverLookuper)(nil)

// NewResolverLookuper creates a [Lookuper] backed by r.
// network is one of "ip", "ip4" or "ip6". Empty means "ip".
func NewResolverLookuper(r *net.Resolver, network string) *resolverLookuper {
	if r == nil {
		r = net.DefaultResolver
	}
	if network == "" {
		network = "ip"
	}
	return &resolverLookuper{resolver: r, network: network}
}

func (r *resolverLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	addrs, err := r.resolver.LookupNetIP(ctx, r.network, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, errors.Wrap(ErrDomainNotFound, dnsErr.Error())
		}
		return nil, errors.Wrapf(err, "resolving %s", domain)
	}

	if len(addrs) == 0 {
		return nil, ErrDomainNotFound
	}

	// IPv4-mapped IPv6 addresses are dialed as plain IPv4.
	for i, addr := range addrs {
		addrs[i] = addr.Unmap()
	}

	return addrs, nil
}
