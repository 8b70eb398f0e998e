package fetcher

import (
	"context"
	"net"
	"sync"
	"time"
)

// DNSCache caches resolved addresses per host with a TTL and dials the
// first reachable one. CDN endpoints for large binary assets are
// geographically sharded, so preferring an address that actually
// answers beats re-resolving on every request.
type DNSCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	resolver *net.Resolver
	dialer   *net.Dialer
	entries  map[string]dnsEntry

	now func() time.Time
}

type dnsEntry struct {
	addrs   []string
	expires time.Time
}

func NewDNSCache(ttl time.Duration) *DNSCache {
	return &DNSCache{
		ttl:      ttl,
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{Timeout: 10 * time.Second},
		entries:  make(map[string]dnsEntry),
		now:      time.Now,
	}
}

// DialContext plugs into http.Transport. Literal IPs bypass the cache.
func (c *DNSCache) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	if ip := net.ParseIP(host); ip != nil {
		return c.dialer.DialContext(ctx, network, addr)
	}

	addrs, err := c.lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, a := range addrs {
		conn, err := c.dialer.DialContext(ctx, network, net.JoinHostPort(a, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	// Every cached address refused; drop the entry so the next attempt
	// re-resolves.
	c.Invalidate(host)
	return nil, lastErr
}

func (c *DNSCache) lookup(ctx context.Context, host string) ([]string, error) {
	c.mu.Lock()
	entry, ok := c.entries[host]
	if ok && c.now().Before(entry.expires) {
		addrs := entry.addrs
		c.mu.Unlock()
		return addrs, nil
	}
	c.mu.Unlock()

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[host] = dnsEntry{addrs: addrs, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return addrs, nil
}

func (c *DNSCache) Invalidate(host string) {
	c.mu.Lock()
	delete(c.entries, host)
	c.mu.Unlock()
}

func (c *DNSCache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]dnsEntry)
	c.mu.Unlock()
}
