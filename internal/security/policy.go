// internal/security/policy.go
package security

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// Config restricts which URLs the browser may be sent to
type Config struct {
	AllowedSchemes       []string `yaml:"allowed_schemes" json:"allowed_schemes"`
	BlockedDomains       []string `yaml:"blocked_domains,omitempty" json:"blocked_domains,omitempty"`
	MaxURLLength         int      `yaml:"max_url_length" json:"max_url_length"`
	BlockPrivateNetworks bool     `yaml:"block_private_networks" json:"block_private_networks"`
}

// DefaultConfig allows any http or https URL
func DefaultConfig() Config {
	return Config{
		AllowedSchemes: []string{"https", "http"},
		MaxURLLength:   2048,
	}
}

// URLPolicy checks row URLs before any navigation happens. It is safe for
// concurrent use.
type URLPolicy struct {
	schemes      map[string]bool
	blocked      []string
	maxURLLength int
	blockPrivate bool
	resolver     *net.Resolver
}

// NewURLPolicy builds a policy from cfg; an empty scheme list falls back to
// http and https.
func NewURLPolicy(cfg Config) *URLPolicy {
	schemes := cfg.AllowedSchemes
	if len(schemes) == 0 {
		schemes = DefaultConfig().AllowedSchemes
	}

	p := &URLPolicy{
		schemes:      make(map[string]bool, len(schemes)),
		maxURLLength: cfg.MaxURLLength,
		blockPrivate: cfg.BlockPrivateNetworks,
		resolver:     net.DefaultResolver,
	}
	for _, s := range schemes {
		p.schemes[strings.ToLower(s)] = true
	}
	for _, d := range cfg.BlockedDomains {
		if d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), ".")); d != "" {
			p.blocked = append(p.blocked, d)
		}
	}
	return p
}

// Check returns a fetch error with reason blocked when rawURL may not be visited.
func (p *URLPolicy) Check(ctx context.Context, rawURL string) error {
	if err := p.check(ctx, rawURL); err != nil {
		return errors.Fetch(errors.ReasonBlocked, rawURL, "", err)
	}
	return nil
}

func (p *URLPolicy) check(ctx context.Context, rawURL string) error {
	if p.maxURLLength > 0 && len(rawURL) > p.maxURLLength {
		return fmt.Errorf("URL length %d exceeds maximum allowed %d", len(rawURL), p.maxURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if !p.schemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("scheme %q not in allowed list", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	for _, d := range p.blocked {
		if host == d || strings.HasSuffix(host, "."+d) {
			return fmt.Errorf("domain %q is in blocked list", host)
		}
	}

	if p.blockPrivate {
		return p.checkAddress(ctx, host)
	}
	return nil
}

// checkAddress refuses hosts that are or resolve to loopback, private or
// link-local addresses.
func (p *URLPolicy) checkAddress(ctx context.Context, host string) error {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("host %q is a private address", host)
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		addrs, err := p.resolver.LookupIPAddr(ctx, host)
		if err != nil {
			// unresolvable hosts fail at navigation instead
			return nil
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	}

	for _, ip := range ips {
		if isPrivate(ip) {
			return fmt.Errorf("host %q resolves to private address %s", host, ip)
		}
	}
	return nil
}

func isPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
