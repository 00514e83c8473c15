// internal/security/policy_test.go
package security

import (
	"context"
	"strings"
	"testing"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

func TestURLPolicy_Check(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		url     string
		blocked bool
	}{
		{
			name:   "https",
			config: DefaultConfig(),
			url:    "https://shop.example.com/item/1",
		},
		{
			name:   "http",
			config: DefaultConfig(),
			url:    "http://shop.example.com/item/1",
		},
		{
			name:    "ftp scheme",
			config:  DefaultConfig(),
			url:     "ftp://shop.example.com/price.txt",
			blocked: true,
		},
		{
			name:    "javascript scheme",
			config:  DefaultConfig(),
			url:     "javascript:alert(1)",
			blocked: true,
		},
		{
			name:    "too long",
			config:  DefaultConfig(),
			url:     "https://shop.example.com/" + strings.Repeat("a", 3000),
			blocked: true,
		},
		{
			name:    "blocked domain",
			config:  Config{BlockedDomains: []string{"example.com"}},
			url:     "https://example.com/a",
			blocked: true,
		},
		{
			name:    "blocked subdomain",
			config:  Config{BlockedDomains: []string{".example.com"}},
			url:     "https://shop.EXAMPLE.com:8443/a",
			blocked: true,
		},
		{
			name:   "suffix is not a subdomain",
			config: Config{BlockedDomains: []string{"example.com"}},
			url:    "https://notexample.com/a",
		},
		{
			name:   "loopback allowed by default",
			config: DefaultConfig(),
			url:    "http://127.0.0.1:8080/a",
		},
		{
			name:    "loopback",
			config:  Config{BlockPrivateNetworks: true},
			url:     "http://127.0.0.1:8080/a",
			blocked: true,
		},
		{
			name:    "private range",
			config:  Config{BlockPrivateNetworks: true},
			url:     "http://10.1.2.3/a",
			blocked: true,
		},
		{
			name:    "link local",
			config:  Config{BlockPrivateNetworks: true},
			url:     "http://[fe80::1]/a",
			blocked: true,
		},
		{
			name:    "localhost name",
			config:  Config{BlockPrivateNetworks: true},
			url:     "http://localhost/a",
			blocked: true,
		},
		{
			name:   "public address",
			config: Config{BlockPrivateNetworks: true},
			url:    "http://93.184.216.34/a",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewURLPolicy(tc.config).Check(context.Background(), tc.url)
			if !tc.blocked {
				if err != nil {
					t.Errorf("expected %s to pass, got %v", tc.url, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s to be blocked", tc.url)
			}
			if errors.KindOf(err) != errors.KindFetch || errors.ReasonOf(err) != errors.ReasonBlocked {
				t.Errorf("expected fetch/blocked, got %s/%s", errors.KindOf(err), errors.ReasonOf(err))
			}
		})
	}
}
