// internal/browser/static.go
package browser

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html/charset"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBodySize caps how much of a response the static driver will parse
const maxBodySize = 10 * 1024 * 1024

// StaticDriver evaluates the XPath against server-rendered HTML without running
// any scripts. It suits shops whose prices are in the initial markup.
type StaticDriver struct {
	config *Config
	client *http.Client
}

// NewStaticDriver creates a static HTML driver
func NewStaticDriver(config *Config) *StaticDriver {
	if config == nil {
		config = DefaultConfig()
	}
	return &StaticDriver{config: config}
}

// Name implements Driver
func (s *StaticDriver) Name() string { return DriverStatic }

// Start prepares the HTTP client
func (s *StaticDriver) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.client != nil {
		return nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.config.Proxy != "" {
		proxyURL, err := neturl.Parse(s.config.Proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	s.client = &http.Client{Transport: transport}
	return nil
}

// FetchText implements Driver
func (s *StaticDriver) FetchText(ctx context.Context, url, xpath string) (string, error) {
	if s.client == nil {
		return "", errors.Fetch(errors.ReasonNotStarted, url, xpath, fmt.Errorf("static driver not started"))
	}

	doc, err := s.load(ctx, url)
	if err != nil {
		reason := errors.ReasonNavigation
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = errors.ReasonTimeout
		}
		return "", errors.Fetch(reason, url, xpath, err)
	}

	node, err := htmlquery.Query(doc.Get(0), xpath)
	if err != nil {
		return "", errors.Fetch(errors.ReasonLocatorNotFound, url, xpath, fmt.Errorf("invalid xpath: %w", err))
	}
	if node == nil {
		return "", errors.Fetch(errors.ReasonLocatorNotFound, url, xpath, fmt.Errorf("no element matches"))
	}

	return goquery.NewDocumentFromNode(node).Text(), nil
}

func (s *StaticDriver) load(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	ua := s.config.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Stop releases idle connections
func (s *StaticDriver) Stop() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}
