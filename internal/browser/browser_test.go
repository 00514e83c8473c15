// internal/browser/browser_test.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// fakeDriver records calls and lets each test script FetchText.
type fakeDriver struct {
	startErr  error
	fetch     func(ctx context.Context, url, xpath string) (string, error)
	starts    atomic.Int32
	stops     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakeDriver) Name() string { return "fake" }

func (f *fakeDriver) Start(ctx context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeDriver) FetchText(ctx context.Context, url, xpath string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.fetch != nil {
		return f.fetch(ctx, url, xpath)
	}
	return "  100 руб \n", nil
}

func (f *fakeDriver) Stop() error {
	f.stops.Add(1)
	return nil
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Driver != DriverChromedp {
		t.Errorf("Expected chromedp driver by default, got %s", config.Driver)
	}
	if !config.Headless {
		t.Error("Expected headless mode by default")
	}
	if config.UserDataDir != "./browser_data" {
		t.Errorf("Expected ./browser_data, got %s", config.UserDataDir)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", config.Timeout)
	}
	if config.ViewportWidth != 1920 || config.ViewportHeight != 1080 {
		t.Errorf("Expected 1920x1080 viewport, got %dx%d", config.ViewportWidth, config.ViewportHeight)
	}
}

func TestNewDriver(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"", DriverChromedp, false},
		{DriverChromedp, DriverChromedp, false},
		{DriverRod, DriverRod, false},
		{DriverStatic, DriverStatic, false},
		{"playwright", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := NewDriver(&Config{Driver: tt.driver})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, d.Name())
			}
		})
	}
}

func TestSession_StartFailureIsFatal(t *testing.T) {
	driver := &fakeDriver{startErr: fmt.Errorf("exec: chrome not found")}
	session := NewSession(DefaultConfig(), driver, nil)

	err := session.Start(context.Background())
	if !errors.IsKind(err, errors.KindFatalStartup) {
		t.Fatalf("expected startup error, got %v", err)
	}
	if driver.stops.Load() != 1 {
		t.Errorf("expected partial start to be released, got %d stops", driver.stops.Load())
	}
}

func TestSession_Lifecycle(t *testing.T) {
	driver := &fakeDriver{}
	session := NewSession(DefaultConfig(), driver, nil)
	ctx := context.Background()

	_, err := session.FetchText(ctx, "https://a.example/p", "//span")
	if errors.ReasonOf(err) != errors.ReasonNotStarted {
		t.Errorf("expected not_started before Start, got %v", err)
	}

	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}

	text, err := session.FetchText(ctx, "https://a.example/p", "//span")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != "100 руб" {
		t.Errorf("expected trimmed text, got %q", text)
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if driver.stops.Load() != 1 {
		t.Errorf("expected driver stopped once, got %d", driver.stops.Load())
	}

	_, err = session.FetchText(ctx, "https://a.example/p", "//span")
	if errors.ReasonOf(err) != errors.ReasonStopped {
		t.Errorf("expected stopped after Stop, got %v", err)
	}

	stats := session.Stats()
	if stats.PagesLoaded != 1 || stats.Errors != 0 || !stats.Stopped {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestSession_StopBeforeStart(t *testing.T) {
	driver := &fakeDriver{}
	session := NewSession(DefaultConfig(), driver, nil)

	if err := session.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := session.Start(context.Background()); !errors.IsKind(err, errors.KindFatalStartup) {
		t.Errorf("expected Start after Stop to fail, got %v", err)
	}
	if driver.starts.Load() != 0 {
		t.Error("driver must not start after Stop")
	}
}

func TestSession_Timeout(t *testing.T) {
	driver := &fakeDriver{
		fetch: func(ctx context.Context, url, xpath string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	config := DefaultConfig()
	config.Timeout = 20 * time.Millisecond
	session := NewSession(config, driver, nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Stop()

	_, err := session.FetchText(context.Background(), "https://slow.example", "//span")
	if !errors.IsKind(err, errors.KindFetch) || errors.ReasonOf(err) != errors.ReasonTimeout {
		t.Fatalf("expected fetch timeout, got %v", err)
	}
	if got := session.Stats().Timeouts; got != 1 {
		t.Errorf("expected 1 timeout in stats, got %d", got)
	}
}

func TestSession_KeepsDriverReason(t *testing.T) {
	driver := &fakeDriver{
		fetch: func(ctx context.Context, url, xpath string) (string, error) {
			return "", errors.Fetch(errors.ReasonLocatorNotFound, "", "", fmt.Errorf("no node"))
		},
	}
	session := NewSession(DefaultConfig(), driver, nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Stop()

	_, err := session.FetchText(context.Background(), "https://a.example", "//b")
	if errors.ReasonOf(err) != errors.ReasonLocatorNotFound {
		t.Fatalf("expected locator_not_found, got %v", err)
	}
	var e *errors.Error
	if !asError(err, &e) || e.URL != "https://a.example" || e.Locator != "//b" {
		t.Errorf("expected url and xpath filled in, got %v", err)
	}
}

func TestSession_ExclusivePage(t *testing.T) {
	driver := &fakeDriver{
		fetch: func(ctx context.Context, url, xpath string) (string, error) {
			time.Sleep(2 * time.Millisecond)
			return "1", nil
		},
	}
	session := NewSession(DefaultConfig(), driver, nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.FetchText(context.Background(), "https://a.example", "//b"); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := driver.maxFlight.Load(); got != 1 {
		t.Errorf("expected at most one fetch on the page at a time, saw %d", got)
	}
}

func TestSession_MinInterval(t *testing.T) {
	config := DefaultConfig()
	config.MinInterval = 30 * time.Millisecond
	session := NewSession(config, &fakeDriver{}, nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := session.FetchText(context.Background(), "https://a.example", "//b"); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected fetches to be spaced out, took %v", elapsed)
	}
}

func asError(err error, target **errors.Error) bool {
	e, ok := err.(*errors.Error)
	if ok {
		*target = e
	}
	return ok
}

func newShop(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/item", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><div class="card"><span class="price">12 990 ₽</span></div></body></html>`)
	})
	mux.HandleFunc("/cp1251", func(w http.ResponseWriter, r *http.Request) {
		body, _ := charmap.Windows1251.NewEncoder().String(`<html><body><b id="p">Цена: 499 руб.</b></body></html>`)
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/hidden", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><span class="price" style="display:none">8 490 ₽</span></body></html>`)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestStaticDriver_FetchText(t *testing.T) {
	server := newShop(t)

	config := DefaultConfig()
	config.Driver = DriverStatic
	config.Timeout = 5 * time.Second
	session := NewSession(config, NewStaticDriver(config), nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Stop()

	tests := []struct {
		name       string
		path       string
		xpath      string
		want       string
		wantReason string
	}{
		{"element text", "/item", "//span[@class='price']", "12 990 ₽", ""},
		{"text node", "/item", "//span[@class='price']/text()", "12 990 ₽", ""},
		{"windows-1251 page", "/cp1251", "//b[@id='p']", "Цена: 499 руб.", ""},
		{"hidden element", "/hidden", "//span[@class='price']", "8 490 ₽", ""},
		{"missing element", "/item", "//span[@class='old-price']", "", errors.ReasonLocatorNotFound},
		{"invalid xpath", "/item", "//span[", "", errors.ReasonLocatorNotFound},
		{"http error", "/gone", "//span", "", errors.ReasonNavigation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := session.FetchText(context.Background(), server.URL+tt.path, tt.xpath)
			if tt.wantReason != "" {
				if errors.ReasonOf(err) != tt.wantReason {
					t.Fatalf("expected %s, got %v", tt.wantReason, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStaticDriver_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	driver := NewStaticDriver(DefaultConfig())
	if err := driver.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer driver.Stop()

	_, err := driver.FetchText(context.Background(), url+"/item", "//span")
	if errors.ReasonOf(err) != errors.ReasonNavigation {
		t.Errorf("expected navigation error, got %v", err)
	}
}

func TestStaticDriver_Proxy(t *testing.T) {
	var seen string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Host
		fmt.Fprint(w, `<html><body><i>77</i></body></html>`)
	}))
	t.Cleanup(proxy.Close)

	config := DefaultConfig()
	config.Proxy = proxy.URL
	driver := NewStaticDriver(config)
	if err := driver.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer driver.Stop()

	got, err := driver.FetchText(context.Background(), "http://shop.invalid/item", "//i")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "77" || seen != "shop.invalid" {
		t.Errorf("expected the page through the proxy, got %q via host %q", got, seen)
	}
}
