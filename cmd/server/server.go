// cmd/server/server.go
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/valpere/PriceScrapexter/internal/config"
	"github.com/valpere/PriceScrapexter/internal/ingest"
	"github.com/valpere/PriceScrapexter/internal/monitoring"
	"github.com/valpere/PriceScrapexter/internal/output"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
	"github.com/valpere/PriceScrapexter/internal/scraper"
	"github.com/valpere/PriceScrapexter/internal/utils"
	"github.com/valpere/PriceScrapexter/pkg/api"
)

// Messages returned to clients
const (
	msgUnsupportedType  = "unsupported type"
	msgIncorrectColumns = "Check the file and the columns in it."
	msgSomethingWrong   = "Something went wrong. Check your file."
)

type server struct {
	engine  *scraper.Engine
	health  *monitoring.HealthManager
	metrics *monitoring.MetricsManager
	limiter *clientLimiter
	logger  utils.Logger

	mu     sync.RWMutex
	ingest ingest.Options
	upload int64
}

func newServer(engine *scraper.Engine, cfg *config.Config, logger utils.Logger) *server {
	return &server{
		engine:  engine,
		health:  healthManager(engine),
		metrics: engine.Metrics(),
		limiter: newClientLimiter(cfg.Server.RequestsPerMinute),
		logger:  logger.WithField("component", "server"),
		ingest:  cfg.Ingest,
		upload:  int64(cfg.Server.MaxUploadMB) << 20,
	}
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health.HealthHandler()).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Handle("/batches", s.rateLimit(http.HandlerFunc(s.handleBatch))).Methods(http.MethodPost)

	return r
}

// applyConfig takes the settings that can change without a restart
func (s *server) applyConfig(cfg *config.Config) {
	s.mu.Lock()
	s.ingest = cfg.Ingest
	s.upload = int64(cfg.Server.MaxUploadMB) << 20
	s.mu.Unlock()

	s.limiter.SetRate(cfg.Server.RequestsPerMinute)
	s.logger.Infof("applied reloaded config (requests_per_minute=%d max_upload_mb=%d)",
		cfg.Server.RequestsPerMinute, cfg.Server.MaxUploadMB)
}

func (s *server) settings() (ingest.Options, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ingest, s.upload
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	opts, maxUpload := s.settings()
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.reject(w, "too_large", http.StatusRequestEntityTooLarge, "file too large", "")
			return
		}
		s.reject(w, "bad_request", http.StatusBadRequest, "expected a multipart form with a file field", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.reject(w, "missing_file", http.StatusBadRequest, "missing file field", err.Error())
		return
	}
	defer file.Close()

	if !ingest.IsSupported(header.Filename) {
		s.reject(w, "unsupported_format", http.StatusUnsupportedMediaType, msgUnsupportedType, header.Filename)
		return
	}

	if sheet := r.FormValue("sheet"); sheet != "" {
		opts.Sheet = sheet
	}
	if enc := r.FormValue("encoding"); enc != "" {
		opts.Encoding = enc
	}

	rows, err := ingest.Load(header.Filename, file, opts)
	if err != nil {
		switch {
		case stderrors.Is(err, ingest.ErrIncorrectColumns):
			s.reject(w, "incorrect_columns", http.StatusUnprocessableEntity, msgIncorrectColumns, err.Error())
		case stderrors.Is(err, ingest.ErrUnsupportedFormat):
			s.reject(w, "unsupported_format", http.StatusUnsupportedMediaType, msgUnsupportedType, err.Error())
		default:
			s.reject(w, "unreadable", http.StatusUnprocessableEntity, msgSomethingWrong, err.Error())
		}
		return
	}

	s.logger.Infof("batch of %d rows from %s (%s)", len(rows), clientIP(r), header.Filename)

	var mu sync.Mutex
	messages := make([]string, 0, len(rows)+1)
	notifier := pipeline.NotifierFunc(func(ctx context.Context, n pipeline.Notice) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, n.String())
	})

	result, runErr := s.engine.RunBatch(r.Context(), rows, notifier)
	messages = append(messages, output.FormatSummary(result.Summary)...)

	resp := api.BatchResponse{
		Summary:  result.Summary,
		Outcomes: result.Outcomes,
		Messages: messages,
	}
	status := http.StatusOK
	if runErr != nil {
		s.logger.Warnf("batch ended early: %v", runErr)
		resp.Partial = true
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *server) reject(w http.ResponseWriter, reason string, status int, msg, detail string) {
	if s.metrics != nil {
		s.metrics.RecordUploadRejected(reason)
	}
	writeJSON(w, status, api.ErrorResponse{Error: msg, Detail: detail})
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			if s.metrics != nil {
				s.metrics.RecordRateLimitHit()
			}
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, api.ErrorResponse{Error: "Rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientLimiter keeps one token bucket per client address. A rate of zero
// disables limiting. Buckets unused for idle are dropped.
type clientLimiter struct {
	mu        sync.Mutex
	perMin    int
	idle      time.Duration
	lastPrune time.Time
	limiters  map[string]*clientBucket
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perMinute int) *clientLimiter {
	return &clientLimiter{
		perMin:    perMinute,
		idle:      5 * time.Minute,
		lastPrune: time.Now(),
		limiters:  make(map[string]*clientBucket),
	}
}

func (c *clientLimiter) limit() rate.Limit {
	return rate.Every(time.Minute / time.Duration(c.perMin))
}

// Allow reports whether client may make a request now
func (c *clientLimiter) Allow(client string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.perMin <= 0 {
		return true
	}

	now := time.Now()
	if now.Sub(c.lastPrune) >= c.idle {
		c.prune(now)
	}

	b, ok := c.limiters[client]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(c.limit(), c.perMin)}
		c.limiters[client] = b
	}
	b.lastSeen = now
	return b.lim.Allow()
}

// prune drops buckets idle long enough to have refilled. Caller holds mu.
func (c *clientLimiter) prune(now time.Time) {
	for client, b := range c.limiters {
		if now.Sub(b.lastSeen) >= c.idle {
			delete(c.limiters, client)
		}
	}
	c.lastPrune = now
}

// SetRate changes the limit for existing and future clients
func (c *clientLimiter) SetRate(perMinute int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.perMin = perMinute
	if perMinute <= 0 {
		c.limiters = make(map[string]*clientBucket)
		return
	}
	for _, b := range c.limiters {
		b.lim.SetLimit(c.limit())
		b.lim.SetBurst(perMinute)
	}
}
