// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/ledger"
	applog "tally/internal/log"
)

// LedgerService is the application surface the handlers talk to.
type LedgerService interface {
	Add(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Edit(ctx context.Context, id int64, patch ledger.Patch) (core.Transaction, error)
	Remove(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (core.Transaction, error)
	List(ctx context.Context, f ledger.Filter) ([]core.Transaction, error)
	Categories(ctx context.Context) ([]string, error)
	Summarize(ctx context.Context, p core.Period) (core.PeriodSummary, error)
	Trend(ctx context.Context, year int) ([]core.PeriodSummary, error)
}

type Server struct {
	http.Server
	service     LedgerService
	rateLimiter *rateLimiter

	// LRU caches for the read endpoints, invalidated on mutation
	summaryCache *cache.LRUCache[core.PeriodSummary]
	trendCache   *cache.LRUCache[[]core.PeriodSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Options tune the server's caches.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

func defaultOptions() Options {
	return Options{
		CacheSize: 128,
		CacheTTL:  5 * time.Minute,
	}
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, service LedgerService, opts *Options) *Server {
	o := defaultOptions()
	if opts != nil {
		if opts.CacheSize > 0 {
			o.CacheSize = opts.CacheSize
		}
		if opts.CacheTTL > 0 {
			o.CacheTTL = opts.CacheTTL
		}
	}

	mux := http.NewServeMux()

	// Every request carries a component logger and a request id in its
	// context; handlers pick them up with log.FromContext.
	logger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.Default().Handler(),
	})
	handler := applog.Middleware(logger)(applog.RequestIDMiddleware(func(*http.Request) string {
		return generateRequestID()
	})(mux))

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: handler,
		},
		service:      service,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[core.PeriodSummary](o.CacheSize, o.CacheTTL),
		trendCache:   cache.NewLRUCache[[]core.PeriodSummary](o.CacheSize, o.CacheTTL),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.trendCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.withSecurityHeaders(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.withSecurityHeaders(s.handlePatchTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurityHeaders(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/categories", s.withSecurityHeaders(s.handleCategories))
	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("GET /api/trend", s.withSecurityHeaders(s.handleTrend))
	mux.HandleFunc("GET /api/reports/summary.pdf", s.withSecurityHeaders(s.handleSummaryPDF))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		httpLog := applog.NewStructuredLogger(applog.FromContext(ctx))
		httpLog.LogHTTPStart(ctx, r, clientIP)

		// Rate limit mutations only
		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Capture status code for the completion log
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidatePeriodCaches drops the cached views touched by a mutation in the
// given period. Whole-year summaries share the year prefix with the months.
func (s *Server) invalidatePeriodCaches(p core.Period) {
	year := core.Period{Year: p.Year}
	s.summaryCache.DeletePrefix("summary:" + year.String())
	s.trendCache.Delete("trend:" + year.String())
}
