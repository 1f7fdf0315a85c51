package http

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/tubeaudio/pkg/assets"
	"github.com/m-mizutani/tubeaudio/pkg/domain/interfaces"
	"golang.org/x/time/rate"
)

// DefaultAddr binds all interfaces on a fixed port
const DefaultAddr = "0.0.0.0:5000"

// config holds internal HTTP server configuration
type config struct {
	addr      string
	staticFS  fs.FS
	rateLimit rate.Limit
	rateBurst int
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithStaticFS replaces the embedded front-end with root
func WithStaticFS(root fs.FS) Option {
	return func(c *config) {
		c.staticFS = root
	}
}

// WithRateLimit limits conversion submissions to perSecond requests with
// burst. Zero or negative perSecond disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *config) {
		c.rateLimit = rate.Limit(perSecond)
		c.rateBurst = burst
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	jobUC interfaces.JobUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr: DefaultAddr,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.staticFS == nil {
		root, err := assets.FS()
		if err != nil {
			return nil, err
		}
		cfg.staticFS = root
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Submissions start extractor processes, so they share one limiter
	submit := router.With()
	if cfg.rateLimit > 0 {
		burst := max(cfg.rateBurst, 1)
		submit = router.With(RateLimitMiddleware(rate.NewLimiter(cfg.rateLimit, burst)))
	}

	// Health check
	health := &healthHandler{jobUC: jobUC}
	router.Get("/health", health.Handle)

	// Conversion
	download := &downloadHandler{jobUC: jobUC}
	submit.Post("/download", download.Handle)

	jobs := &jobHandler{jobUC: jobUC}
	submit.Post("/jobs", jobs.Submit)
	router.Get("/jobs/{id}", jobs.Get)
	router.Get("/jobs/{id}/file", jobs.File)

	// Front-end
	static := &staticHandler{root: cfg.staticFS}
	router.Get("/", static.Index)
	router.Get("/*", static.File)

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
