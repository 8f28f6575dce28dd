// Package web provides the HTTP server and handlers for the back-office API.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poskit/backoffice/internal/audit"
	"github.com/poskit/backoffice/internal/catalog"
	"github.com/poskit/backoffice/internal/config"
	"github.com/poskit/backoffice/internal/importer"
)

// CatalogService is the slice of the data-access layer the handlers use.
// *client.Client satisfies it.
type CatalogService interface {
	importer.CatalogService

	Sales(ctx context.Context) ([]catalog.Sale, error)
	Users(ctx context.Context) ([]catalog.User, error)

	DeleteProduct(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, name string) (catalog.Category, error)
	UpdateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateManufacturer(ctx context.Context, name string) (catalog.Manufacturer, error)
	UpdateManufacturer(ctx context.Context, m catalog.Manufacturer) (catalog.Manufacturer, error)
	DeleteManufacturer(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
	InvalidateAll()
}

// Server is the HTTP server for the back-office application.
type Server struct {
	cfg     *config.Config
	service CatalogService
	engine  *importer.Engine
	passes  *importer.PassLimiter
	history *audit.Store
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server instance. history may be nil when no database is
// configured.
func NewServer(cfg *config.Config, service CatalogService, passes *importer.PassLimiter, history *audit.Store) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		engine:  importer.NewEngine(service),
		passes:  passes,
		history: history,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Import.Timeout + time.Minute))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Catalog reads
		r.Get("/products", s.handleListProducts)
		r.Get("/categories", s.handleListCategories)
		r.Get("/manufacturers", s.handleListManufacturers)
		r.Get("/users", s.handleListUsers)
		r.Get("/analytics/sales", s.handleSalesSummary)

		// Catalog mutations, proxied to the remote service
		r.Post("/products", s.handleCreateProduct)
		r.Put("/products/{id}", s.handleUpdateProduct)
		r.Delete("/products/{id}", s.handleDeleteProduct)

		r.Post("/categories", s.handleCreateCategory)
		r.Put("/categories/{id}", s.handleUpdateCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)

		r.Post("/manufacturers", s.handleCreateManufacturer)
		r.Put("/manufacturers/{id}", s.handleUpdateManufacturer)
		r.Delete("/manufacturers/{id}", s.handleDeleteManufacturer)

		r.Delete("/users/{id}", s.handleDeleteUser)

		// Import and export
		r.With(s.importRateLimit()).Post("/import/products", s.handleImport)
		r.Get("/import/history", s.handleImportHistory)
		r.Get("/import/history/{id}", s.handleImportPass)
		r.Get("/export/products", s.handleExport)

		// Cache control
		r.Post("/cache/refresh", s.handleCacheRefresh)
	})
}

// importRateLimit rate-limits the import endpoint separately: a tighter
// budget than the global one, since each request can run a full pass.
func (s *Server) importRateLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute)
	return limiter.middleware
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":         "ok",
		"active_imports": s.passes.ActiveCount(),
		"history":        s.history.Enabled(),
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
