package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-data-explorer/internal/apierror"
	"github.com/JakeFAU/product-data-explorer/internal/cache"
	"github.com/JakeFAU/product-data-explorer/internal/metrics"
	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

// Catalog serves the scraped bookstore resources.
type Catalog interface {
	Headings(ctx context.Context) ([]scraper.Heading, error)
	Categories(ctx context.Context, heading string) ([]scraper.Category, error)
	Products(ctx context.Context, category string, page int) ([]scraper.Product, error)
	Product(ctx context.Context, id, pageURL string) (scraper.ProductDetail, error)
	Search(ctx context.Context, query string, page int) ([]scraper.SearchResult, error)
}

// CacheAdmin exposes cache introspection and reset.
type CacheAdmin interface {
	Stats() cache.Stats
	Clear()
}

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	Development    bool
	Logger         *zap.Logger
	// Started is the process start time reported as uptime.
	Started time.Time
}

// Server wires HTTP handlers to the catalog and cache.
type Server struct {
	router  chi.Router
	catalog Catalog
	cache   CacheAdmin
	errors  *apierror.Writer
	logger  *zap.Logger
	started time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(catalog Catalog, cacheAdmin CacheAdmin, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	started := opts.Started
	if started.IsZero() {
		started = time.Now()
	}
	s := &Server{
		catalog: catalog,
		cache:   cacheAdmin,
		errors:  apierror.NewWriter(opts.Development, logger),
		logger:  logger,
		started: started,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.NotFound(s.errors.NotFound)
	r.MethodNotAllowed(s.errors.NotFound)

	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Get("/headings", s.headings)
		r.Get("/categories/{heading}", s.categories)
		r.Get("/products/{category}", s.products)
		r.Get("/product/{id}", s.product)
		r.Get("/search", s.search)
		r.Get("/health", s.health)
		r.Get("/cache/stats", s.cacheStats)
		r.Delete("/cache", s.clearCache)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) headings(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Headings(r.Context())
	s.respond(w, r, out, err)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Categories(r.Context(), chi.URLParam(r, "heading"))
	s.respond(w, r, out, err)
}

func (s *Server) products(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Products(r.Context(), chi.URLParam(r, "category"), pageParam(r))
	s.respond(w, r, out, err)
}

func (s *Server) product(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Product(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("url"))
	s.respond(w, r, out, err)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	out, err := s.catalog.Search(r.Context(), r.URL.Query().Get("q"), pageParam(r))
	s.respond(w, r, out, err)
}

type memoryStats struct {
	RSS       uint64 `json:"rss"`
	HeapTotal uint64 `json:"heapTotal"`
	HeapUsed  uint64 `json:"heapUsed"`
	External  uint64 `json:"external"`
}

type healthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Uptime    float64     `json:"uptime"`
	Memory    memoryStats `json:"memory"`
	Cache     cache.Stats `json:"cache"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Seconds(),
		Memory: memoryStats{
			RSS:       ms.Sys,
			HeapTotal: ms.HeapSys,
			HeapUsed:  ms.HeapAlloc,
			External:  ms.StackSys,
		},
		Cache: s.cache.Stats(),
	})
}

func (s *Server) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) clearCache(w http.ResponseWriter, _ *http.Request) {
	s.cache.Clear()
	s.logger.Info("cache cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, payload any, err error) {
	if err != nil {
		s.errors.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// pageParam parses ?page as a positive integer, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}
