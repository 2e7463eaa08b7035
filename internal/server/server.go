package server

import (
	"embed"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"
)

//go:embed static/index.html
var staticFS embed.FS

// Options tune the dashboard views.
type Options struct {
	TopStations   int
	MaxMarkerSize float64
	RateLimit     rate.Limit
	RateBurst     int
	AllowedOrigin string
}

// Server is the dashboard HTTP layer over a Provider.
type Server struct {
	provider Provider
	opts     Options
	printer  *message.Printer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Server. Zero option fields fall back to the original
// dashboard's behavior: top 5 stations and a 1000-point maximum marker.
func New(provider Provider, opts Options) *Server {
	if opts.TopStations <= 0 {
		opts.TopStations = 5
	}
	if opts.MaxMarkerSize <= 0 {
		opts.MaxMarkerSize = 1000
	}
	return &Server{
		provider: provider,
		opts:     opts,
		printer:  message.NewPrinter(language.Spanish),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.opts.RateLimit > 0 {
		r.Use(s.rateLimit)
	}

	origin := s.opts.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/lines", s.handleLines)
		r.Route("/lines/{line}", func(r chi.Router) {
			r.Get("/bounds", s.handleBounds)
			r.Get("/chart", s.handleChart)
			r.Get("/map", s.handleMap)
			r.Get("/table", s.handleTable)
		})
	})
	r.Get("/", s.handleIndex)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "dashboard page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// logRequests logs each request with the global zap logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// rateLimit applies a per-client token bucket.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter(host).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiter(host string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(s.opts.RateLimit, s.opts.RateBurst)
		s.limiters[host] = l
	}
	return l
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
