package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/config"
	"github.com/ops-vnc/adconsole/internal/console"
	"github.com/ops-vnc/adconsole/internal/crawlctl"
	"github.com/ops-vnc/adconsole/internal/history"
	"github.com/ops-vnc/adconsole/internal/metrics"
	"github.com/ops-vnc/adconsole/internal/registry"
	"github.com/ops-vnc/adconsole/internal/scheduler"
	"github.com/ops-vnc/adconsole/internal/searchhist"
)

// AdSource fetches the raw ad history from the backend.
type AdSource interface {
	FetchAds(ctx context.Context) ([]console.AdRecord, error)
}

// Server wires HTTP handlers to the crawl controller, history view, and
// registries.
type Server struct {
	router     chi.Router
	controller *crawlctl.Controller
	view       *history.View
	ads        AdSource
	sched      *scheduler.Store
	keywords   *registry.Keywords
	profiles   *registry.Profiles
	searches   *searchhist.Store
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	controller *crawlctl.Controller,
	view *history.View,
	ads AdSource,
	sched *scheduler.Store,
	keywords *registry.Keywords,
	profiles *registry.Profiles,
	searches *searchhist.Store,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		controller: controller,
		view:       view,
		ads:        ads,
		sched:      sched,
		keywords:   keywords,
		profiles:   profiles,
		searches:   searches,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/crawl", func(r chi.Router) {
			r.Post("/start", s.startCrawl)
			r.Get("/state", s.crawlState)
		})
		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/config", s.getSchedulerConfig)
			r.Put("/config", s.putSchedulerConfig)
		})
		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.historyPage)
			r.Post("/reload", s.reloadHistory)
			r.Post("/search", s.searchHistory)
			r.Post("/column-search", s.searchColumns)
			r.Put("/page", s.setPage)
			r.Put("/per-page", s.setPerPage)
			r.Get("/searches", s.recentSearches)
		})
		r.Route("/keywords", func(r chi.Router) {
			r.Get("/", s.listKeywords)
			r.Post("/", s.addKeywords)
			r.Post("/delete-batch", s.deleteKeywordBatch)
			r.Put("/{keyword_id}", s.updateKeyword)
			r.Delete("/{keyword_id}", s.deleteKeyword)
		})
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.listProfiles)
			r.Post("/", s.createProfile)
			r.Put("/{profile_id}", s.updateProfile)
			r.Delete("/{profile_id}", s.deleteProfile)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The console is ready as soon as it serves; backend reachability is
	// observable through the crawl state and history endpoints.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
