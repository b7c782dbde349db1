package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"practicetest-core/internal/infra/logging"
	"practicetest-core/internal/infra/redis"
	"practicetest-core/internal/usecase"
)

type RateLimit struct {
	Requests int
	Window   time.Duration
}

type Server struct {
	orc       *usecase.Orchestrator
	quota     *usecase.QuotaService
	verifier  *Verifier
	limiter   *redis.RateLimiter
	rateLimit RateLimit
	log       *zerolog.Logger
}

func NewServer(
	orc *usecase.Orchestrator,
	quota *usecase.QuotaService,
	verifier *Verifier,
	limiter *redis.RateLimiter,
	rateLimit RateLimit,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		orc:       orc,
		quota:     quota,
		verifier:  verifier,
		limiter:   limiter,
		rateLimit: rateLimit,
		log:       logger,
	}
}

// Router builds the full route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.rateLimitMiddleware).Post("/jobs", s.createJobHandler)
		r.Get("/jobs/{id}/status", s.jobStatusHandler)
		r.Get("/jobs/{id}/result", s.jobResultHandler)
		r.Delete("/jobs/{id}", s.cancelJobHandler)
		r.Get("/limits", s.limitsHandler)
	})
	return r
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.verifier.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := withIdentity(r.Context(), claims.Subject, claims.Role)
		ctx = logging.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, _ := identityFrom(r.Context())
		ok, err := s.limiter.Allow(r.Context(), redis.UserRouteKey(userID, "create_job"), s.rateLimit.Requests, s.rateLimit.Window)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, letting request through")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
