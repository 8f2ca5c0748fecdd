package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"CountryAtlas/internal/domain"
	"CountryAtlas/internal/metrics"
)

// CountryQueries is the read and admin side the handlers need.
type CountryQueries interface {
	List(ctx context.Context, filter domain.CountryFilter) ([]domain.Country, error)
	Get(ctx context.Context, name string) (domain.Country, error)
	Delete(ctx context.Context, name string) (int64, error)
	Status(ctx context.Context) (domain.StoreStatus, error)
	Ping(ctx context.Context) error
	SummaryImage() (string, error)
}

// RefreshRunner triggers a refresh and reports its progress.
type RefreshRunner interface {
	Refresh(ctx context.Context) (domain.RefreshResult, error)
	State() domain.RefreshState
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(queries CountryQueries, refresher RefreshRunner, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{queries: queries, refresher: refresher, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(observe(m, logger))

	r.Get("/status", h.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/countries", func(r chi.Router) {
		r.Get("/", h.ListCountries)
		r.Get("/status", h.StoreStatus)
		r.Get("/image", h.SummaryImage)
		r.Post("/refresh", h.Refresh)
		r.Get("/{name}", h.GetCountry)
		r.Delete("/{name}", h.DeleteCountry)
	})

	return r
}

// observe records request metrics under the matched route pattern and logs each request.
func observe(m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			took := time.Since(start)
			m.ObserveHTTP(r.Method, route, strconv.Itoa(status), took)
			logger.Debug("http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"took", took,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
