package httpapi

import (
	"net/http"
	"time"

	"productservice/internal/config"
	"productservice/internal/platform/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, logger observability.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", h.Health)

	r.Route("/v1/products", func(r chi.Router) {
		r.Get("/{id}", h.GetProduct)
		r.Patch("/{id}", h.UpdateStock)
	})

	r.Route("/v2/products", func(r chi.Router) {
		r.Patch("/{id}", h.UpdateStockAsync)
	})

	return otelhttp.NewHandler(r, config.ServiceName)
}

func requestLogger(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request handled",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
