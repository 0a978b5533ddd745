package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "certflow/internal/jwt_token"
	"certflow/internal/lifecycle/handler"
	httpmetrics "certflow/internal/platform/metrics"
	"certflow/pkg/platform/httputil"
	"certflow/pkg/platform/middleware/request"
)

func newRouter(rt *runtime) http.Handler {
	cfg := rt.cfg
	r := chi.NewRouter()

	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	} else {
		rt.logger.Info("CORS not configured - same-origin requests only")
	}

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		httplog.RequestLogger(rt.logger, &httplog.Options{Level: slog.LevelInfo}),
		middleware.Recoverer,
		request.Context,
		httpmetrics.New().Middleware,
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := rt.health(r.Context()); err != nil {
			rt.logger.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)
	handler.New(rt.service, tokens, cfg.Payment.WebhookSecret, rt.logger).Register(r)
	return r
}
