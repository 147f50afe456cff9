// Package httpapi assembles the HTTP surface: registration endpoints, health,
// metrics, and the static UI. Handlers delegate to domain services; transport
// concerns stay here.
package httpapi

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paras-lehana/dns-chain/internal/registration/handler"
	"github.com/paras-lehana/dns-chain/pkg/requestcontext"
)

// NewRouter wires all public endpoints.
func NewRouter(h *handler.Handler, logger *slog.Logger, limit func(http.Handler) http.Handler, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestMetadata)
	r.Use(accessLog(logger))

	h.Register(r, limit)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if index := filepath.Join(staticDir, "index.html"); fileExists(index) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, index)
		})
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	return r
}

// requestMetadata stamps each request with an ID and the client IP so
// downstream logs and audit events correlate.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)

		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}
		ctx = requestcontext.WithClientIP(ctx, ip)
		ctx = requestcontext.WithTime(ctx, time.Now())

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.DebugContext(r.Context(), "request handled",
				"request_id", requestcontext.RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
