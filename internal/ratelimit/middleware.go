package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"

	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
	"github.com/paras-lehana/dns-chain/pkg/platform/httputil"
	"github.com/paras-lehana/dns-chain/pkg/requestcontext"
)

// Middleware applies the limiter to wrapped handlers. A primary limiter error
// switches to the fallback for that request; with no usable limiter the
// request passes (fail-open: rate limiting protects capacity, it is not a
// correctness gate).
type Middleware struct {
	primary  Limiter
	fallback Limiter
	logger   *slog.Logger
}

// New builds the middleware. fallback may be nil.
func New(primary, fallback Limiter, logger *slog.Logger) *Middleware {
	return &Middleware{primary: primary, fallback: fallback, logger: logger}
}

// Limit enforces the per-client limit on the wrapped handler.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := requestcontext.ClientIP(ctx)
		if key == "" {
			key = r.RemoteAddr
		}

		result, err := m.primary.Allow(ctx, key)
		if err != nil {
			if m.fallback == nil {
				m.logger.ErrorContext(ctx, "rate limiter unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			m.logger.WarnContext(ctx, "primary rate limiter failed, using fallback", "error", err)
			result, err = m.fallback.Allow(ctx, key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		if !result.Allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())+1))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many registration requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
