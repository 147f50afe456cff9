package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
)

type stubLimiter struct {
	result Result
	err    error
	calls  int
}

func (s *stubLimiter) Allow(context.Context, string) (Result, error) {
	s.calls++
	return s.result, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(m *Middleware) (*httptest.ResponseRecorder, bool) {
	var reached bool
	h := m.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/register", nil))
	return rec, reached
}

func TestLimitAllows(t *testing.T) {
	primary := &stubLimiter{result: Result{Allowed: true, Remaining: 4}}
	rec, reached := serve(New(primary, nil, discardLogger()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Equal(t, 1, primary.calls)
}

func TestLimitThrottles(t *testing.T) {
	primary := &stubLimiter{result: Result{Allowed: false, RetryAfter: 30 * time.Second}}
	rec, reached := serve(New(primary, nil, discardLogger()))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, reached)
	assert.Equal(t, "31", rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(dErrors.CodeRateLimited), body["error"])
}

func TestLimitFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &stubLimiter{err: errors.New("redis down")}
	fallback := &stubLimiter{result: Result{Allowed: false, RetryAfter: time.Second}}
	rec, reached := serve(New(primary, fallback, discardLogger()))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, reached)
	assert.Equal(t, 1, fallback.calls)
}

func TestLimitFailsOpenWithoutFallback(t *testing.T) {
	primary := &stubLimiter{err: errors.New("redis down")}
	rec, reached := serve(New(primary, nil, discardLogger()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestLimitFailsOpenWhenBothFail(t *testing.T) {
	primary := &stubLimiter{err: errors.New("redis down")}
	fallback := &stubLimiter{err: errors.New("also down")}
	rec, reached := serve(New(primary, fallback, discardLogger()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}
