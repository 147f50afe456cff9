package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/paras-lehana/dns-chain/internal/dns"
	"github.com/paras-lehana/dns-chain/internal/registration"
	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
	"github.com/paras-lehana/dns-chain/pkg/platform/httputil"
	"github.com/paras-lehana/dns-chain/pkg/requestcontext"
)

// Service defines the interface for registration operations.
type Service interface {
	Check(ctx context.Context, name, target string) (*registration.CheckResult, error)
	Register(ctx context.Context, name, target string) (*registration.RegisterResult, error)
	Resolve(ctx context.Context, name string) (*registration.ResolveResult, error)
}

// HealthChecker reports reachability of an external collaborator.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler wires registration endpoints to the registration service.
type Handler struct {
	service          Service
	logger           *slog.Logger
	programID        string
	ledgerHealth     HealthChecker
	classifierHealth HealthChecker
}

// New constructs a registration handler with its dependencies.
func New(service Service, logger *slog.Logger, programID string, ledgerHealth, classifierHealth HealthChecker) *Handler {
	return &Handler{
		service:          service,
		logger:           logger,
		programID:        programID,
		ledgerHealth:     ledgerHealth,
		classifierHealth: classifierHealth,
	}
}

// Register mounts registration endpoints on the router. The register route is
// returned separately so the caller can wrap it with rate limiting.
func (h *Handler) Register(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Post("/api/check", h.HandleCheck)
	if limit != nil {
		r.With(limit).Post("/api/register", h.HandleRegister)
	} else {
		r.Post("/api/register", h.HandleRegister)
	}
	r.Get("/api/resolve", h.HandleResolve)
	r.Get("/health", h.HandleHealth)
}

type nameRequest struct {
	Name        string `json:"name"`
	TargetValue string `json:"target_value"`
}

type recordResponse struct {
	Name        string `json:"name"`
	TargetValue string `json:"target_value"`
	StorageKey  string `json:"storageKey"`
	Authority   string `json:"authority,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type checkResponse struct {
	Exists     bool            `json:"exists"`
	StorageKey string          `json:"storageKey"`
	Record     *recordResponse `json:"record,omitempty"`
	Valid      *bool           `json:"valid,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	RiskLevel  string          `json:"riskLevel,omitempty"`
	Checks     map[string]bool `json:"checks,omitempty"`
	Fallback   bool            `json:"fallback,omitempty"`
}

// HandleCheck handles POST /api/check requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[nameRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Check(ctx, req.Name, req.TargetValue)
	if err != nil {
		h.logError(ctx, "check failed", req.Name, err)
		httputil.WriteError(w, err)
		return
	}

	resp := checkResponse{Exists: result.Exists, StorageKey: result.StorageKey}
	if result.Exists {
		resp.Record = toRecordResponse(*result.Record, result.StorageKey)
	} else {
		verdict := result.Outcome.Verdict
		resp.Valid = &verdict.Valid
		resp.Reason = verdict.Reason
		resp.Confidence = &verdict.Confidence
		resp.RiskLevel = verdict.RiskLevel
		resp.Checks = verdict.Checks
		resp.Fallback = result.Outcome.Fallback
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type registerResponse struct {
	Success           bool    `json:"success"`
	TransactionHandle string  `json:"transactionHandle,omitempty"`
	StorageKey        string  `json:"storageKey,omitempty"`
	Reason            string  `json:"reason,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	Fallback          bool    `json:"fallback,omitempty"`
}

// HandleRegister handles POST /api/register requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	req, ok := httputil.DecodeJSON[nameRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Register(ctx, req.Name, req.TargetValue)
	if err != nil {
		h.logError(ctx, "register failed", req.Name, err)
		writeRegisterFailure(w, err)
		return
	}

	h.logger.InfoContext(ctx, "register handled",
		"request_id", requestcontext.RequestID(ctx),
		"name", req.Name,
		"success", result.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, registerResponse{
		Success:           result.Success,
		TransactionHandle: result.Signature,
		StorageKey:        result.StorageKey,
		Reason:            result.Reason,
		Confidence:        result.Confidence,
		Fallback:          result.Fallback,
	})
}

// writeRegisterFailure reports a terminal ledger or input failure. The body
// carries success=false alongside the error envelope because clients key off
// the success field rather than the transport status.
func writeRegisterFailure(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]any{
		"success": false,
		"error":   string(code),
	}
	if gw, ok := err.(dErrors.GatewayError); ok && code != dErrors.CodeInternal {
		body["error_description"] = gw.Message
	}
	httputil.WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// HandleResolve handles GET /api/resolve?name=... requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")

	result, err := h.service.Resolve(ctx, name)
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeNotFound {
			h.logError(ctx, "resolve failed", name, err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(result.Record, result.StorageKey))
}

type healthResponse struct {
	Status     string `json:"status"`
	ProgramID  string `json:"programId"`
	Ledger     string `json:"ledger"`
	Classifier string `json:"classifier"`
}

// HandleHealth handles GET /health. Collaborator probes run concurrently; a
// degraded collaborator downgrades status without failing the endpoint.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", ProgramID: h.programID, Ledger: "ok", Classifier: "ok"}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.ledgerHealth.Health(ctx); err != nil {
			resp.Ledger = err.Error()
		}
		return nil
	})
	g.Go(func() error {
		if err := h.classifierHealth.Health(ctx); err != nil {
			resp.Classifier = err.Error()
		}
		return nil
	})
	_ = g.Wait()

	if resp.Ledger != "ok" || resp.Classifier != "ok" {
		resp.Status = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func toRecordResponse(rec dns.Record, storageKey string) *recordResponse {
	resp := &recordResponse{
		Name:        rec.Name,
		TargetValue: rec.Target,
		StorageKey:  storageKey,
		Authority:   rec.Authority,
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) logError(ctx context.Context, msg, name string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"name", name,
		"error", err,
	)
}
