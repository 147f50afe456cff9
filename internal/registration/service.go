// Package registration orchestrates address derivation, the risk classifier,
// and the ledger into the gateway's three operations: check, register,
// resolve. Each operation is a short-lived synchronous pipeline; the only
// state shared across requests is the immutable signing key and program id
// plus the per-name lock table.
package registration

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paras-lehana/dns-chain/internal/audit"
	"github.com/paras-lehana/dns-chain/internal/classifier"
	"github.com/paras-lehana/dns-chain/internal/dns"
	"github.com/paras-lehana/dns-chain/internal/registration/metrics"
	"github.com/paras-lehana/dns-chain/internal/solana"
	"github.com/paras-lehana/dns-chain/internal/wallet"
	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
	"github.com/paras-lehana/dns-chain/pkg/requestcontext"
)

// maxTargetLength bounds the target value in bytes. Semantic validation of
// the value (format, routability, risk) belongs to the classifier and the
// on-chain program, not this gateway.
const maxTargetLength = 256

// Ledger is the remote ledger capability the service depends on.
type Ledger interface {
	FetchAccount(ctx context.Context, key solana.PublicKey) (data []byte, exists bool, err error)
	Submit(ctx context.Context, instruction solana.Instruction, signer *wallet.Wallet) (signature string, err error)
}

// Classifier is the external risk classifier capability.
type Classifier interface {
	Classify(ctx context.Context, name, target, requestedBy string, at time.Time) classifier.Outcome
}

// CheckResult is the outcome of a check operation.
type CheckResult struct {
	Exists     bool
	StorageKey string
	Record     *dns.Record         // set when Exists
	Outcome    *classifier.Outcome // set when !Exists
}

// RegisterResult is the outcome of a register operation that reached a
// decision. Ledger failures are returned as errors instead.
type RegisterResult struct {
	Success    bool
	Signature  string
	StorageKey string
	Reason     string
	Confidence float64
	Fallback   bool
}

// ResolveResult is a successfully resolved record.
type ResolveResult struct {
	Record     dns.Record
	StorageKey string
}

// Service implements the registration gateway.
type Service struct {
	deriver    *dns.Deriver
	ledger     Ledger
	classifier Classifier
	wallet     *wallet.Wallet
	locks      *nameLocks
	publisher  *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithAuditPublisher enables audit event emission.
func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService wires the gateway's collaborators.
func NewService(deriver *dns.Deriver, ledger Ledger, cls Classifier, w *wallet.Wallet, opts ...Option) *Service {
	s := &Service{
		deriver:    deriver,
		ledger:     ledger,
		classifier: cls,
		wallet:     w,
		locks:      newNameLocks(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProgramID returns the registry program this gateway targets.
func (s *Service) ProgramID() solana.PublicKey {
	return s.deriver.Program()
}

func validateInput(name, target string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if target == "" {
		return dErrors.New(dErrors.CodeBadRequest, "target_value is required")
	}
	if len(target) > maxTargetLength {
		return dErrors.New(dErrors.CodeBadRequest, "target_value exceeds maximum length")
	}
	return nil
}

// Check reports whether a name is registered and, for available names, asks
// the classifier for a verdict. The classifier is only consulted for absent
// names; an existing registration is terminal.
func (s *Service) Check(ctx context.Context, name, target string) (*CheckResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Check",
		trace.WithAttributes(attribute.String("dns.name", name)))
	defer span.End()

	if err := validateInput(name, target); err != nil {
		return nil, err
	}
	key, _, err := s.deriver.Derive(name)
	if err != nil {
		return nil, err
	}

	data, exists, err := s.ledger.FetchAccount(ctx, key)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, "ledger read failed: "+err.Error())
	}
	if exists {
		record, err := dns.DecodeRecord(data)
		if err != nil {
			return nil, err
		}
		s.metrics.IncrementCheck("exists")
		s.emit(ctx, audit.Event{
			Action:     audit.ActionCheckPerformed,
			Name:       name,
			StorageKey: key.String(),
			Decision:   "exists",
		})
		return &CheckResult{Exists: true, StorageKey: key.String(), Record: &record}, nil
	}

	outcome := s.classify(ctx, name, target)
	s.metrics.IncrementCheck("available")
	s.emit(ctx, audit.Event{
		Action:     audit.ActionCheckPerformed,
		Name:       name,
		StorageKey: key.String(),
		Decision:   decisionOf(outcome.Verdict),
		Reason:     outcome.Verdict.Reason,
		Confidence: outcome.Verdict.Confidence,
		Fallback:   outcome.Fallback,
	})
	return &CheckResult{Exists: false, StorageKey: key.String(), Outcome: &outcome}, nil
}

// Register runs the validate-then-commit pipeline. The classifier verdict is
// the gate: nothing is written to the ledger without an affirmative verdict.
// Existence is not re-checked before the write; the remote program's
// single-initialization rule rejects the loser of any remaining race, and
// that rejection is surfaced to the caller as submit_failed.
func (s *Service) Register(ctx context.Context, name, target string) (*RegisterResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Register",
		trace.WithAttributes(attribute.String("dns.name", name)))
	defer span.End()

	if err := validateInput(name, target); err != nil {
		s.metrics.IncrementOutcome("invalid_input")
		return nil, err
	}
	key, _, err := s.deriver.Derive(name)
	if err != nil {
		s.metrics.IncrementOutcome("invalid_input")
		return nil, err
	}
	storageKey := key.String()

	// Serialize same-name registrations within this process. Held across the
	// classify→submit window so two local callers cannot both pass the gate
	// and race the write.
	s.locks.acquire(storageKey)
	defer s.locks.release(storageKey)

	outcome := s.classify(ctx, name, target)
	if !outcome.Verdict.Valid {
		s.metrics.IncrementOutcome("rejected")
		s.emit(ctx, audit.Event{
			Action:     audit.ActionRegistrationRejected,
			Name:       name,
			StorageKey: storageKey,
			Decision:   "rejected",
			Reason:     outcome.Verdict.Reason,
			Confidence: outcome.Verdict.Confidence,
			Fallback:   outcome.Fallback,
		})
		return &RegisterResult{
			Success:    false,
			StorageKey: storageKey,
			Reason:     outcome.Verdict.Reason,
			Confidence: outcome.Verdict.Confidence,
			Fallback:   outcome.Fallback,
		}, nil
	}

	instruction := solana.Instruction{
		ProgramID: s.deriver.Program(),
		Accounts: []solana.AccountMeta{
			{PublicKey: key, IsWritable: true},
			{PublicKey: s.wallet.PublicKey(), IsSigner: true, IsWritable: true},
			{PublicKey: solana.SystemProgramID},
		},
		Data: dns.EncodeRegister(name, target),
	}

	s.emit(ctx, audit.Event{
		Action:     audit.ActionRegistrationSubmitted,
		Name:       name,
		StorageKey: storageKey,
		Confidence: outcome.Verdict.Confidence,
		Fallback:   outcome.Fallback,
	})

	// Past the classifier gate the write runs to completion or to its own
	// confirmation timeout. A caller disconnect must not abort a transaction
	// that may already be in flight on the ledger.
	submitCtx := context.WithoutCancel(ctx)

	start := time.Now()
	signature, err := s.ledger.Submit(submitCtx, instruction, s.wallet)
	s.metrics.ObserveSubmit(time.Since(start))
	if err != nil {
		code := dErrors.CodeOf(err)
		outcomeLabel := "submit_failed"
		if code == dErrors.CodeConfirmationTimeout {
			outcomeLabel = "confirmation_timeout"
		}
		s.metrics.IncrementOutcome(outcomeLabel)
		s.logger.ErrorContext(ctx, "ledger submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"name", name,
			"storage_key", storageKey,
			"error", err,
		)
		s.emit(ctx, audit.Event{
			Action:     audit.ActionRegistrationFailed,
			Name:       name,
			StorageKey: storageKey,
			Reason:     err.Error(),
		})
		return nil, err
	}

	s.metrics.IncrementOutcome("confirmed")
	s.logger.InfoContext(ctx, "registration confirmed",
		"request_id", requestcontext.RequestID(ctx),
		"name", name,
		"storage_key", storageKey,
		"signature", signature,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.emit(ctx, audit.Event{
		Action:     audit.ActionRegistrationConfirmed,
		Name:       name,
		StorageKey: storageKey,
		Confidence: outcome.Verdict.Confidence,
		Fallback:   outcome.Fallback,
		Signature:  signature,
	})
	return &RegisterResult{
		Success:    true,
		Signature:  signature,
		StorageKey: storageKey,
		Confidence: outcome.Verdict.Confidence,
		Fallback:   outcome.Fallback,
	}, nil
}

// Resolve looks up a registered name. Absence is not_found, a normal outcome.
func (s *Service) Resolve(ctx context.Context, name string) (*ResolveResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Resolve",
		trace.WithAttributes(attribute.String("dns.name", name)))
	defer span.End()

	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	key, _, err := s.deriver.Derive(name)
	if err != nil {
		return nil, err
	}

	data, exists, err := s.ledger.FetchAccount(ctx, key)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, "ledger read failed: "+err.Error())
	}
	if !exists {
		s.metrics.IncrementResolve("not_found")
		return nil, dErrors.New(dErrors.CodeNotFound, "domain not registered")
	}
	record, err := dns.DecodeRecord(data)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementResolve("found")
	s.emit(ctx, audit.Event{
		Action:     audit.ActionDomainResolved,
		Name:       name,
		StorageKey: key.String(),
	})
	return &ResolveResult{Record: record, StorageKey: key.String()}, nil
}

func (s *Service) classify(ctx context.Context, name, target string) classifier.Outcome {
	start := time.Now()
	outcome := s.classifier.Classify(ctx, name, target, s.wallet.PublicKey().String(), requestcontext.Now(ctx))
	s.metrics.ObserveClassifier(time.Since(start), outcome.Fallback)
	return outcome
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	s.publisher.Emit(ctx, event)
}

func decisionOf(v dns.Verdict) string {
	if v.Valid {
		return "valid"
	}
	return "invalid"
}
