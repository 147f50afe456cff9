// Package classifier calls the external fraud/risk classifier. The
// integration contract is availability-first: any failure of the remote call
// degrades to a fixed permissive verdict instead of failing the request.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/paras-lehana/dns-chain/internal/dns"
)

// Timeout bounds the single attempt against the upstream classifier. It is
// enforced by this client, not the server, and is part of the integration
// contract rather than tunable configuration.
const Timeout = 10 * time.Second

// FallbackConfidence is the exact confidence of the degraded-mode verdict.
// Callers observing 0.5 can distinguish the fallback path from any genuine
// low-confidence outcome.
const FallbackConfidence = 0.5

const fallbackReason = "classifier unavailable, fallback used"

// Outcome distinguishes a verdict produced by the remote classifier from the
// local fallback verdict. The distinction is explicit rather than an error
// swallowed along the way: degrading is policy, not failure.
type Outcome struct {
	Verdict  dns.Verdict
	Fallback bool
}

// Client performs risk classification over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a logger for degraded-mode reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a classifier client for the fixed endpoint URL.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classifyRequest struct {
	Name        string `json:"name"`
	TargetValue string `json:"target_value"`
	RequestedBy string `json:"requestedBy"`
	Timestamp   string `json:"timestamp"`
}

// Classify performs exactly one classification attempt. The remote verdict is
// returned verbatim on success; a timeout, transport failure, non-2xx status,
// or unparseable body returns the fixed fallback verdict instead of an error.
func (c *Client) Classify(ctx context.Context, name, target, requestedBy string, at time.Time) Outcome {
	verdict, err := c.classifyOnce(ctx, name, target, requestedBy, at)
	if err != nil {
		c.logger.WarnContext(ctx, "classifier degraded, using fallback verdict",
			"name", name,
			"error", err,
		)
		return Outcome{
			Verdict: dns.Verdict{
				Valid:      true,
				Reason:     fallbackReason,
				Confidence: FallbackConfidence,
			},
			Fallback: true,
		}
	}
	return Outcome{Verdict: verdict}
}

func (c *Client) classifyOnce(ctx context.Context, name, target, requestedBy string, at time.Time) (dns.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	body, err := json.Marshal(classifyRequest{
		Name:        name,
		TargetValue: target,
		RequestedBy: requestedBy,
		Timestamp:   at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return dns.Verdict{}, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return dns.Verdict{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dns.Verdict{}, fmt.Errorf("classifier call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dns.Verdict{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var verdict dns.Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return dns.Verdict{}, fmt.Errorf("decode classifier response: %w", err)
	}
	return verdict, nil
}

// Health reports whether the classifier endpoint is reachable. Used by the
// health endpoint only; classification itself never depends on this.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
