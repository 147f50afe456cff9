// Package ledger wraps the remote ledger's JSON-RPC interface: account reads
// and the submit-and-confirm write path. The ledger itself is an external,
// host-controlled system; this client never interprets program semantics
// beyond the account bytes it hands back.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paras-lehana/dns-chain/internal/solana"
	"github.com/paras-lehana/dns-chain/internal/wallet"
	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
)

// commitment is the confirmation level both reads and writes settle at.
const commitment = "confirmed"

const confirmPollInterval = 500 * time.Millisecond

// Client talks JSON-RPC 2.0 to a single ledger node.
type Client struct {
	url            string
	httpClient     *http.Client
	logger         *slog.Logger
	confirmTimeout time.Duration
	nextID         atomic.Uint64
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithConfirmTimeout overrides how long Submit waits for confirmation.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.confirmTimeout = d
	}
}

// New builds a ledger client for the given RPC endpoint.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:            url,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         slog.Default(),
		confirmTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return &RPCError{Method: method, Code: envelope.Error.Code, Message: envelope.Error.Message, Data: envelope.Error.Data}
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// RPCError is a structured error returned by the remote node.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

// Logs extracts any program log lines attached to the error.
func (e *RPCError) Logs() []string {
	if len(e.Data) == 0 {
		return nil
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil
	}
	return data.Logs
}

type accountInfoResult struct {
	Value *struct {
		Data  []string `json:"data"`
		Owner string   `json:"owner"`
	} `json:"value"`
}

// FetchAccount reads the raw bytes stored at an address. Absence — no account
// object, or an account with zero-length data — is reported as exists=false,
// never as an error.
func (c *Client) FetchAccount(ctx context.Context, key solana.PublicKey) (data []byte, exists bool, err error) {
	var result accountInfoResult
	params := []any{key.String(), map[string]any{"encoding": "base64", "commitment": commitment}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, false, err
	}
	if result.Value == nil || len(result.Value.Data) == 0 {
		return nil, false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		return nil, false, fmt.Errorf("decode account data: %w", err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	return raw, true, nil
}

type blockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

func (c *Client) latestBlockhash(ctx context.Context) (solana.Blockhash, error) {
	var result blockhashResult
	params := []any{map[string]any{"commitment": commitment}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return solana.Blockhash{}, err
	}
	return solana.ParseBlockhash(result.Value.Blockhash)
}

// Submit signs and sends a transaction containing exactly the given
// instruction, then blocks until the node reports confirmation. A failed send
// surfaces submit_failed with any remote program logs attached; a confirmation
// that does not arrive within the window surfaces confirmation_timeout.
// Submission is never retried here: the remote program's single-initialization
// rule is the idempotency backstop, and a blind resend could only race it.
func (c *Client) Submit(ctx context.Context, instruction solana.Instruction, signer *wallet.Wallet) (string, error) {
	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return "", dErrors.New(dErrors.CodeSubmitFailed, fmt.Sprintf("fetch blockhash: %v", err))
	}

	tx := solana.NewTransaction(signer.PublicKey(), blockhash, instruction)
	wire, _, err := tx.Sign(signer.PrivateKey())
	if err != nil {
		return "", dErrors.New(dErrors.CodeSubmitFailed, fmt.Sprintf("sign transaction: %v", err))
	}

	encoded := base64.StdEncoding.EncodeToString(wire)
	params := []any{encoded, map[string]any{"encoding": "base64", "preflightCommitment": commitment}}
	var sent string
	if err := c.call(ctx, "sendTransaction", params, &sent); err != nil {
		msg := err.Error()
		if rpcErr, ok := err.(*RPCError); ok {
			if logs := rpcErr.Logs(); len(logs) > 0 {
				msg = fmt.Sprintf("%s; program logs: %s", rpcErr.Message, strings.Join(logs, " | "))
			} else {
				msg = rpcErr.Message
			}
		}
		return "", dErrors.New(dErrors.CodeSubmitFailed, msg)
	}

	if err := c.confirm(ctx, sent); err != nil {
		return "", err
	}
	return sent, nil
}

type signatureStatusesResult struct {
	Value []*struct {
		ConfirmationStatus string `json:"confirmationStatus"`
		Err                any    `json:"err"`
	} `json:"value"`
}

func (c *Client) confirm(ctx context.Context, signature string) error {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		var result signatureStatusesResult
		err := c.call(ctx, "getSignatureStatuses", []any{[]string{signature}}, &result)
		if err == nil && len(result.Value) == 1 && result.Value[0] != nil {
			status := result.Value[0]
			if status.Err != nil {
				return dErrors.New(dErrors.CodeSubmitFailed, fmt.Sprintf("transaction failed on chain: %v", status.Err))
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}
		if err != nil {
			c.logger.WarnContext(ctx, "signature status poll failed", "signature", signature, "error", err)
		}

		if time.Now().After(deadline) {
			return dErrors.New(dErrors.CodeConfirmationTimeout, fmt.Sprintf("transaction %s not confirmed within %s", signature, c.confirmTimeout))
		}
		select {
		case <-ctx.Done():
			return dErrors.New(dErrors.CodeConfirmationTimeout, fmt.Sprintf("confirmation wait aborted: %v", ctx.Err()))
		case <-ticker.C:
		}
	}
}

// Health asks the node whether it considers itself healthy.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var status string
	if err := c.call(ctx, "getHealth", nil, &status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("node reports %q", status)
	}
	return nil
}
