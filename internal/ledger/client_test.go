package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paras-lehana/dns-chain/internal/solana"
	"github.com/paras-lehana/dns-chain/internal/wallet"
	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
)

const zeroHash32 = "11111111111111111111111111111111"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rpcStub serves JSON-RPC responses keyed by method name and records every
// call in order.
type rpcStub struct {
	t        *testing.T
	handlers map[string]func(params []json.RawMessage) (result string, rpcErr string)
	calls    []string
}

func newRPCStub(t *testing.T) *rpcStub {
	return &rpcStub{
		t:        t,
		handlers: map[string]func([]json.RawMessage) (string, string){},
	}
}

func (s *rpcStub) on(method string, handler func([]json.RawMessage) (string, string)) {
	s.handlers[method] = handler
}

func (s *rpcStub) onResult(method, result string) {
	s.on(method, func([]json.RawMessage) (string, string) { return result, "" })
}

func (s *rpcStub) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
		s.calls = append(s.calls, req.Method)

		handler, ok := s.handlers[req.Method]
		require.True(s.t, ok, "unexpected rpc method %s", req.Method)

		result, rpcErr := handler(req.Params)
		w.Header().Set("Content-Type", "application/json")
		if rpcErr != "" {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"error":%s}`, rpcErr)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	values := make([]int, len(priv))
	for i, b := range priv {
		values[i] = int(b)
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)
	w, err := wallet.Parse(raw)
	require.NoError(t, err)
	return w
}

func testInstruction(t *testing.T, w *wallet.Wallet) solana.Instruction {
	t.Helper()
	program, err := solana.ParsePublicKey("H7azh1pVd3uySy7z4JRmQL2HpF2D9673Y9RP4yXZWfFM")
	require.NoError(t, err)
	pda, _, err := solana.FindProgramAddress([][]byte{[]byte("domain"), []byte("ledger.test")}, program)
	require.NoError(t, err)
	return solana.Instruction{
		ProgramID: program,
		Accounts: []solana.AccountMeta{
			{PublicKey: pda, IsWritable: true},
			{PublicKey: w.PublicKey(), IsSigner: true, IsWritable: true},
			{PublicKey: solana.SystemProgramID},
		},
		Data: []byte{1, 2, 3},
	}
}

func TestFetchAccountPresent(t *testing.T) {
	payload := []byte("record bytes")
	stub := newRPCStub(t)
	stub.on("getAccountInfo", func(params []json.RawMessage) (string, string) {
		var addr string
		require.NoError(t, json.Unmarshal(params[0], &addr))
		assert.Equal(t, zeroHash32, addr)
		return fmt.Sprintf(`{"value":{"data":[%q,"base64"],"owner":"x"}}`, base64.StdEncoding.EncodeToString(payload)), ""
	})
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	data, exists, err := c.FetchAccount(context.Background(), solana.PublicKey{})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, payload, data)
}

func TestFetchAccountAbsent(t *testing.T) {
	cases := map[string]string{
		"null value": `{"value":null}`,
		"empty data": `{"value":{"data":["","base64"],"owner":"x"}}`,
	}
	for name, result := range cases {
		t.Run(name, func(t *testing.T) {
			stub := newRPCStub(t)
			stub.onResult("getAccountInfo", result)
			srv := stub.server()
			defer srv.Close()

			c := New(srv.URL, WithLogger(discardLogger()))
			data, exists, err := c.FetchAccount(context.Background(), solana.PublicKey{})
			require.NoError(t, err)
			assert.False(t, exists)
			assert.Nil(t, data)
		})
	}
}

func TestFetchAccountRPCError(t *testing.T) {
	stub := newRPCStub(t)
	stub.on("getAccountInfo", func([]json.RawMessage) (string, string) {
		return "", `{"code":-32005,"message":"node is behind"}`
	})
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	_, _, err := c.FetchAccount(context.Background(), solana.PublicKey{})
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32005, rpcErr.Code)
}

func TestSubmitConfirmed(t *testing.T) {
	w := testWallet(t)
	signature := ""

	stub := newRPCStub(t)
	stub.onResult("getLatestBlockhash", fmt.Sprintf(`{"value":{"blockhash":%q}}`, zeroHash32))
	stub.on("sendTransaction", func(params []json.RawMessage) (string, string) {
		var encoded string
		require.NoError(t, json.Unmarshal(params[0], &encoded))
		wire, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)

		// One signature, verifiable against the fee payer over the message.
		require.Equal(t, byte(1), wire[0])
		assert.True(t, ed25519.Verify(w.PublicKey().Bytes(), wire[65:], wire[1:65]))

		signature = "sig-handle"
		return `"sig-handle"`, ""
	})
	stub.on("getSignatureStatuses", func(params []json.RawMessage) (string, string) {
		var sigs []string
		require.NoError(t, json.Unmarshal(params[0], &sigs))
		assert.Equal(t, []string{signature}, sigs)
		return `{"value":[{"confirmationStatus":"confirmed","err":null}]}`, ""
	})
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	got, err := c.Submit(context.Background(), testInstruction(t, w), w)
	require.NoError(t, err)
	assert.Equal(t, "sig-handle", got)
	assert.Equal(t, []string{"getLatestBlockhash", "sendTransaction", "getSignatureStatuses"}, stub.calls)
}

func TestSubmitSendFailureCarriesProgramLogs(t *testing.T) {
	w := testWallet(t)

	stub := newRPCStub(t)
	stub.onResult("getLatestBlockhash", fmt.Sprintf(`{"value":{"blockhash":%q}}`, zeroHash32))
	stub.on("sendTransaction", func([]json.RawMessage) (string, string) {
		return "", `{"code":-32002,"message":"Transaction simulation failed","data":{"logs":["Program log: already initialized","Program failed"]}}`
	})
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	_, err := c.Submit(context.Background(), testInstruction(t, w), w)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeSubmitFailed, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "already initialized")
}

func TestSubmitOnChainFailure(t *testing.T) {
	w := testWallet(t)

	stub := newRPCStub(t)
	stub.onResult("getLatestBlockhash", fmt.Sprintf(`{"value":{"blockhash":%q}}`, zeroHash32))
	stub.onResult("sendTransaction", `"sig-handle"`)
	stub.onResult("getSignatureStatuses", `{"value":[{"confirmationStatus":"confirmed","err":{"InstructionError":[0,"Custom"]}}]}`)
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	_, err := c.Submit(context.Background(), testInstruction(t, w), w)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeSubmitFailed, dErrors.CodeOf(err))
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	w := testWallet(t)

	stub := newRPCStub(t)
	stub.onResult("getLatestBlockhash", fmt.Sprintf(`{"value":{"blockhash":%q}}`, zeroHash32))
	stub.onResult("sendTransaction", `"sig-handle"`)
	stub.onResult("getSignatureStatuses", `{"value":[null]}`)
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()), WithConfirmTimeout(10*time.Millisecond))
	_, err := c.Submit(context.Background(), testInstruction(t, w), w)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConfirmationTimeout, dErrors.CodeOf(err))
}

func TestSubmitBlockhashFailure(t *testing.T) {
	w := testWallet(t)

	stub := newRPCStub(t)
	stub.on("getLatestBlockhash", func([]json.RawMessage) (string, string) {
		return "", `{"code":-32005,"message":"node is behind"}`
	})
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	_, err := c.Submit(context.Background(), testInstruction(t, w), w)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeSubmitFailed, dErrors.CodeOf(err))
}

func TestHealth(t *testing.T) {
	stub := newRPCStub(t)
	stub.onResult("getHealth", `"ok"`)
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	assert.NoError(t, c.Health(context.Background()))
}

func TestHealthUnhealthy(t *testing.T) {
	stub := newRPCStub(t)
	stub.onResult("getHealth", `"behind"`)
	srv := stub.server()
	defer srv.Close()

	c := New(srv.URL, WithLogger(discardLogger()))
	assert.Error(t, c.Health(context.Background()))
}
