// Package httputil centralizes JSON encoding and error translation for HTTP
// handlers so every endpoint emits the same envelopes.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/paras-lehana/dns-chain/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so implementation detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if gw, ok := err.(dErrors.GatewayError); ok && gw.Message != "" {
			body["error_description"] = gw.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeJSON decodes a request body, answering malformed JSON with a
// bad_request envelope. Returns false when a response has been written.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var dst T
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&dst); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return dst, false
	}
	return dst, true
}
