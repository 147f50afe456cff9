// Package dErrors defines the gateway's error taxonomy. Handlers translate
// these codes to HTTP statuses in one place so services stay transport-free.
package dErrors

import "net/http"

// Code identifies a class of failure. Codes are part of the HTTP contract:
// they appear verbatim in the "error" field of error envelopes.
type Code string

const (
	CodeBadRequest          Code = "bad_request"
	CodeNotFound            Code = "not_found"
	CodeNameTooLong         Code = "name_too_long"
	CodeMalformedRecord     Code = "malformed_record"
	CodeSubmitFailed        Code = "submit_failed"
	CodeConfirmationTimeout Code = "confirmation_timeout"
	CodeRateLimited         Code = "rate_limited"
	CodeInternal            Code = "internal_error"
)

// GatewayError carries a code plus an operator-facing message. The message is
// only exposed to clients for non-internal codes.
type GatewayError struct {
	Code    Code
	Message string
}

func (e GatewayError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New builds a GatewayError with the given code and message.
func New(code Code, message string) GatewayError {
	return GatewayError{Code: code, Message: message}
}

// CodeOf extracts the error code, defaulting to internal for foreign errors.
func CodeOf(err error) Code {
	if gw, ok := err.(GatewayError); ok {
		return gw.Code
	}
	return CodeInternal
}

// Is lets errors.Is match on code equality.
func (e GatewayError) Is(target error) bool {
	t, ok := target.(GatewayError)
	return ok && t.Code == e.Code
}

// ToHTTPStatus maps error codes to transport status. Ledger-write failures map
// to 502 because the remote ledger, not this gateway, rejected the operation.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeNameTooLong:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeMalformedRecord, CodeSubmitFailed:
		return http.StatusBadGateway
	case CodeConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
