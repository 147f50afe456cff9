// Package dns owns the registry program's application-level contract: the
// deterministic domain account addressing and the binary record codec shared
// with the on-chain program.
package dns

import "time"

// Record is the persisted unit at a domain's storage account. It is created
// exactly once by a successful registration; the on-chain program rejects
// re-initialization, so from the gateway's point of view a Record is
// immutable.
type Record struct {
	Name      string
	Target    string
	Authority string    // base58 address of the registering wallet, when present
	CreatedAt time.Time // zero when the account predates the timestamp field
}

// Verdict is the risk classifier's output for one validation request. It is
// ephemeral: produced per request and never persisted.
type Verdict struct {
	Valid      bool            `json:"valid"`
	Reason     string          `json:"reason"`
	Confidence float64         `json:"confidence"`
	RiskLevel  string          `json:"riskLevel,omitempty"`
	Checks     map[string]bool `json:"checks,omitempty"`
}
