// Package audit records what the gateway decided and why. Events are
// append-only and transport-agnostic so stores can fan out.
package audit

import (
	"context"
	"time"
)

// Action names an auditable gateway event.
type Action string

const (
	ActionCheckPerformed        Action = "check_performed"
	ActionRegistrationRejected  Action = "registration_rejected"
	ActionRegistrationSubmitted Action = "registration_submitted"
	ActionRegistrationConfirmed Action = "registration_confirmed"
	ActionRegistrationFailed    Action = "registration_failed"
	ActionDomainResolved        Action = "domain_resolved"
)

// Event is emitted from the registration service to capture key actions.
type Event struct {
	Timestamp  time.Time
	Action     Action
	Name       string
	StorageKey string
	Decision   string
	Reason     string
	Confidence float64
	Fallback   bool
	RequestID  string
	Signature  string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
