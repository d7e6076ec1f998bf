package jobAuth

import (
	internalaudit "github.com/MrEthical07/jobAuth/internal/audit"
	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
)

type (
	// Account is the persisted applicant identity.
	Account = internalflows.Account
	// AuthProvider records how an account proves its identity.
	AuthProvider = internalflows.AuthProvider
	// AccountStore is the primary account persistence collaborator. Lookups
	// return ErrAccountNotFound; Create and Update return
	// ErrEmailAlreadyInUse on a duplicate email and Update returns
	// ErrVersionConflict when the row changed underneath it.
	AccountStore = internalflows.AccountStore
	// Mailer delivers activation links, reset links and one-time codes.
	Mailer = internalflows.Mailer
	// Identity is the verified content of an external ID token.
	Identity = internalflows.Identity
	// IdentityVerifier validates external ID tokens. Rejections must match
	// ErrIdentityRejected; anything else is treated as an outage.
	IdentityVerifier = internalflows.IdentityVerifier
	// RegisterInput is the self-service registration payload.
	RegisterInput = internalflows.RegisterInput
	// Session is an issued credential pair.
	Session = internalflows.Session
	// Principal is the verified identity behind an access token.
	Principal = internalflows.Principal
	// ServiceTokenResult answers inter-service verification.
	ServiceTokenResult = internalflows.ServiceTokenResult
	// ActivationResult reports whether activation was a repeat.
	ActivationResult = internalflows.ActivationResult
	// Health reports dependency reachability.
	Health = internalflows.Health
)

const (
	ProviderLocal    = internalflows.ProviderLocal
	ProviderExternal = internalflows.ProviderExternal
)

type (
	// AuditEvent is the canonical audit record.
	AuditEvent = internalaudit.Event
	// AuditSink receives audit events from the dispatcher goroutine.
	AuditSink = internalaudit.Sink
	// NoOpSink discards events.
	NoOpSink = internalaudit.NoOpSink
	// ChannelSink buffers events in a channel, mostly for tests.
	ChannelSink = internalaudit.ChannelSink
	// JSONWriterSink writes newline-delimited JSON.
	JSONWriterSink = internalaudit.JSONWriterSink
	// SlogSink writes events through a structured logger.
	SlogSink = internalaudit.SlogSink
)

var (
	NewChannelSink    = internalaudit.NewChannelSink
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	NewSlogSink       = internalaudit.NewSlogSink
)
