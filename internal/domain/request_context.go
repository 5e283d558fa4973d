package domain

import "context"

// Identity is the authenticated caller as resolved upstream.
type Identity struct {
	MgmID     string `json:"mgmId"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
}

// RequestContext carries the correlation identifiers that are stamped onto
// every ledger row, cache key and audit event.
type RequestContext struct {
	CorrelationID string `json:"correlationId"`
	JourneyID     string `json:"journeyId"`
	TransactionID string `json:"transactionId"`
	SourceChannel string `json:"sourceChannel"`
	ClientID      string `json:"clientId"`
}

// Trace is the persisted form of the identity and request context.
type Trace struct {
	ClientID      string
	MgmID         string
	CorrelationID string
	JourneyID     string
	TransactionID string
	SourceChannel string
}

func NewTrace(id Identity, rc RequestContext) Trace {
	return Trace{
		ClientID:      rc.ClientID,
		MgmID:         id.MgmID,
		CorrelationID: rc.CorrelationID,
		JourneyID:     rc.JourneyID,
		TransactionID: rc.TransactionID,
		SourceChannel: rc.SourceChannel,
	}
}

type requestContextKey struct{}
type identityKey struct{}

func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the request context stored on ctx, or the zero
// value when there is none.
func RequestContextFrom(ctx context.Context) RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(RequestContext)
	return rc
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
