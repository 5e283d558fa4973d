package rest

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

// Upstream headers. Token parsing happens before requests reach this
// service; these carry its results.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderJourneyID     = "X-Journey-ID"
	HeaderTransactionID = "X-Transaction-ID"
	HeaderSourceChannel = "X-Source-Channel"
	HeaderClientID      = "X-Client-ID"
	HeaderMgmID         = "X-MGM-ID"
	HeaderRole          = "X-Role"
	HeaderSessionID     = "X-Session-ID"
)

func RequestContextFromHeaders(h http.Header) domain.RequestContext {
	return domain.RequestContext{
		CorrelationID: h.Get(HeaderCorrelationID),
		JourneyID:     h.Get(HeaderJourneyID),
		TransactionID: h.Get(HeaderTransactionID),
		SourceChannel: h.Get(HeaderSourceChannel),
		ClientID:      h.Get(HeaderClientID),
	}
}

func IdentityFromHeaders(h http.Header) domain.Identity {
	return domain.Identity{
		MgmID:     h.Get(HeaderMgmID),
		Role:      h.Get(HeaderRole),
		SessionID: h.Get(HeaderSessionID),
	}
}
