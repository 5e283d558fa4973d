package middleware

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest"
	"github.com/google/uuid"
)

// RequestContext lifts the upstream headers into the request context. A
// correlation id is generated when the caller did not send one and is echoed
// back on the response.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := rest.RequestContextFromHeaders(r.Header)
		if rc.CorrelationID == "" {
			rc.CorrelationID = uuid.NewString()
		}
		w.Header().Set(rest.HeaderCorrelationID, rc.CorrelationID)

		ctx := domain.WithRequestContext(r.Context(), rc)
		ctx = domain.WithIdentity(ctx, rest.IdentityFromHeaders(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
