package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest"
)

// Refund takes the target from the body: a payment id, or for ADHOC refunds
// the original authorization's reference number.
func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	var req services.RefundRequest
	if err := decodeBody(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	identity, rc := callerFrom(r)
	resp, err := h.refund.Process(r.Context(), req, identity, rc)
	h.writeOutcome(w, resp, err)
}
