package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest"
)

func (h *Handlers) Capture(w http.ResponseWriter, r *http.Request) {
	var req services.CaptureRequest
	if err := decodeBody(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	id, err := paymentIDFrom(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	req.PaymentID = id

	identity, rc := callerFrom(r)
	resp, err := h.capture.Process(r.Context(), req, identity, rc)
	h.writeOutcome(w, resp, err)
}
