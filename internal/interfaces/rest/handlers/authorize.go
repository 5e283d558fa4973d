package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest"
)

func (h *Handlers) Authorize(w http.ResponseWriter, r *http.Request) {
	var req services.AuthorizeRequest
	if err := decodeBody(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	identity, rc := callerFrom(r)
	resp, err := h.authorize.Process(r.Context(), req, identity, rc)
	h.writeOutcome(w, resp, err)
}
