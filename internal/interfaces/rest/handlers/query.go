package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest"
)

const healthCheckTimeout = 2 * time.Second

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := paymentIDFrom(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	view, err := h.query.GetLifecycle(r.Context(), id, domain.RequestContextFrom(r.Context()))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, view)
}

func (h *Handlers) FindByReference(w http.ResponseWriter, r *http.Request) {
	var reference string
	if err := runtime.BindQueryParameter("form", true, true, "reference", r.URL.Query(), &reference); err != nil {
		rest.WriteError(w, application.NewValidationError(err), h.logger)
		return
	}
	records, err := h.query.FindByReference(r.Context(), reference, domain.RequestContextFrom(r.Context()))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, records)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.health))
	for _, c := range h.health {
		if err := c.Check(ctx); err != nil {
			h.logger.Warn("health check failed", "dependency", c.Name, "error", err)
			checks[c.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "up"
	}

	rest.WriteJSON(w, status, checks)
}
