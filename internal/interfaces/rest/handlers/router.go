package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/api"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest/middleware"
)

// NewRouter mounts the payment routes, the contract at /docs/openapi.yaml and
// /metrics behind the middleware chain. metrics may be nil.
func NewRouter(h *Handlers, metrics http.Handler, requestTimeout time.Duration, logger *slog.Logger) (http.Handler, error) {
	doc, err := api.GetSwagger(context.Background())
	if err != nil {
		return nil, err
	}
	validate, err := middleware.RequestValidator(doc, logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	api.RegisterDocsRoutes(mux)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	handler := middleware.Recovery(logger)(validate(mux))
	if requestTimeout > 0 {
		handler = middleware.Timeout(requestTimeout)(handler)
	}
	handler = middleware.Logging(logger)(handler)
	return middleware.RequestContext(handler), nil
}
