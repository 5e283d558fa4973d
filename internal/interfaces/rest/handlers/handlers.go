package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest"
)

const maxBodyBytes = 1 << 20

// PaymentQuery is the read side the handlers need.
type PaymentQuery interface {
	GetLifecycle(ctx context.Context, id string, rc domain.RequestContext) (*services.PaymentView, error)
	FindByReference(ctx context.Context, reference string, rc domain.RequestContext) ([]*services.Response, error)
}

// HealthCheck is one dependency checked by GET /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handlers struct {
	authorize services.Processor[services.AuthorizeRequest]
	capture   services.Processor[services.CaptureRequest]
	refund    services.Processor[services.RefundRequest]
	void      services.Processor[services.VoidRequest]
	query     PaymentQuery
	health    []HealthCheck
	logger    *slog.Logger
}

func NewHandlers(
	authorize services.Processor[services.AuthorizeRequest],
	capture services.Processor[services.CaptureRequest],
	refund services.Processor[services.RefundRequest],
	void services.Processor[services.VoidRequest],
	query PaymentQuery,
	logger *slog.Logger,
	health ...HealthCheck,
) *Handlers {
	return &Handlers{
		authorize: authorize,
		capture:   capture,
		refund:    refund,
		void:      void,
		query:     query,
		health:    health,
		logger:    logger,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/payments/authorize", h.Authorize)
	mux.HandleFunc("POST /v1/payments/{paymentId}/capture", h.Capture)
	mux.HandleFunc("POST /v1/payments/refund", h.Refund)
	mux.HandleFunc("POST /v1/payments/{paymentId}/void", h.Void)
	mux.HandleFunc("GET /v1/payments/{paymentId}", h.GetPayment)
	mux.HandleFunc("GET /v1/payments", h.FindByReference)
	mux.HandleFunc("GET /healthz", h.Health)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return application.NewValidationError(errors.New("request body is empty"))
		}
		return application.NewValidationError(fmt.Errorf("malformed request body: %w", err))
	}
	return nil
}

// paymentIDFrom binds the paymentId path parameter.
func paymentIDFrom(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "paymentId", r.PathValue("paymentId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", application.NewValidationError(err)
	}
	return id, nil
}

func callerFrom(r *http.Request) (domain.Identity, domain.RequestContext) {
	return domain.IdentityFrom(r.Context()), domain.RequestContextFrom(r.Context())
}

// writeOutcome answers 201 for a new record and 200 for a replayed one.
// Declines are successful calls.
func (h *Handlers) writeOutcome(w http.ResponseWriter, resp *services.Response, err error) {
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	rest.WriteJSON(w, status, resp)
}
