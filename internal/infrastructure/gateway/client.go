// Package gateway is the HTTP client for the external routing network.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// defaultDeclineCode is used when a decline response carries no code.
const defaultDeclineCode = "05"

type HTTPRouterClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ application.GatewayRouter = (*HTTPRouterClient)(nil)

func NewRouterClient(cfg config.GatewayConfig) *HTTPRouterClient {
	return &HTTPRouterClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

var operationPaths = map[domain.TransactionType]string{
	domain.TypeAuthorize: "/api/v1/authorizations",
	domain.TypeCapture:   "/api/v1/captures",
	domain.TypeRefund:    "/api/v1/refunds",
	domain.TypeVoid:      "/api/v1/voids",
}

// Route sends one operation. Every failure is an *application.ClassifiedError.
// The call is made exactly once; retrying is left to the caller.
func (c *HTTPRouterClient) Route(ctx context.Context, req application.RouteRequest) (*application.RouteResult, error) {
	path, ok := operationPaths[req.Operation]
	if !ok {
		return nil, &application.ClassifiedError{
			Class:   application.GatewayMalformed,
			Message: fmt.Sprintf("unsupported operation %q", req.Operation),
		}
	}

	body := RouteRequestDTO{
		Operation:             string(req.Operation),
		ReferenceNumber:       req.ReferenceNumber,
		ClientID:              req.ClientID,
		Amount:                req.Amount,
		Currency:              req.Currency,
		OriginalTransactionID: req.OriginalTransactionID,
		Channel:               req.SourceChannel,
	}
	if req.Card != nil {
		body.Card = &cardDTO{
			Number:      req.Card.PAN,
			Cvv:         req.Card.CVV,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			Holder:      req.Card.Holder,
		}
	}

	headers := http.Header{}
	headers.Set("Idempotency-Key", req.IdempotencyKey)
	if req.CorrelationID != "" {
		headers.Set("X-Correlation-ID", req.CorrelationID)
	}

	resp, err := sendRequest[RouteRequestDTO, RouteResponseDTO](c, ctx, http.MethodPost, c.baseURL+path, &body, headers)
	if err != nil {
		return nil, err
	}

	result := &application.RouteResult{
		TransactionID:     resp.TransactionID,
		AuthorizationCode: resp.AuthorizationCode,
		ResponseCode:      resp.ResponseCode,
		ResponseMessage:   resp.ResponseMessage,
		ApprovedAmount:    req.Amount,
	}
	if resp.ApprovedAmount != nil {
		approved := *resp.ApprovedAmount
		if approved.IsNegative() || approved.GreaterThan(req.Amount) {
			return nil, &application.ClassifiedError{
				Class:        application.GatewayMalformed,
				ResponseCode: resp.ResponseCode,
				Message:      fmt.Sprintf("approved amount %s outside requested amount %s", approved.StringFixed(2), req.Amount.StringFixed(2)),
			}
		}
		result.ApprovedAmount = approved
	}
	return result, nil
}

func sendRequest[Req any, Resp any](c *HTTPRouterClient, ctx context.Context, method, url string, reqBody *Req, headers http.Header) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, &application.ClassifiedError{Class: application.GatewayMalformed, Message: "error marshalling json", Err: err}
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, &application.ClassifiedError{Class: application.GatewayMalformed, Message: "error creating request", Err: err}
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		httpReq.Header[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &application.ClassifiedError{Class: application.GatewayNetwork, Message: "error making request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var out Resp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &application.ClassifiedError{
			Class:      application.GatewayMalformed,
			StatusCode: resp.StatusCode,
			Message:    "error decoding json response",
			Err:        err,
		}
	}

	return &out, nil
}

// classifyStatus maps a non-200 response onto the error taxonomy.
func classifyStatus(status int, body []byte) *application.ClassifiedError {
	var errResp ErrorResponseDTO
	decodeErr := json.Unmarshal(body, &errResp)

	classified := &application.ClassifiedError{
		StatusCode:   status,
		ResponseCode: errResp.ResponseCode,
		Message:      errResp.Message,
	}
	if classified.Message == "" {
		classified.Message = http.StatusText(status)
	}
	if decodeErr != nil && len(body) > 0 {
		classified.Err = errors.New(truncate(string(body), 256))
	}

	switch {
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		classified.Class = application.GatewayNetwork
	case status == http.StatusPaymentRequired, status == http.StatusUnprocessableEntity:
		classified.Class = application.GatewayDeclined
		if classified.ResponseCode == "" {
			classified.ResponseCode = defaultDeclineCode
		}
	case status >= 400 && status < 500:
		classified.Class = application.GatewayMalformed
	default:
		classified.Class = application.GatewayInternal
	}
	return classified
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
