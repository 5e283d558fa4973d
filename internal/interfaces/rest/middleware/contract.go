package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest"
)

// RequestValidator rejects requests that break the API contract with a
// VALIDATION_ERROR. Routes outside the contract pass through untouched.
func RequestValidator(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build contract router: %w", err)
	}
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				rest.WriteError(w, application.NewValidationError(contractViolation(err)), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// contractViolation describes where the request broke the contract without
// repeating the offending value, which may be card data.
func contractViolation(err error) error {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		return fmt.Errorf("parameter %q in %s is invalid", reqErr.Parameter.Name, reqErr.Parameter.In)
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		if path := strings.Join(schemaErr.JSONPointer(), "."); path != "" {
			return fmt.Errorf("%s: %s", path, schemaErr.Reason)
		}
		return errors.New(schemaErr.Reason)
	}

	if reqErr != nil {
		if errors.Is(reqErr.Err, openapi3filter.ErrInvalidRequired) {
			return errors.New("request body is required")
		}
		if reqErr.Reason != "" {
			return errors.New(reqErr.Reason)
		}
	}
	return errors.New("request does not match the api contract")
}
