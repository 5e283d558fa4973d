// Package api holds the HTTP contract of the orchestrator.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var contract []byte

const docName = "orchestrator"

type document struct{}

func (document) ReadDoc() string {
	return string(contract)
}

func init() {
	swag.Register(docName, document{})
}

// GetSwagger parses and validates the embedded contract.
func GetSwagger(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(contract)
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid api contract: %w", err)
	}
	return doc, nil
}

// RegisterDocsRoutes serves the contract at GET /docs/openapi.yaml.
func RegisterDocsRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /docs/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		doc, err := swag.ReadDoc(docName)
		if err != nil {
			http.Error(w, "api contract unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(doc))
	})
}
