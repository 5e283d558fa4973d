package gateway

import "github.com/shopspring/decimal"

type cardDTO struct {
	Number      string `json:"card_number"`
	Cvv         string `json:"cvv,omitempty"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	Holder      string `json:"holder,omitempty"`
}

// RouteRequestDTO is the body posted for every operation.
type RouteRequestDTO struct {
	Operation             string          `json:"operation"`
	ReferenceNumber       string          `json:"reference_number"`
	ClientID              string          `json:"client_id,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Card                  *cardDTO        `json:"card,omitempty"`
	OriginalTransactionID string          `json:"original_transaction_id,omitempty"`
	Channel               string          `json:"channel,omitempty"`
}

type RouteResponseDTO struct {
	TransactionID     string           `json:"transaction_id"`
	AuthorizationCode string           `json:"authorization_code"`
	ResponseCode      string           `json:"response_code"`
	ResponseMessage   string           `json:"response_message"`
	ApprovedAmount    *decimal.Decimal `json:"approved_amount,omitempty"`
}

type ErrorResponseDTO struct {
	Err          string `json:"error"`
	Message      string `json:"message"`
	ResponseCode string `json:"response_code"`
}
