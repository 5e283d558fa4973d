package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a positive amount with at most two decimal places in an ISO-4217
// alpha-3 currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if !amount.IsPositive() {
		return Money{}, NewInvalidAmountError(amount.String(), "must be greater than zero")
	}
	if !amount.Round(2).Equal(amount) {
		return Money{}, NewInvalidAmountError(amount.String(), "at most two decimal places")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !isCurrencyCode(currency) {
		return Money{}, NewInvalidCurrencyError(currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// MaskPAN keeps the last four digits of a card number.
func MaskPAN(pan string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, pan)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// CardData is the raw card the caller submits. It is handed to the gateway
// and never persisted, cached, logged or audited.
type CardData struct {
	PAN         string `json:"pan" validate:"required,min=12,max=19"`
	ExpiryMonth int    `json:"expiryMonth" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiryYear" validate:"required,min=2000"`
	CVV         string `json:"cvv,omitempty" validate:"omitempty,min=3,max=4"`
	Holder      string `json:"holder,omitempty"`
}

// Masked returns the card summary stored on ledger records.
func (c CardData) Masked() string {
	return MaskPAN(c.PAN)
}
