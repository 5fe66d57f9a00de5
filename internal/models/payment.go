package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a yearly tax payment was settled.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodOther        PaymentMethod = "other"
)

// ParsePaymentMethod accepts the canonical values and the legacy French labels.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "especes", "espèces":
		return PaymentMethodCash, nil
	case "check", "cheque", "chèque":
		return PaymentMethodCheck, nil
	case "bank_transfer", "virement":
		return PaymentMethodBankTransfer, nil
	case "credit_card", "carte", "carte_credit":
		return PaymentMethodCreditCard, nil
	case "other", "autre":
		return PaymentMethodOther, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// UnmarshalText normalizes legacy labels when decoding JSON.
func (m *PaymentMethod) UnmarshalText(text []byte) error {
	parsed, err := ParsePaymentMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Payment records the settlement of one tax year for one property.
type Payment struct {
	PaidAt        time.Time       `json:"paidAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         *string         `json:"notes,omitempty"`
	ReceiptNumber string          `json:"receiptNumber"`
	Method        PaymentMethod   `json:"method"`
	CreatedBy     string          `json:"createdBy"`
	ID            int64           `json:"id"`
	PropertyID    int64           `json:"propertyId"`
	Year          int             `json:"year"`
}

// YearPaymentStatus is one row of a property's payment statement.
type YearPaymentStatus struct {
	Payment *Payment        `json:"payment,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Year    int             `json:"year"`
	Paid    bool            `json:"paid"`
}

// PaymentStatement summarizes what a property owes from its first taxed year to now.
type PaymentStatement struct {
	TotalDue   decimal.Decimal     `json:"totalDue"`
	TotalPaid  decimal.Decimal     `json:"totalPaid"`
	Years      []YearPaymentStatus `json:"years"`
	PropertyID int64               `json:"propertyId"`
}
