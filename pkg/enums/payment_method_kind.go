package enums

import "fmt"

// PaymentMethodKind maps to the payment_method_kind enum in Postgres.
type PaymentMethodKind string

const (
	PaymentMethodKindCash     PaymentMethodKind = "cash"
	PaymentMethodKindCard     PaymentMethodKind = "card"
	PaymentMethodKindTransfer PaymentMethodKind = "transfer"
	PaymentMethodKindOther    PaymentMethodKind = "other"
)

var validPaymentMethodKinds = []PaymentMethodKind{
	PaymentMethodKindCash,
	PaymentMethodKindCard,
	PaymentMethodKindTransfer,
	PaymentMethodKindOther,
}

// IsValid reports whether the value matches the canonical payment method enum.
func (k PaymentMethodKind) IsValid() bool {
	for _, candidate := range validPaymentMethodKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePaymentMethodKind converts raw input into PaymentMethodKind.
func ParsePaymentMethodKind(value string) (PaymentMethodKind, error) {
	for _, candidate := range validPaymentMethodKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method kind %q", value)
}
