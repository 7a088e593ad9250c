package enums

import "fmt"

// SaleStatus tracks the lifecycle of a sale.
type SaleStatus string

const (
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusOverdue   SaleStatus = "overdue"
	SaleStatusCancelled SaleStatus = "cancelled"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPaid,
	SaleStatusPending,
	SaleStatusOverdue,
	SaleStatusCancelled,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the status may move to the target state.
// CANCELLED is terminal.
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusPending:
		return target == SaleStatusPaid || target == SaleStatusOverdue || target == SaleStatusCancelled
	case SaleStatusPaid:
		return target == SaleStatusCancelled
	case SaleStatusOverdue:
		return target == SaleStatusPaid || target == SaleStatusCancelled
	default:
		return false
	}
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
