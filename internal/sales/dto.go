package sales

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// SaleItemInput is one product line requested on a new sale.
type SaleItemInput struct {
	ProductID      uuid.UUID
	Quantity       int
	UnitPriceCents int
}

// SalePaymentInput is one tender applied against a sale.
type SalePaymentInput struct {
	PaymentMethodID uuid.UUID
	AmountCents     int
	Reference       *string
}

// CreateSaleInput carries everything needed to compose a sale.
type CreateSaleInput struct {
	OrganizationID uuid.UUID
	StoreID        uuid.UUID
	CustomerID     *uuid.UUID
	UserID         uuid.UUID
	Status         enums.SaleStatus
	SaleDate       time.Time
	DueDate        *time.Time
	Notes          *string
	Items          []SaleItemInput
	Payments       []SalePaymentInput
}

// CancelSaleInput identifies the sale being cancelled and why.
type CancelSaleInput struct {
	OrganizationID uuid.UUID
	SaleID         uuid.UUID
	UserID         uuid.UUID
	Reason         *string
}

// MarkPaidInput settles an unpaid sale. Payments supplied here are appended
// before the paid invariant is checked.
type MarkPaidInput struct {
	OrganizationID uuid.UUID
	SaleID         uuid.UUID
	UserID         uuid.UUID
	Payments       []SalePaymentInput
}

// ListFilter narrows a sale listing.
type ListFilter struct {
	StoreID    *uuid.UUID
	CustomerID *uuid.UUID
	Status     *enums.SaleStatus
	From       *time.Time
	To         *time.Time
}

// SalePage is one cursor page of sales, newest first.
type SalePage struct {
	Sales      []models.Sale `json:"sales"`
	NextCursor *string       `json:"next_cursor,omitempty"`
}
