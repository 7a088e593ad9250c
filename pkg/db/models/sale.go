package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Sale is a transaction header owning its line items and payments.
// No tax is modeled, so SubtotalCents always equals TotalCents.
type Sale struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index"`
	StoreID        uuid.UUID        `gorm:"column:store_id;type:uuid;not null;index"`
	CustomerID     *uuid.UUID       `gorm:"column:customer_id;type:uuid"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	Status         enums.SaleStatus `gorm:"column:status;type:sale_status;not null"`
	SaleDate       time.Time        `gorm:"column:sale_date;not null"`
	DueDate        *time.Time       `gorm:"column:due_date"`
	SubtotalCents  int              `gorm:"column:subtotal_cents;not null"`
	TotalCents     int              `gorm:"column:total_cents;not null"`
	Notes          *string          `gorm:"column:notes"`
	CancelReason   *string          `gorm:"column:cancel_reason"`
	Items          []SaleItem       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments       []SalePayment    `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// SaleItem is one product line on a sale.
type SaleItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID         uuid.UUID `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	SubtotalCents  int       `gorm:"column:subtotal_cents;not null"`
}

// SalePayment is one tender applied against a sale.
type SalePayment struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID          uuid.UUID `gorm:"column:sale_id;type:uuid;not null;index"`
	PaymentMethodID uuid.UUID `gorm:"column:payment_method_id;type:uuid;not null"`
	AmountCents     int       `gorm:"column:amount_cents;not null"`
	Reference       *string   `gorm:"column:reference"`
}
