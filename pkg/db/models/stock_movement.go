package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// StockMovement is one immutable entry in the inventory ledger. Quantity is
// positive for IN/OUT (direction comes from Type) and signed for ADJUSTMENT.
// Corrections never mutate a movement in place; they reverse it, which stamps
// ReversedAt and undoes the stock effect.
type StockMovement struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID          `gorm:"column:organization_id;type:uuid;not null;index"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	StoreID        *uuid.UUID         `gorm:"column:store_id;type:uuid"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	Type           enums.MovementType `gorm:"column:type;type:movement_type;not null"`
	Quantity       int                `gorm:"column:quantity;not null"`
	Reason         *string            `gorm:"column:reason"`
	Reference      *string            `gorm:"column:reference;index"`
	ReversedAt     *time.Time         `gorm:"column:reversed_at"`
	ReversedBy     *uuid.UUID         `gorm:"column:reversed_by;type:uuid"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}
