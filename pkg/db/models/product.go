package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable catalog entry. CurrentStock is a denormalized running
// total; it is mutated only as a side effect of stock movement writes and must
// always equal the sum of the product's non-reversed movements.
type Product struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	StoreID        *uuid.UUID `gorm:"column:store_id;type:uuid;index"`
	SKU            string     `gorm:"column:sku;not null"`
	Name           string     `gorm:"column:name;not null"`
	Description    *string    `gorm:"column:description"`
	PriceCents     int        `gorm:"column:price_cents;not null"`
	CostCents      *int       `gorm:"column:cost_cents"`
	CurrentStock   int        `gorm:"column:current_stock;not null;default:0"`
	MinStock       int        `gorm:"column:min_stock;not null;default:0"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
