package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// PaymentMethod is an org-scoped tender catalog entry referenced by sale payments.
type PaymentMethod struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID               `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string                  `gorm:"column:name;not null"`
	Kind           enums.PaymentMethodKind `gorm:"column:kind;type:payment_method_kind;not null"`
	IsActive       bool                    `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
