package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a purchasing contact. Deletion is soft; reads filter DeletedAt.
type Supplier struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string     `gorm:"column:name;not null"`
	Email          *string    `gorm:"column:email"`
	Phone          *string    `gorm:"column:phone"`
	Address        *string    `gorm:"column:address"`
	Notes          *string    `gorm:"column:notes"`
	DeletedAt      *time.Time `gorm:"column:deleted_at;index"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
