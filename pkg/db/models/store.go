package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store is a physical or logical point of sale within an organization.
type Store struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID      `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string         `gorm:"column:name;not null"`
	Address        *string        `gorm:"column:address"`
	Phone          *string        `gorm:"column:phone"`
	Tags           pq.StringArray `gorm:"column:tags;type:text[]"`
	DeletedAt      *time.Time     `gorm:"column:deleted_at;index"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
