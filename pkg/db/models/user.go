package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// User is an operator account scoped to one organization.
type User struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index"`
	Email          string           `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash   string           `gorm:"column:password_hash;not null"`
	FullName       string           `gorm:"column:full_name;not null"`
	Role           enums.MemberRole `gorm:"column:role;type:member_role;not null;default:'cashier'"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt    *time.Time       `gorm:"column:last_login_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
