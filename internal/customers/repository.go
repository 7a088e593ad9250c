package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Repository defines persistence operations for customers.
type Repository interface {
	Create(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	FindByID(ctx context.Context, orgID, customerID uuid.UUID) (*models.Customer, error)
	Update(ctx context.Context, customerID uuid.UUID, updates map[string]any) error
	List(ctx context.Context, orgID uuid.UUID, search string, includeDeleted bool, limit int, cursor *pagination.Cursor) ([]models.Customer, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds a customer repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

// FindByID also returns soft-deleted rows; the service decides what callers
// may see.
func (r *gormRepository) FindByID(ctx context.Context, orgID, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		First(&customer, "id = ? AND organization_id = ?", customerID, orgID).
		Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *gormRepository) Update(ctx context.Context, customerID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(updates).
		Error
}

func (r *gormRepository) List(ctx context.Context, orgID uuid.UUID, search string, includeDeleted bool, limit int, cursor *pagination.Cursor) ([]models.Customer, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if !includeDeleted {
		query = query.Where("deleted_at IS NULL")
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR phone LIKE ?", pattern, pattern, pattern)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
