package suppliers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Repository defines persistence operations for suppliers.
type Repository interface {
	Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error)
	FindByID(ctx context.Context, orgID, supplierID uuid.UUID) (*models.Supplier, error)
	Update(ctx context.Context, supplierID uuid.UUID, updates map[string]any) error
	List(ctx context.Context, orgID uuid.UUID, search string, limit int, cursor *pagination.Cursor) ([]models.Supplier, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func (r *gormRepository) FindByID(ctx context.Context, orgID, supplierID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		First(&supplier, "id = ? AND organization_id = ?", supplierID, orgID).
		Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *gormRepository) Update(ctx context.Context, supplierID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", supplierID).
		Updates(updates).
		Error
}

func (r *gormRepository) List(ctx context.Context, orgID uuid.UUID, search string, limit int, cursor *pagination.Cursor) ([]models.Supplier, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND deleted_at IS NULL", orgID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var suppliers []models.Supplier
	if err := query.Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}
