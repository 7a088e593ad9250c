package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Repository defines persistence operations for sales.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	FindSale(ctx context.Context, orgID, saleID uuid.UUID) (*models.Sale, error)
	UpdateSale(ctx context.Context, saleID uuid.UUID, updates map[string]any) error
	CreatePayments(ctx context.Context, payments []models.SalePayment) error
	SumPayments(ctx context.Context, saleID uuid.UUID) (int, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Sale, error)
	FindPaymentMethods(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.PaymentMethod, error)
	CountPendingPastDue(ctx context.Context, orgID uuid.UUID) (int64, error)
	ListPendingPastDueIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *gormRepository) FindSale(ctx context.Context, orgID, saleID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&sale, "id = ? AND organization_id = ?", saleID, orgID).
		Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *gormRepository) UpdateSale(ctx context.Context, saleID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		Updates(updates).
		Error
}

func (r *gormRepository) CreatePayments(ctx context.Context, payments []models.SalePayment) error {
	if len(payments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&payments).Error
}

func (r *gormRepository) SumPayments(ctx context.Context, saleID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.SalePayment{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("sale_id = ?", saleID).
		Scan(&total).
		Error
	return total, err
}

func (r *gormRepository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Sale, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("organization_id = ?", orgID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("sale_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("sale_date < ?", *filter.To)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var sales []models.Sale
	if err := query.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *gormRepository) FindPaymentMethods(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.PaymentMethod, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id IN ?", orgID, ids).
		Find(&methods).
		Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *gormRepository) CountPendingPastDue(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("organization_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < CURRENT_TIMESTAMP", orgID, enums.SaleStatusPending).
		Count(&count).
		Error
	return count, err
}

func (r *gormRepository) ListPendingPastDueIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("organization_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < CURRENT_TIMESTAMP", orgID, enums.SaleStatusPending).
		Pluck("id", &ids).
		Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
