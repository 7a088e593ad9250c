package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Repository defines persistence operations for the stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateMovement(ctx context.Context, movement *models.StockMovement) (*models.StockMovement, error)
	FindMovement(ctx context.Context, orgID, movementID uuid.UUID) (*models.StockMovement, error)
	FindMovementsByReference(ctx context.Context, orgID uuid.UUID, reference string) ([]models.StockMovement, error)
	MarkReversed(ctx context.Context, movementID, reversedBy uuid.UUID, at time.Time) error
	ListByProduct(ctx context.Context, orgID, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error)
	Summarize(ctx context.Context, orgID, productID uuid.UUID, filter SummaryFilter) (*Summary, error)
	FindProduct(ctx context.Context, orgID, productID uuid.UUID) (*models.Product, error)
	ApplyStockDelta(ctx context.Context, orgID, productID uuid.UUID, delta int) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) CreateMovement(ctx context.Context, movement *models.StockMovement) (*models.StockMovement, error) {
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, err
	}
	return movement, nil
}

func (r *gormRepository) FindMovement(ctx context.Context, orgID, movementID uuid.UUID) (*models.StockMovement, error) {
	var movement models.StockMovement
	err := r.db.WithContext(ctx).
		First(&movement, "id = ? AND organization_id = ?", movementID, orgID).
		Error
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

func (r *gormRepository) FindMovementsByReference(ctx context.Context, orgID uuid.UUID, reference string) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND reference = ?", orgID, reference).
		Order("created_at ASC").
		Find(&movements).
		Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *gormRepository) MarkReversed(ctx context.Context, movementID, reversedBy uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("id = ? AND reversed_at IS NULL", movementID).
		Updates(map[string]any{
			"reversed_at": at,
			"reversed_by": reversedBy,
		}).
		Error
}

func (r *gormRepository) ListByProduct(ctx context.Context, orgID, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND product_id = ?", orgID, productID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var movements []models.StockMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *gormRepository) Summarize(ctx context.Context, orgID, productID uuid.UUID, filter SummaryFilter) (*Summary, error) {
	var row struct {
		TotalIn         int
		TotalOut        int
		TotalAdjustment int
		MovementCount   int
	}

	query := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Select(`
			COALESCE(SUM(CASE WHEN type = 'in' THEN quantity ELSE 0 END), 0) AS total_in,
			COALESCE(SUM(CASE WHEN type = 'out' THEN quantity ELSE 0 END), 0) AS total_out,
			COALESCE(SUM(CASE WHEN type = 'adjustment' THEN quantity ELSE 0 END), 0) AS total_adjustment,
			COUNT(*) AS movement_count`).
		Where("organization_id = ? AND product_id = ? AND reversed_at IS NULL", orgID, productID)

	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	if err := query.Scan(&row).Error; err != nil {
		return nil, err
	}

	return &Summary{
		ProductID:       productID,
		TotalIn:         row.TotalIn,
		TotalOut:        row.TotalOut,
		TotalAdjustment: row.TotalAdjustment,
		ComputedStock:   row.TotalIn - row.TotalOut + row.TotalAdjustment,
		MovementCount:   row.MovementCount,
	}, nil
}

func (r *gormRepository) FindProduct(ctx context.Context, orgID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "id = ? AND organization_id = ?", productID, orgID).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ApplyStockDelta adjusts the denormalized product stock in a single guarded
// UPDATE. The guard rejects any delta that would take stock negative, which is
// what serializes concurrent decrements without a read-modify-write race.
// Returns false when no row matched the guard.
func (r *gormRepository) ApplyStockDelta(ctx context.Context, orgID, productID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET current_stock = current_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND organization_id = ? AND current_stock + ? >= 0
	`, delta, productID, orgID, delta)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
