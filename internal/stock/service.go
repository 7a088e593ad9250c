package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the stock ledger operations.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*models.StockMovement, error)
	Reverse(ctx context.Context, input ReverseInput) (*models.StockMovement, error)
	Summarize(ctx context.Context, orgID, productID uuid.UUID, filter SummaryFilter) (*Summary, error)
	ListByProduct(ctx context.Context, orgID, productID uuid.UUID, params pagination.Params) (*MovementPage, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Append records a movement and updates the product's running stock in one
// transaction. An OUT that would take stock negative is rejected whole.
func (s *service) Append(ctx context.Context, input AppendInput) (*models.StockMovement, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}

	delta := stockDelta(input.Type, input.Quantity)

	var created *models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		applied, err := repo.ApplyStockDelta(ctx, input.OrganizationID, input.ProductID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock delta")
		}
		if !applied {
			return classifyRejectedDelta(ctx, repo, input.OrganizationID, input.ProductID, delta)
		}

		movement := &models.StockMovement{
			ID:             uuid.New(),
			OrganizationID: input.OrganizationID,
			ProductID:      input.ProductID,
			StoreID:        input.StoreID,
			UserID:         input.UserID,
			Type:           input.Type,
			Quantity:       input.Quantity,
			Reason:         input.Reason,
			Reference:      input.Reference,
		}
		created, err = repo.CreateMovement(ctx, movement)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock movement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Reverse undoes a movement by stamping it reversed and applying the inverse
// stock effect. A movement can be reversed at most once.
func (s *service) Reverse(ctx context.Context, input ReverseInput) (*models.StockMovement, error) {
	if input.MovementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var reversed *models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		movement, err := repo.FindMovement(ctx, input.OrganizationID, input.MovementID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stock movement not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock movement")
		}
		// A reversed movement is spent; for reversal purposes it no longer
		// exists, so a second attempt reports the same error as a missing id.
		if movement.ReversedAt != nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "stock movement not found").
				WithDetails(map[string]any{"movement_id": movement.ID})
		}

		delta := -stockDelta(movement.Type, movement.Quantity)
		applied, err := repo.ApplyStockDelta(ctx, input.OrganizationID, movement.ProductID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock delta")
		}
		if !applied {
			return classifyRejectedDelta(ctx, repo, input.OrganizationID, movement.ProductID, delta)
		}

		now := time.Now().UTC()
		if err := repo.MarkReversed(ctx, movement.ID, input.UserID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark movement reversed")
		}

		movement.ReversedAt = &now
		movement.ReversedBy = &input.UserID
		reversed = movement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reversed, nil
}

// Summarize aggregates the non-reversed movements for a product. A product
// with no movements yields an all-zero summary, not an error.
func (s *service) Summarize(ctx context.Context, orgID, productID uuid.UUID, filter SummaryFilter) (*Summary, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "summary window is inverted")
	}

	product, err := s.repo.FindProduct(ctx, orgID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	summary, err := s.repo.Summarize(ctx, orgID, productID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize movements")
	}

	summary.CurrentStock = product.CurrentStock
	if filter.From == nil && filter.To == nil {
		summary.Drift = summary.ComputedStock != product.CurrentStock
	}
	return summary, nil
}

func (s *service) ListByProduct(ctx context.Context, orgID, productID uuid.UUID, params pagination.Params) (*MovementPage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.ClampLimit(params.Limit)
	movements, err := s.repo.ListByProduct(ctx, orgID, productID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}

	page := &MovementPage{Movements: movements}
	if len(movements) > limit {
		page.Movements = movements[:limit]
		last := page.Movements[limit-1]
		next := pagination.After(last.CreatedAt, last.ID).Encode()
		page.NextCursor = &next
	}
	return page, nil
}

func validateAppend(input AppendInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid movement type")
	}

	switch input.Type {
	case enums.MovementTypeAdjustment:
		if input.Quantity == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity cannot be zero")
		}
	default:
		if input.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}

// stockDelta maps a movement onto its signed effect on current stock.
func stockDelta(movementType enums.MovementType, quantity int) int {
	switch movementType {
	case enums.MovementTypeIn:
		return quantity
	case enums.MovementTypeOut:
		return -quantity
	default:
		return quantity
	}
}

// classifyRejectedDelta distinguishes a missing product from an oversell after
// the guarded UPDATE matched no rows.
func classifyRejectedDelta(ctx context.Context, repo Repository, orgID, productID uuid.UUID, delta int) error {
	product, err := repo.FindProduct(ctx, orgID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id":    product.ID,
			"current_stock": product.CurrentStock,
			"requested":     -delta,
		})
}
