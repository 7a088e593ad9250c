package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Service exposes product catalog operations. Stock is never written here.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Get(ctx context.Context, orgID, productID uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, orgID, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Deactivate(ctx context.Context, orgID, productID uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter, params pagination.Params) (*ProductPage, error)
}

type service struct {
	repo Repository
}

// NewService builds a product service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// Create registers a product with zero stock. Initial quantities arrive
// through the ledger as IN movements.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)

	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.MinStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock cannot be negative")
	}

	product := &models.Product{
		ID:             uuid.New(),
		OrganizationID: input.OrganizationID,
		StoreID:        input.StoreID,
		SKU:            input.SKU,
		Name:           input.Name,
		Description:    input.Description,
		PriceCents:     input.PriceCents,
		CostCents:      input.CostCents,
		MinStock:       input.MinStock,
		IsActive:       true,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use").
				WithDetails(map[string]any{"sku": input.SKU})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, orgID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, orgID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, orgID, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if _, err := s.Get(ctx, orgID, productID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price_cents"] = *input.PriceCents
	}
	if input.CostCents != nil {
		updates["cost_cents"] = *input.CostCents
	}
	if input.MinStock != nil {
		if *input.MinStock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock cannot be negative")
		}
		updates["min_stock"] = *input.MinStock
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return s.Get(ctx, orgID, productID)
	}

	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.Get(ctx, orgID, productID)
}

func (s *service) Deactivate(ctx context.Context, orgID, productID uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, productID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, productID, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter, params pagination.Params) (*ProductPage, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.ClampLimit(params.Limit)
	list, err := s.repo.List(ctx, orgID, filter, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := &ProductPage{Products: list}
	if len(list) > limit {
		page.Products = list[:limit]
		last := page.Products[limit-1]
		next := pagination.After(last.CreatedAt, last.ID).Encode()
		page.NextCursor = &next
	}
	return page, nil
}
