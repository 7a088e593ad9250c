package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// SupplierInput carries the writable supplier fields.
type SupplierInput struct {
	Name    string
	Email   *string
	Phone   *string
	Address *string
	Notes   *string
}

// SupplierPage is one cursor page of suppliers.
type SupplierPage struct {
	Suppliers  []models.Supplier `json:"suppliers"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// Service exposes supplier operations. Deletes are soft.
type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input SupplierInput) (*models.Supplier, error)
	Get(ctx context.Context, orgID, supplierID uuid.UUID) (*models.Supplier, error)
	Update(ctx context.Context, orgID, supplierID uuid.UUID, input SupplierInput) (*models.Supplier, error)
	Delete(ctx context.Context, orgID, supplierID uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, search string, params pagination.Params) (*SupplierPage, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input SupplierInput) (*models.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	supplier := &models.Supplier{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Email:          input.Email,
		Phone:          input.Phone,
		Address:        input.Address,
		Notes:          input.Notes,
	}
	created, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, orgID, supplierID uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, orgID, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	if supplier.DeletedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return supplier, nil
}

func (s *service) Update(ctx context.Context, orgID, supplierID uuid.UUID, input SupplierInput) (*models.Supplier, error) {
	if _, err := s.Get(ctx, orgID, supplierID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	updates := map[string]any{
		"name":    name,
		"email":   input.Email,
		"phone":   input.Phone,
		"address": input.Address,
		"notes":   input.Notes,
	}
	if err := s.repo.Update(ctx, supplierID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
	}
	return s.Get(ctx, orgID, supplierID)
}

func (s *service) Delete(ctx context.Context, orgID, supplierID uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, supplierID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, supplierID, map[string]any{"deleted_at": time.Now().UTC()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier")
	}
	return nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, search string, params pagination.Params) (*SupplierPage, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.ClampLimit(params.Limit)
	suppliers, err := s.repo.List(ctx, orgID, search, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}

	page := &SupplierPage{Suppliers: suppliers}
	if len(suppliers) > limit {
		page.Suppliers = suppliers[:limit]
		last := page.Suppliers[limit-1]
		next := pagination.After(last.CreatedAt, last.ID).Encode()
		page.NextCursor = &next
	}
	return page, nil
}
