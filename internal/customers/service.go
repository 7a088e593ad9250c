package customers

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

// CustomerInput carries the writable customer fields.
type CustomerInput struct {
	Name    string
	Email   *string
	Phone   *string
	Address *string
	Notes   *string
}

// CustomerPage is one cursor page of customers.
type CustomerPage struct {
	Customers  []models.Customer `json:"customers"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// Service exposes customer CRM operations. Deletes are soft so historic
// sales keep their customer link.
type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input CustomerInput) (*models.Customer, error)
	Get(ctx context.Context, orgID, customerID uuid.UUID) (*models.Customer, error)
	Update(ctx context.Context, orgID, customerID uuid.UUID, input CustomerInput) (*models.Customer, error)
	Delete(ctx context.Context, orgID, customerID uuid.UUID) error
	Restore(ctx context.Context, orgID, customerID uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, orgID uuid.UUID, search string, params pagination.Params) (*CustomerPage, error)
}

type service struct {
	repo Repository
}

// NewService builds a customer service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input CustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	customer := &models.Customer{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Email:          input.Email,
		Phone:          input.Phone,
		Address:        input.Address,
		Notes:          input.Notes,
	}
	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, orgID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.load(ctx, orgID, customerID)
	if err != nil {
		return nil, err
	}
	if customer.DeletedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

func (s *service) Update(ctx context.Context, orgID, customerID uuid.UUID, input CustomerInput) (*models.Customer, error) {
	if _, err := s.Get(ctx, orgID, customerID); err != nil {
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
	if err := s.repo.Update(ctx, customerID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
	}
	return s.Get(ctx, orgID, customerID)
}

func (s *service) Delete(ctx context.Context, orgID, customerID uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, customerID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, customerID, map[string]any{"deleted_at": time.Now().UTC()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
	}
	return nil
}

func (s *service) Restore(ctx context.Context, orgID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.load(ctx, orgID, customerID)
	if err != nil {
		return nil, err
	}
	if customer.DeletedAt == nil {
		return customer, nil
	}
	if err := s.repo.Update(ctx, customerID, map[string]any{"deleted_at": nil}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore customer")
	}
	customer.DeletedAt = nil
	return customer, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, search string, params pagination.Params) (*CustomerPage, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.ClampLimit(params.Limit)
	customers, err := s.repo.List(ctx, orgID, search, false, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}

	page := &CustomerPage{Customers: customers}
	if len(customers) > limit {
		page.Customers = customers[:limit]
		last := page.Customers[limit-1]
		next := pagination.After(last.CreatedAt, last.ID).Encode()
		page.NextCursor = &next
	}
	return page, nil
}

func (s *service) load(ctx context.Context, orgID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, orgID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}
