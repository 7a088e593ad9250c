package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// StoreInput carries the writable store fields.
type StoreInput struct {
	Name    string
	Address *string
	Phone   *string
	Tags    []string
}

// Service exposes store management for an organization.
type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input StoreInput) (*models.Store, error)
	Get(ctx context.Context, orgID, storeID uuid.UUID) (*models.Store, error)
	Update(ctx context.Context, orgID, storeID uuid.UUID, input StoreInput) (*models.Store, error)
	Delete(ctx context.Context, orgID, storeID uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID) ([]models.Store, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds a store service tied to the provided GORM DB.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{db: db}, nil
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input StoreInput) (*models.Store, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	store := &models.Store{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Address:        input.Address,
		Phone:          input.Phone,
		Tags:           pq.StringArray(input.Tags),
	}
	if err := s.db.WithContext(ctx).Create(store).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
	}
	return store, nil
}

func (s *service) Get(ctx context.Context, orgID, storeID uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := s.db.WithContext(ctx).
		First(&store, "id = ? AND organization_id = ? AND deleted_at IS NULL", storeID, orgID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return &store, nil
}

func (s *service) Update(ctx context.Context, orgID, storeID uuid.UUID, input StoreInput) (*models.Store, error) {
	if _, err := s.Get(ctx, orgID, storeID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	updates := map[string]any{
		"name":    name,
		"address": input.Address,
		"phone":   input.Phone,
	}
	if input.Tags != nil {
		updates["tags"] = pq.StringArray(input.Tags)
	}

	err := s.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Updates(updates).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
	}
	return s.Get(ctx, orgID, storeID)
}

func (s *service) Delete(ctx context.Context, orgID, storeID uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, storeID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Update("deleted_at", time.Now().UTC()).
		Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete store")
	}
	return nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID) ([]models.Store, error) {
	var stores []models.Store
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND deleted_at IS NULL", orgID).
		Order("created_at ASC").
		Find(&stores).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	return stores, nil
}
