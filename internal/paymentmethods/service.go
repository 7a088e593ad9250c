package paymentmethods

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// MethodInput carries the writable payment method fields.
type MethodInput struct {
	Name string
	Kind enums.PaymentMethodKind
}

// Service manages the org-scoped tender catalog. Methods referenced by sale
// payments are deactivated rather than removed.
type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input MethodInput) (*models.PaymentMethod, error)
	List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.PaymentMethod, error)
	SetActive(ctx context.Context, orgID, methodID uuid.UUID, active bool) (*models.PaymentMethod, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds a payment method service tied to the provided GORM DB.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{db: db}, nil
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input MethodInput) (*models.PaymentMethod, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method kind")
	}

	method := &models.PaymentMethod{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Kind:           input.Kind,
		IsActive:       true,
	}
	if err := s.db.WithContext(ctx).Create(method).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment method")
	}
	return method, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.PaymentMethod, error) {
	query := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var methods []models.PaymentMethod
	if err := query.Find(&methods).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	return methods, nil
}

func (s *service) SetActive(ctx context.Context, orgID, methodID uuid.UUID, active bool) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := s.db.WithContext(ctx).
		First(&method, "id = ? AND organization_id = ?", methodID, orgID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}

	err = s.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("id = ?", methodID).
		Update("is_active", active).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment method")
	}
	method.IsActive = active
	return &method, nil
}
