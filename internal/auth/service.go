package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/users"
	pkgauth "github.com/tillpoint/tillpoint-backend/pkg/auth"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput provisions a new organization with its owner account and
// first store.
type RegisterInput struct {
	OrganizationName string
	Email            string
	Password         string
	FullName         string
	StoreName        string
}

// Session is the result of a successful login or registration.
type Session struct {
	Token          string           `json:"token"`
	UserID         uuid.UUID        `json:"user_id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	Role           enums.MemberRole `json:"role"`
	FullName       string           `json:"full_name"`
	StoreID        *uuid.UUID       `json:"store_id,omitempty"`
}

// Service handles credentials and onboarding.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*Session, error)
	Register(ctx context.Context, input RegisterInput) (*Session, error)
}

type service struct {
	userRepo users.Repository
	tx       txRunner
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
}

// NewService builds an auth service with the required dependencies.
func NewService(userRepo users.Repository, tx txRunner, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig) (Service, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{userRepo: userRepo, tx: tx, jwtCfg: jwtCfg, pwCfg: pwCfg}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	if err := s.userRepo.Update(ctx, user.ID, map[string]any{"last_login_at": time.Now().UTC()}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp login")
	}

	return s.mintSession(user, nil)
}

// Register creates the organization, its owner account and the first store
// atomically. A duplicate email aborts the whole onboarding.
func (s *service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	orgName := strings.TrimSpace(input.OrganizationName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)

	if orgName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email required")
	}
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	storeName := strings.TrimSpace(input.StoreName)
	if storeName == "" {
		storeName = "Main Store"
	}

	var owner *models.User
	var storeID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)

		org := &models.Organization{
			ID:   uuid.New(),
			Name: orgName,
		}
		if err := tx.WithContext(ctx).Create(org).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create organization")
		}

		user := &models.User{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Email:          email,
			PasswordHash:   hash,
			FullName:       fullName,
			Role:           enums.MemberRoleOwner,
			IsActive:       true,
		}
		created, err := userRepo.Create(ctx, user)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner account")
		}

		org.OwnerID = created.ID
		if err := tx.WithContext(ctx).Model(org).Update("owner_id", created.ID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link organization owner")
		}

		store := &models.Store{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Name:           storeName,
		}
		if err := tx.WithContext(ctx).Create(store).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create first store")
		}

		owner = created
		storeID = store.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.mintSession(owner, &storeID)
}

func (s *service) mintSession(user *models.User, storeID *uuid.UUID) (*Session, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		ActiveStoreID:  storeID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &Session{
		Token:          token,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		FullName:       user.FullName,
		StoreID:        storeID,
	}, nil
}
