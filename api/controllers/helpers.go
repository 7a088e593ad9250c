package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/api/middleware"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// identity extracts the tenant and actor seeded by the auth middleware.
func identity(ctx context.Context) (orgID, userID uuid.UUID, err error) {
	orgID = middleware.OrganizationUUID(ctx)
	if orgID == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization context missing")
	}
	userID = middleware.UserUUID(ctx)
	if userID == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return orgID, userID, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}
