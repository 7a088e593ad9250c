package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	ActiveStoreID  *uuid.UUID
	Role           enums.MemberRole
}

// AccessTokenClaims represents the typed JWT issued to clients. The
// organization id in the claims is what scopes every downstream query.
type AccessTokenClaims struct {
	UserID         uuid.UUID        `json:"user_id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	ActiveStoreID  *uuid.UUID       `json:"active_store_id,omitempty"`
	Role           enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
