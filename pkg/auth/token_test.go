package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "tillpoint-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	storeID := uuid.New()
	payload := AccessTokenPayload{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		ActiveStoreID:  &storeID,
		Role:           enums.MemberRoleManager,
	}

	signed, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("user id mismatch: %s", claims.UserID)
	}
	if claims.OrganizationID != payload.OrganizationID {
		t.Fatalf("organization id mismatch: %s", claims.OrganizationID)
	}
	if claims.ActiveStoreID == nil || *claims.ActiveStoreID != storeID {
		t.Fatalf("store id mismatch: %v", claims.ActiveStoreID)
	}
	if claims.Role != enums.MemberRoleManager {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
}

func TestMintRejectsInvalidPayload(t *testing.T) {
	cfg := testJWTConfig()

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		OrganizationID: uuid.New(),
		Role:           enums.MemberRoleOwner,
	}); err == nil {
		t.Fatal("expected error for missing user id")
	}

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.MemberRoleOwner,
	}); err == nil {
		t.Fatal("expected error for missing organization id")
	}

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           "superuser",
	}); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           enums.MemberRoleCashier,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected signature validation failure")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           enums.MemberRoleCashier,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expiry validation failure")
	}
}
