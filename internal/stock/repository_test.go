package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

func TestFindMovementScopedToOrganization(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewRepository(db)

	orgID := uuid.New()
	movement := &models.StockMovement{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ProductID:      uuid.New(),
		UserID:         uuid.New(),
		Type:           enums.MovementTypeIn,
		Quantity:       1,
	}
	_, err := repo.CreateMovement(context.Background(), movement)
	require.NoError(t, err)

	found, err := repo.FindMovement(context.Background(), orgID, movement.ID)
	require.NoError(t, err)
	assert.Equal(t, movement.ID, found.ID)

	_, err = repo.FindMovement(context.Background(), uuid.New(), movement.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindMovementsByReference(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewRepository(db)

	orgID := uuid.New()
	productID := uuid.New()
	reference := "sale:" + uuid.NewString()

	for i := 0; i < 2; i++ {
		ref := reference
		_, err := repo.CreateMovement(context.Background(), &models.StockMovement{
			ID:             uuid.New(),
			OrganizationID: orgID,
			ProductID:      productID,
			UserID:         uuid.New(),
			Type:           enums.MovementTypeOut,
			Quantity:       i + 1,
			Reference:      &ref,
		})
		require.NoError(t, err)
	}

	other := "sale:" + uuid.NewString()
	_, err := repo.CreateMovement(context.Background(), &models.StockMovement{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ProductID:      productID,
		UserID:         uuid.New(),
		Type:           enums.MovementTypeOut,
		Quantity:       9,
		Reference:      &other,
	})
	require.NoError(t, err)

	matches, err := repo.FindMovementsByReference(context.Background(), orgID, reference)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	none, err := repo.FindMovementsByReference(context.Background(), uuid.New(), reference)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestApplyStockDeltaGuard(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewRepository(db)

	orgID := uuid.New()
	product := seedProduct(t, db, orgID, 5)

	applied, err := repo.ApplyStockDelta(context.Background(), orgID, product.ID, -5)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ApplyStockDelta(context.Background(), orgID, product.ID, -1)
	require.NoError(t, err)
	assert.False(t, applied)

	var updated models.Product
	require.NoError(t, db.First(&updated, "id = ?", product.ID).Error)
	assert.Zero(t, updated.CurrentStock)
}
