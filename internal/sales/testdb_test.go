package sales

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:sales_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  store_id TEXT,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  cost_cents INTEGER,
  current_stock INTEGER NOT NULL DEFAULT 0,
  min_stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  store_id TEXT,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  reason TEXT,
  reference TEXT,
  reversed_at DATETIME,
  reversed_by TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  customer_id TEXT,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  sale_date DATETIME NOT NULL,
  due_date DATETIME,
  subtotal_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  notes TEXT,
  cancel_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sale_items (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  subtotal_cents INTEGER NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS sale_payments (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  payment_method_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  reference TEXT
);`,
		`CREATE TABLE IF NOT EXISTS payment_methods (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type salesTestEnv struct {
	db     *gorm.DB
	svc    Service
	orgID  uuid.UUID
	store  uuid.UUID
	user   uuid.UUID
	tender *models.PaymentMethod
}

func newSalesTestEnv(t *testing.T) *salesTestEnv {
	t.Helper()

	db := setupSalesTestDB(t)
	svc, err := NewService(NewRepository(db), stock.NewRepository(db), testTxRunner{db: db})
	require.NoError(t, err)

	orgID := uuid.New()
	tender := &models.PaymentMethod{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "Cash",
		Kind:           enums.PaymentMethodKindCash,
		IsActive:       true,
	}
	require.NoError(t, db.Create(tender).Error)

	return &salesTestEnv{
		db:     db,
		svc:    svc,
		orgID:  orgID,
		store:  uuid.New(),
		user:   uuid.New(),
		tender: tender,
	}
}

func (e *salesTestEnv) seedProduct(t *testing.T, currentStock, priceCents int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:             uuid.New(),
		OrganizationID: e.orgID,
		SKU:            fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:           "Test Product",
		PriceCents:     priceCents,
		CurrentStock:   currentStock,
		IsActive:       true,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *salesTestEnv) currentStock(t *testing.T, productID uuid.UUID) int {
	t.Helper()

	var product models.Product
	require.NoError(t, e.db.First(&product, "id = ?", productID).Error)
	return product.CurrentStock
}
