package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

func setupDashboardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:dashboard_%s?mode=memory&cache=shared", uuid.NewString())
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
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type dashboardTestEnv struct {
	db    *gorm.DB
	svc   Service
	orgID uuid.UUID
	store uuid.UUID
	user  uuid.UUID
}

func newDashboardTestEnv(t *testing.T) *dashboardTestEnv {
	t.Helper()

	db := setupDashboardTestDB(t)
	svc, err := NewService(db, products.NewRepository(db))
	require.NoError(t, err)

	return &dashboardTestEnv{
		db:    db,
		svc:   svc,
		orgID: uuid.New(),
		store: uuid.New(),
		user:  uuid.New(),
	}
}

func (e *dashboardTestEnv) seedProduct(t *testing.T, name string, currentStock, minStock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:             uuid.New(),
		OrganizationID: e.orgID,
		SKU:            fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:           name,
		PriceCents:     500,
		CurrentStock:   currentStock,
		MinStock:       minStock,
		IsActive:       true,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *dashboardTestEnv) seedSale(t *testing.T, status enums.SaleStatus, saleDate time.Time, items []models.SaleItem, paidCents int) *models.Sale {
	t.Helper()

	total := 0
	for i := range items {
		items[i].ID = uuid.New()
		total += items[i].SubtotalCents
	}
	sale := &models.Sale{
		ID:             uuid.New(),
		OrganizationID: e.orgID,
		StoreID:        e.store,
		UserID:         e.user,
		Status:         status,
		SaleDate:       saleDate,
		SubtotalCents:  total,
		TotalCents:     total,
	}
	require.NoError(t, e.db.Create(sale).Error)

	for i := range items {
		items[i].SaleID = sale.ID
		require.NoError(t, e.db.Create(&items[i]).Error)
	}
	if paidCents > 0 {
		require.NoError(t, e.db.Create(&models.SalePayment{
			ID:              uuid.New(),
			SaleID:          sale.ID,
			PaymentMethodID: uuid.New(),
			AmountCents:     paidCents,
		}).Error)
	}
	return sale
}

func TestSummaryComputesDailyKPIs(t *testing.T) {
	env := newDashboardTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	coffee := env.seedProduct(t, "Coffee", 50, 5)
	beans := env.seedProduct(t, "Beans", 2, 10) // below min stock

	// Paid sale today: 3x coffee + 1x beans.
	env.seedSale(t, enums.SaleStatusPaid, now, []models.SaleItem{
		{ProductID: coffee.ID, Quantity: 3, UnitPriceCents: 500, SubtotalCents: 1500},
		{ProductID: beans.ID, Quantity: 1, UnitPriceCents: 1000, SubtotalCents: 1000},
	}, 2500)

	// Pending sale today, partially paid.
	env.seedSale(t, enums.SaleStatusPending, now, []models.SaleItem{
		{ProductID: coffee.ID, Quantity: 2, UnitPriceCents: 500, SubtotalCents: 1000},
	}, 400)

	// Cancelled sale today must not count anywhere.
	env.seedSale(t, enums.SaleStatusCancelled, now, []models.SaleItem{
		{ProductID: beans.ID, Quantity: 10, UnitPriceCents: 1000, SubtotalCents: 10000},
	}, 0)

	// Overdue sale from yesterday: receivable, not today's revenue.
	env.seedSale(t, enums.SaleStatusOverdue, now.Add(-24*time.Hour), []models.SaleItem{
		{ProductID: coffee.ID, Quantity: 1, UnitPriceCents: 500, SubtotalCents: 500},
	}, 0)

	summary, err := env.svc.Summary(ctx, env.orgID, now)
	require.NoError(t, err)

	assert.EqualValues(t, 3500, summary.RevenueCents)
	assert.EqualValues(t, 2, summary.SalesCount)
	assert.True(t, summary.AverageSaleValue.Equal(decimal.RequireFromString("17.5")),
		"average was %s", summary.AverageSaleValue)
	// Pending 1000-400 plus the overdue 500.
	assert.EqualValues(t, 1100, summary.OutstandingCents)
	assert.EqualValues(t, 1, summary.OverdueSalesCount)
	assert.EqualValues(t, 1, summary.LowStockCount)

	require.Len(t, summary.TopProducts, 2)
	assert.Equal(t, coffee.ID, summary.TopProducts[0].ProductID)
	assert.Equal(t, "Coffee", summary.TopProducts[0].Name)
	assert.EqualValues(t, 5, summary.TopProducts[0].QuantitySold)
	assert.EqualValues(t, 2500, summary.TopProducts[0].RevenueCents)
	assert.Equal(t, beans.ID, summary.TopProducts[1].ProductID)
	assert.EqualValues(t, 1, summary.TopProducts[1].QuantitySold)
}

func TestSummaryEmptyDayReturnsZeros(t *testing.T) {
	env := newDashboardTestEnv(t)

	summary, err := env.svc.Summary(context.Background(), env.orgID, time.Now())
	require.NoError(t, err)

	assert.Zero(t, summary.RevenueCents)
	assert.Zero(t, summary.SalesCount)
	assert.True(t, summary.AverageSaleValue.IsZero())
	assert.Zero(t, summary.OutstandingCents)
	assert.Zero(t, summary.OverdueSalesCount)
	assert.Empty(t, summary.TopProducts)
}

func TestSummaryIsOrganizationScoped(t *testing.T) {
	env := newDashboardTestEnv(t)
	now := time.Now()

	product := env.seedProduct(t, "Coffee", 50, 5)
	env.seedSale(t, enums.SaleStatusPaid, now, []models.SaleItem{
		{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500, SubtotalCents: 500},
	}, 500)

	summary, err := env.svc.Summary(context.Background(), uuid.New(), now)
	require.NoError(t, err)
	assert.Zero(t, summary.RevenueCents)
	assert.Empty(t, summary.TopProducts)
}
