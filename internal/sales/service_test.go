package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

func dueTomorrow() *time.Time {
	due := time.Now().Add(24 * time.Hour)
	return &due
}

func TestCreateSaleDecrementsStockAndRecordsLedger(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 500)

	sale, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        dueTomorrow(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 3, UnitPriceCents: 500},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1500, sale.SubtotalCents)
	assert.Equal(t, 1500, sale.TotalCents)
	assert.Equal(t, enums.SaleStatusPending, sale.Status)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 1500, sale.Items[0].SubtotalCents)

	assert.Equal(t, 7, env.currentStock(t, product.ID))

	var movements []models.StockMovement
	require.NoError(t, env.db.Find(&movements, "product_id = ?", product.ID).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.MovementTypeOut, movements[0].Type)
	assert.Equal(t, 3, movements[0].Quantity)
	require.NotNil(t, movements[0].Reason)
	assert.Equal(t, "sale", *movements[0].Reason)
	require.NotNil(t, movements[0].Reference)
	assert.Equal(t, saleReference(sale.ID), *movements[0].Reference)
}

func TestCreateSaleRollsBackWhenAnyLineOversells(t *testing.T) {
	env := newSalesTestEnv(t)
	plenty := env.seedProduct(t, 100, 200)
	scarce := env.seedProduct(t, 1, 300)

	_, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        dueTomorrow(),
		Items: []SaleItemInput{
			{ProductID: plenty.ID, Quantity: 5, UnitPriceCents: 200},
			{ProductID: scarce.ID, Quantity: 2, UnitPriceCents: 300},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// The whole transaction must unwind, including the first line's decrement.
	assert.Equal(t, 100, env.currentStock(t, plenty.ID))
	assert.Equal(t, 1, env.currentStock(t, scarce.ID))

	var saleCount, movementCount int64
	require.NoError(t, env.db.Model(&models.Sale{}).Count(&saleCount).Error)
	require.NoError(t, env.db.Model(&models.StockMovement{}).Count(&movementCount).Error)
	assert.Zero(t, saleCount)
	assert.Zero(t, movementCount)
}

func TestConcurrentSalesCannotOversell(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 500)

	// One connection forces the two transactions to serialize the same way
	// Postgres row locks do, so the guarded stock update decides the loser.
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	makeInput := func() CreateSaleInput {
		return CreateSaleInput{
			OrganizationID: env.orgID,
			StoreID:        env.store,
			UserID:         env.user,
			Status:         enums.SaleStatusPending,
			SaleDate:       time.Now(),
			DueDate:        dueTomorrow(),
			Items: []SaleItemInput{
				{ProductID: product.ID, Quantity: 6, UnitPriceCents: 500},
			},
		}
	}

	start := make(chan struct{})
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = env.svc.CreateSale(context.Background(), makeInput())
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "unexpected error: %v", err)
		require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 4, env.currentStock(t, product.ID))

	var saleCount int64
	require.NoError(t, env.db.Model(&models.Sale{}).Count(&saleCount).Error)
	assert.EqualValues(t, 1, saleCount)
}

func TestCreateSalePaidRequiresExactPaymentSum(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 1000)

	input := CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPaid,
		SaleDate:       time.Now(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 2, UnitPriceCents: 1000},
		},
		Payments: []SalePaymentInput{
			{PaymentMethodID: env.tender.ID, AmountCents: 1500},
		},
	}
	_, err := env.svc.CreateSale(context.Background(), input)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	input.Payments[0].AmountCents = 2000
	sale, err := env.svc.CreateSale(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPaid, sale.Status)
	require.Len(t, sale.Payments, 1)
}

func TestCreateSaleRejectsUnknownPaymentMethod(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 1000)

	_, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPaid,
		SaleDate:       time.Now(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 1, UnitPriceCents: 1000},
		},
		Payments: []SalePaymentInput{
			{PaymentMethodID: uuid.New(), AmountCents: 1000},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateSaleValidation(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 500)

	base := CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        dueTomorrow(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500},
		},
	}

	t.Run("no items", func(t *testing.T) {
		input := base
		input.Items = nil
		_, err := env.svc.CreateSale(context.Background(), input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("cancelled initial status", func(t *testing.T) {
		input := base
		input.Status = enums.SaleStatusCancelled
		_, err := env.svc.CreateSale(context.Background(), input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("zero quantity", func(t *testing.T) {
		input := base
		input.Items = []SaleItemInput{{ProductID: product.ID, Quantity: 0, UnitPriceCents: 500}}
		_, err := env.svc.CreateSale(context.Background(), input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("duplicate product lines", func(t *testing.T) {
		input := base
		input.Items = []SaleItemInput{
			{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500},
			{ProductID: product.ID, Quantity: 2, UnitPriceCents: 500},
		}
		_, err := env.svc.CreateSale(context.Background(), input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("pending without due date", func(t *testing.T) {
		input := base
		input.DueDate = nil
		_, err := env.svc.CreateSale(context.Background(), input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})
}

func TestCancelSaleRestoresStock(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 500)

	sale, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        dueTomorrow(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 4, UnitPriceCents: 500},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 6, env.currentStock(t, product.ID))

	reason := "customer returned"
	cancelled, err := env.svc.CancelSale(context.Background(), CancelSaleInput{
		OrganizationID: env.orgID,
		SaleID:         sale.ID,
		UserID:         env.user,
		Reason:         &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, reason, *cancelled.CancelReason)

	assert.Equal(t, 10, env.currentStock(t, product.ID))

	var movements []models.StockMovement
	require.NoError(t, env.db.Find(&movements, "product_id = ?", product.ID).Error)
	require.Len(t, movements, 1)
	assert.NotNil(t, movements[0].ReversedAt)
}

func TestCancelSaleIsTerminal(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 500)

	sale, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        dueTomorrow(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 2, UnitPriceCents: 500},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.CancelSale(context.Background(), CancelSaleInput{
		OrganizationID: env.orgID, SaleID: sale.ID, UserID: env.user,
	})
	require.NoError(t, err)

	// A second cancel must not restore stock twice.
	_, err = env.svc.CancelSale(context.Background(), CancelSaleInput{
		OrganizationID: env.orgID, SaleID: sale.ID, UserID: env.user,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, 10, env.currentStock(t, product.ID))

	_, err = env.svc.MarkPaid(context.Background(), MarkPaidInput{
		OrganizationID: env.orgID, SaleID: sale.ID, UserID: env.user,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestMarkPaidSettlesPendingSale(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 750)

	sale, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        dueTomorrow(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 2, UnitPriceCents: 750},
		},
		Payments: []SalePaymentInput{
			{PaymentMethodID: env.tender.ID, AmountCents: 500},
		},
	})
	require.NoError(t, err)

	// Short payment keeps the sale pending.
	_, err = env.svc.MarkPaid(context.Background(), MarkPaidInput{
		OrganizationID: env.orgID,
		SaleID:         sale.ID,
		UserID:         env.user,
		Payments: []SalePaymentInput{
			{PaymentMethodID: env.tender.ID, AmountCents: 100},
		},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	fetched, err := env.svc.GetSale(context.Background(), env.orgID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPending, fetched.Status)
	assert.Len(t, fetched.Payments, 1)

	settled, err := env.svc.MarkPaid(context.Background(), MarkPaidInput{
		OrganizationID: env.orgID,
		SaleID:         sale.ID,
		UserID:         env.user,
		Payments: []SalePaymentInput{
			{PaymentMethodID: env.tender.ID, AmountCents: 1000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPaid, settled.Status)
}

func TestMarkOverdueRequiresPastDue(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 500)

	future := time.Now().Add(24 * time.Hour)
	sale, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        &future,
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.MarkOverdue(context.Background(), env.orgID, sale.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	require.NoError(t, env.db.Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Update("due_date", time.Now().Add(-time.Hour)).Error)

	flagged, err := env.svc.MarkOverdue(context.Background(), env.orgID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusOverdue, flagged.Status)

	// Overdue sales can still be settled.
	settled, err := env.svc.MarkPaid(context.Background(), MarkPaidInput{
		OrganizationID: env.orgID,
		SaleID:         sale.ID,
		UserID:         env.user,
		Payments: []SalePaymentInput{
			{PaymentMethodID: env.tender.ID, AmountCents: 500},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusPaid, settled.Status)
}

func TestSweepOverdueFlagsOnlyPastDuePending(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 100, 500)
	ctx := context.Background()

	mkPending := func(due time.Time) *models.Sale {
		sale, err := env.svc.CreateSale(ctx, CreateSaleInput{
			OrganizationID: env.orgID,
			StoreID:        env.store,
			UserID:         env.user,
			Status:         enums.SaleStatusPending,
			SaleDate:       time.Now(),
			DueDate:        &due,
			Items: []SaleItemInput{
				{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500},
			},
		})
		require.NoError(t, err)
		return sale
	}

	overdue := mkPending(time.Now().Add(-48 * time.Hour))
	current := mkPending(time.Now().Add(48 * time.Hour))

	paid, err := env.svc.CreateSale(ctx, CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPaid,
		SaleDate:       time.Now(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500},
		},
		Payments: []SalePaymentInput{
			{PaymentMethodID: env.tender.ID, AmountCents: 500},
		},
	})
	require.NoError(t, err)

	count, err := env.svc.SweepOverdue(ctx, env.orgID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	check := func(id uuid.UUID, want enums.SaleStatus) {
		sale, err := env.svc.GetSale(ctx, env.orgID, id)
		require.NoError(t, err)
		assert.Equal(t, want, sale.Status)
	}
	check(overdue.ID, enums.SaleStatusOverdue)
	check(current.ID, enums.SaleStatusPending)
	check(paid.ID, enums.SaleStatusPaid)
}

func TestGetSaleIsOrganizationScoped(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 10, 500)

	sale, err := env.svc.CreateSale(context.Background(), CreateSaleInput{
		OrganizationID: env.orgID,
		StoreID:        env.store,
		UserID:         env.user,
		Status:         enums.SaleStatusPending,
		SaleDate:       time.Now(),
		DueDate:        dueTomorrow(),
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500},
		},
	})
	require.NoError(t, err)

	_, err = env.svc.GetSale(context.Background(), uuid.New(), sale.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListSalesFiltersAndPaginates(t *testing.T) {
	env := newSalesTestEnv(t)
	product := env.seedProduct(t, 100, 500)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := env.svc.CreateSale(ctx, CreateSaleInput{
			OrganizationID: env.orgID,
			StoreID:        env.store,
			UserID:         env.user,
			Status:         enums.SaleStatusPending,
			SaleDate:       time.Now(),
			DueDate:        dueTomorrow(),
			Items: []SaleItemInput{
				{ProductID: product.ID, Quantity: 1, UnitPriceCents: 500},
			},
		})
		require.NoError(t, err)
	}

	page, err := env.svc.List(ctx, env.orgID, ListFilter{}, pagination.Params{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Sales, 3)
	require.NotNil(t, page.NextCursor)

	rest, err := env.svc.List(ctx, env.orgID, ListFilter{}, pagination.Params{Limit: 3, Cursor: *page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Sales, 1)
	assert.Nil(t, rest.NextCursor)

	status := enums.SaleStatusPaid
	none, err := env.svc.List(ctx, env.orgID, ListFilter{Status: &status}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, none.Sales)

	otherOrg, err := env.svc.List(ctx, uuid.New(), ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, otherOrg.Sales)
}
