package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// Summary is the merchant-facing KPI snapshot for one day.
type Summary struct {
	Date              string          `json:"date"`
	RevenueCents      int64           `json:"revenue_cents"`
	SalesCount        int64           `json:"sales_count"`
	AverageSaleValue  decimal.Decimal `json:"average_sale_value"`
	OutstandingCents  int64           `json:"outstanding_cents"`
	OverdueSalesCount int64           `json:"overdue_sales_count"`
	LowStockCount     int64           `json:"low_stock_count"`
	TopProducts       []TopProduct    `json:"top_products"`
}

// TopProduct is one row of the day's best sellers.
type TopProduct struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	QuantitySold int64     `json:"quantity_sold"`
	RevenueCents int64     `json:"revenue_cents"`
}

const topProductsLimit = 5

// Service aggregates sales and stock data into dashboard KPIs.
type Service interface {
	Summary(ctx context.Context, orgID uuid.UUID, day time.Time) (*Summary, error)
}

type service struct {
	db          *gorm.DB
	productRepo products.Repository
}

// NewService builds a dashboard service.
func NewService(db *gorm.DB, productRepo products.Repository) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{db: db, productRepo: productRepo}, nil
}

// Summary computes the KPIs for the calendar day containing the given time.
// Cancelled sales are excluded everywhere.
func (s *service) Summary(ctx context.Context, orgID uuid.UUID, day time.Time) (*Summary, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var daily struct {
		RevenueCents int64
		SalesCount   int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("COALESCE(SUM(total_cents), 0) AS revenue_cents, COUNT(*) AS sales_count").
		Where("organization_id = ? AND status != ? AND sale_date >= ? AND sale_date < ?",
			orgID, enums.SaleStatusCancelled, dayStart, dayEnd).
		Scan(&daily).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate daily sales")
	}

	var outstanding int64
	err = s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select(`COALESCE(SUM(total_cents - (
			SELECT COALESCE(SUM(amount_cents), 0) FROM sale_payments WHERE sale_payments.sale_id = sales.id
		)), 0)`).
		Where("organization_id = ? AND status IN ?", orgID,
			[]enums.SaleStatus{enums.SaleStatusPending, enums.SaleStatusOverdue}).
		Scan(&outstanding).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate receivables")
	}

	var overdueCount int64
	err = s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("organization_id = ? AND status = ?", orgID, enums.SaleStatusOverdue).
		Count(&overdueCount).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count overdue sales")
	}

	lowStock, err := s.productRepo.CountLowStock(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count low stock products")
	}

	var top []TopProduct
	err = s.db.WithContext(ctx).
		Model(&models.SaleItem{}).
		Select(`sale_items.product_id AS product_id,
			products.name AS name,
			SUM(sale_items.quantity) AS quantity_sold,
			SUM(sale_items.subtotal_cents) AS revenue_cents`).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.organization_id = ? AND sales.status != ? AND sales.sale_date >= ? AND sales.sale_date < ?",
			orgID, enums.SaleStatusCancelled, dayStart, dayEnd).
		Group("sale_items.product_id, products.name").
		Order("quantity_sold DESC").
		Limit(topProductsLimit).
		Scan(&top).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank top products")
	}

	average := decimal.Zero
	if daily.SalesCount > 0 {
		// Cents to currency units with exact division, rounded half up.
		average = decimal.NewFromInt(daily.RevenueCents).
			Div(decimal.NewFromInt(daily.SalesCount)).
			DivRound(decimal.NewFromInt(100), 2)
	}

	return &Summary{
		Date:              dayStart.Format("2006-01-02"),
		RevenueCents:      daily.RevenueCents,
		SalesCount:        daily.SalesCount,
		AverageSaleValue:  average,
		OutstandingCents:  outstanding,
		OverdueSalesCount: overdueCount,
		LowStockCount:     lowStock,
		TopProducts:       top,
	}, nil
}
