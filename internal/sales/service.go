package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service composes sales on top of the stock ledger. Every write that touches
// both a sale and product stock happens in one transaction.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	CancelSale(ctx context.Context, input CancelSaleInput) (*models.Sale, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Sale, error)
	MarkOverdue(ctx context.Context, orgID, saleID uuid.UUID) (*models.Sale, error)
	SweepOverdue(ctx context.Context, orgID uuid.UUID) (int, error)
	GetSale(ctx context.Context, orgID, saleID uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, orgID uuid.UUID, filter ListFilter, params pagination.Params) (*SalePage, error)
}

type service struct {
	repo      Repository
	stockRepo stock.Repository
	tx        txRunner
}

// NewService builds a sales service with the required dependencies.
func NewService(repo Repository, stockRepo stock.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, stockRepo: stockRepo, tx: tx}, nil
}

// saleReference ties ledger entries back to the sale that caused them.
func saleReference(saleID uuid.UUID) string {
	return "sale:" + saleID.String()
}

// CreateSale writes the sale, its items and payments, one OUT movement per
// line, and the stock decrements as a single transaction. Any line without
// enough stock rejects the whole sale.
func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if err := s.validateCreate(ctx, &input); err != nil {
		return nil, err
	}

	subtotal := 0
	items := make([]models.SaleItem, 0, len(input.Items))
	for _, item := range input.Items {
		lineSubtotal := item.Quantity * item.UnitPriceCents
		subtotal += lineSubtotal
		items = append(items, models.SaleItem{
			ID:             uuid.New(),
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  lineSubtotal,
		})
	}
	total := subtotal

	if err := validatePaymentTotals(input.Status, input.Payments, total); err != nil {
		return nil, err
	}

	saleID := uuid.New()
	payments := make([]models.SalePayment, 0, len(input.Payments))
	for _, payment := range input.Payments {
		payments = append(payments, models.SalePayment{
			ID:              uuid.New(),
			SaleID:          saleID,
			PaymentMethodID: payment.PaymentMethodID,
			AmountCents:     payment.AmountCents,
			Reference:       payment.Reference,
		})
	}

	var created *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.stockRepo.WithTx(tx)

		reference := saleReference(saleID)
		reason := "sale"
		for _, item := range input.Items {
			applied, err := ledger.ApplyStockDelta(ctx, input.OrganizationID, item.ProductID, -item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !applied {
				return classifyStockRejection(ctx, ledger, input.OrganizationID, item.ProductID, item.Quantity)
			}

			_, err = ledger.CreateMovement(ctx, &models.StockMovement{
				ID:             uuid.New(),
				OrganizationID: input.OrganizationID,
				ProductID:      item.ProductID,
				StoreID:        &input.StoreID,
				UserID:         input.UserID,
				Type:           enums.MovementTypeOut,
				Quantity:       item.Quantity,
				Reason:         &reason,
				Reference:      &reference,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale movement")
			}
		}

		sale := &models.Sale{
			ID:             saleID,
			OrganizationID: input.OrganizationID,
			StoreID:        input.StoreID,
			CustomerID:     input.CustomerID,
			UserID:         input.UserID,
			Status:         input.Status,
			SaleDate:       input.SaleDate,
			DueDate:        input.DueDate,
			SubtotalCents:  subtotal,
			TotalCents:     total,
			Notes:          input.Notes,
			Items:          items,
			Payments:       payments,
		}

		var err error
		created, err = repo.CreateSale(ctx, sale)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CancelSale moves the sale to CANCELLED and reverses every ledger entry the
// sale produced, restoring product stock.
func (s *service) CancelSale(ctx context.Context, input CancelSaleInput) (*models.Sale, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var cancelled *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.stockRepo.WithTx(tx)

		sale, err := loadSale(ctx, repo, input.OrganizationID, input.SaleID)
		if err != nil {
			return err
		}
		if !sale.Status.CanTransitionTo(enums.SaleStatusCancelled) {
			return transitionError(sale.Status, enums.SaleStatusCancelled)
		}

		movements, err := ledger.FindMovementsByReference(ctx, input.OrganizationID, saleReference(sale.ID))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale movements")
		}

		now := time.Now().UTC()
		for _, movement := range movements {
			if movement.ReversedAt != nil {
				continue
			}
			applied, err := ledger.ApplyStockDelta(ctx, input.OrganizationID, movement.ProductID, movement.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeDependency, "restore stock rejected").
					WithDetails(map[string]any{"product_id": movement.ProductID})
			}
			if err := ledger.MarkReversed(ctx, movement.ID, input.UserID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse sale movement")
			}
		}

		updates := map[string]any{"status": enums.SaleStatusCancelled}
		if input.Reason != nil {
			updates["cancel_reason"] = *input.Reason
		}
		if err := repo.UpdateSale(ctx, sale.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
		}

		sale.Status = enums.SaleStatusCancelled
		sale.CancelReason = input.Reason
		cancelled = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// MarkPaid appends the supplied payments and settles the sale. The transition
// is rejected unless the payment sum equals the sale total exactly.
func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Sale, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	for _, payment := range input.Payments {
		if payment.AmountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
		}
	}
	if err := s.checkPaymentMethods(ctx, input.OrganizationID, input.Payments); err != nil {
		return nil, err
	}

	var settled *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := loadSale(ctx, repo, input.OrganizationID, input.SaleID)
		if err != nil {
			return err
		}
		if !sale.Status.CanTransitionTo(enums.SaleStatusPaid) {
			return transitionError(sale.Status, enums.SaleStatusPaid)
		}

		payments := make([]models.SalePayment, 0, len(input.Payments))
		for _, payment := range input.Payments {
			payments = append(payments, models.SalePayment{
				ID:              uuid.New(),
				SaleID:          sale.ID,
				PaymentMethodID: payment.PaymentMethodID,
				AmountCents:     payment.AmountCents,
				Reference:       payment.Reference,
			})
		}
		if err := repo.CreatePayments(ctx, payments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payments")
		}

		paid, err := repo.SumPayments(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
		}
		if paid != sale.TotalCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "payments must equal sale total").
				WithDetails(map[string]any{"total_cents": sale.TotalCents, "paid_cents": paid})
		}

		if err := repo.UpdateSale(ctx, sale.ID, map[string]any{"status": enums.SaleStatusPaid}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
		}

		sale.Status = enums.SaleStatusPaid
		sale.Payments = append(sale.Payments, payments...)
		settled = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// MarkOverdue flags a pending sale whose due date has passed.
func (s *service) MarkOverdue(ctx context.Context, orgID, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}

	var flagged *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := loadSale(ctx, repo, orgID, saleID)
		if err != nil {
			return err
		}
		if !sale.Status.CanTransitionTo(enums.SaleStatusOverdue) {
			return transitionError(sale.Status, enums.SaleStatusOverdue)
		}
		if sale.DueDate == nil || sale.DueDate.After(time.Now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is not past due")
		}

		if err := repo.UpdateSale(ctx, sale.ID, map[string]any{"status": enums.SaleStatusOverdue}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
		}

		sale.Status = enums.SaleStatusOverdue
		flagged = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flagged, nil
}

// SweepOverdue flags every pending sale in the organization whose due date has
// passed. Returns the number of sales flagged.
func (s *service) SweepOverdue(ctx context.Context, orgID uuid.UUID) (int, error) {
	var flagged int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ids, err := repo.ListPendingPastDueIDs(ctx, orgID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list past due sales")
		}
		for _, id := range ids {
			if err := repo.UpdateSale(ctx, id, map[string]any{"status": enums.SaleStatusOverdue}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
			}
		}
		flagged = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

func (s *service) GetSale(ctx context.Context, orgID, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	return loadSale(ctx, s.repo, orgID, saleID)
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter, params pagination.Params) (*SalePage, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.ClampLimit(params.Limit)
	sales, err := s.repo.List(ctx, orgID, filter, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}

	page := &SalePage{Sales: sales}
	if len(sales) > limit {
		page.Sales = sales[:limit]
		last := page.Sales[limit-1]
		next := pagination.After(last.CreatedAt, last.ID).Encode()
		page.NextCursor = &next
	}
	return page, nil
}

func (s *service) validateCreate(ctx context.Context, input *CreateSaleInput) error {
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}
	if input.Status != enums.SaleStatusPaid && input.Status != enums.SaleStatusPending {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale must start as paid or pending")
	}
	if input.Status == enums.SaleStatusPending && input.DueDate == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pending sale requires a due date")
	}
	if input.SaleDate.IsZero() {
		input.SaleDate = time.Now().UTC()
	}

	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if seen[item.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in sale items").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		seen[item.ProductID] = true
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.UnitPriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item unit price cannot be negative")
		}
	}

	for _, payment := range input.Payments {
		if payment.AmountCents <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
		}
	}
	return s.checkPaymentMethods(ctx, input.OrganizationID, input.Payments)
}

// checkPaymentMethods verifies every referenced tender exists in the org.
func (s *service) checkPaymentMethods(ctx context.Context, orgID uuid.UUID, payments []SalePaymentInput) error {
	if len(payments) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(payments))
	for _, payment := range payments {
		if payment.PaymentMethodID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment method id required")
		}
		ids = append(ids, payment.PaymentMethodID)
	}

	methods, err := s.repo.FindPaymentMethods(ctx, orgID, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment methods")
	}
	known := make(map[uuid.UUID]bool, len(methods))
	for _, method := range methods {
		known[method.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
				WithDetails(map[string]any{"payment_method_id": id})
		}
	}
	return nil
}

func validatePaymentTotals(status enums.SaleStatus, payments []SalePaymentInput, total int) error {
	paid := 0
	for _, payment := range payments {
		paid += payment.AmountCents
	}
	if status == enums.SaleStatusPaid && paid != total {
		return pkgerrors.New(pkgerrors.CodeValidation, "payments must equal sale total").
			WithDetails(map[string]any{"total_cents": total, "paid_cents": paid})
	}
	if status == enums.SaleStatusPending && paid > total {
		return pkgerrors.New(pkgerrors.CodeValidation, "payments exceed sale total").
			WithDetails(map[string]any{"total_cents": total, "paid_cents": paid})
	}
	return nil
}

func loadSale(ctx context.Context, repo Repository, orgID, saleID uuid.UUID) (*models.Sale, error) {
	sale, err := repo.FindSale(ctx, orgID, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

func transitionError(from, to enums.SaleStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "sale status transition disallowed").
		WithDetails(map[string]any{"from": from, "to": to})
}

func classifyStockRejection(ctx context.Context, ledger stock.Repository, orgID, productID uuid.UUID, requested int) error {
	product, err := ledger.FindProduct(ctx, orgID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id":    product.ID,
			"current_stock": product.CurrentStock,
			"requested":     requested,
		})
}
