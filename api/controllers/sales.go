package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	salesvc "github.com/tillpoint/tillpoint-backend/internal/sales"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

type saleItemRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"gte=0"`
}

type salePaymentRequest struct {
	PaymentMethodID string  `json:"payment_method_id" validate:"required,uuid"`
	AmountCents     int     `json:"amount_cents" validate:"required,gt=0"`
	Reference       *string `json:"reference,omitempty"`
}

type createSaleRequest struct {
	StoreID    string               `json:"store_id" validate:"required,uuid"`
	CustomerID *string              `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	Status     string               `json:"status" validate:"required,oneof=paid pending"`
	SaleDate   *time.Time           `json:"sale_date,omitempty"`
	DueDate    *time.Time           `json:"due_date,omitempty"`
	Notes      *string              `json:"notes,omitempty"`
	Items      []saleItemRequest    `json:"items" validate:"required,min=1,dive"`
	Payments   []salePaymentRequest `json:"payments,omitempty" validate:"omitempty,dive"`
}

type cancelSaleRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type markPaidRequest struct {
	Payments []salePaymentRequest `json:"payments,omitempty" validate:"omitempty,dive"`
}

func (r createSaleRequest) toInput(orgID, userID uuid.UUID) (salesvc.CreateSaleInput, error) {
	status, err := enums.ParseSaleStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale status")
	}

	storeID, err := uuid.Parse(r.StoreID)
	if err != nil {
		return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
	}

	input := salesvc.CreateSaleInput{
		OrganizationID: orgID,
		StoreID:        storeID,
		UserID:         userID,
		Status:         status,
		DueDate:        r.DueDate,
		Notes:          r.Notes,
	}
	if r.SaleDate != nil {
		input.SaleDate = *r.SaleDate
	}
	if r.CustomerID != nil {
		customerID, err := uuid.Parse(*r.CustomerID)
		if err != nil {
			return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id")
		}
		input.CustomerID = &customerID
	}

	for _, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item product id")
		}
		input.Items = append(input.Items, salesvc.SaleItemInput{
			ProductID:      productID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	payments, err := parsePayments(r.Payments)
	if err != nil {
		return salesvc.CreateSaleInput{}, err
	}
	input.Payments = payments
	return input, nil
}

func parsePayments(requests []salePaymentRequest) ([]salesvc.SalePaymentInput, error) {
	payments := make([]salesvc.SalePaymentInput, 0, len(requests))
	for _, payment := range requests {
		methodID, err := uuid.Parse(payment.PaymentMethodID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method id")
		}
		payments = append(payments, salesvc.SalePaymentInput{
			PaymentMethodID: methodID,
			AmountCents:     payment.AmountCents,
			Reference:       payment.Reference,
		})
	}
	return payments, nil
}

// CreateSale composes a sale with its items, payments and stock movements.
func CreateSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		orgID, userID, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(orgID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.CreateSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// CancelSale moves the sale to cancelled and restores the stock it consumed.
func CancelSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		orgID, userID, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := validators.PathUUID(chi.URLParam(r, "saleID"), "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.CancelSale(r.Context(), salesvc.CancelSaleInput{
			OrganizationID: orgID,
			SaleID:         saleID,
			UserID:         userID,
			Reason:         payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// PaySale settles a pending or overdue sale once payments cover the total.
func PaySale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		orgID, userID, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := validators.PathUUID(chi.URLParam(r, "saleID"), "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload markPaidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payments, err := parsePayments(payload.Payments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.MarkPaid(r.Context(), salesvc.MarkPaidInput{
			OrganizationID: orgID,
			SaleID:         saleID,
			UserID:         userID,
			Payments:       payments,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// MarkSaleOverdue flags a pending sale whose due date has passed.
func MarkSaleOverdue(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		orgID, _, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := validators.PathUUID(chi.URLParam(r, "saleID"), "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.MarkOverdue(r.Context(), orgID, saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// SweepOverdueSales flags every past-due pending sale in the organization.
func SweepOverdueSales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		orgID, _, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flagged, err := svc.SweepOverdue(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"flagged": flagged})
	}
}

func GetSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		orgID, _, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := validators.PathUUID(chi.URLParam(r, "saleID"), "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSale(r.Context(), orgID, saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

func ListSales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		orgID, _, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := saleListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), orgID, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func saleListFilter(r *http.Request) (salesvc.ListFilter, error) {
	var filter salesvc.ListFilter

	storeID, err := validators.ParseQueryUUID(r, "store_id")
	if err != nil {
		return filter, err
	}
	filter.StoreID = storeID

	customerID, err := validators.ParseQueryUUID(r, "customer_id")
	if err != nil {
		return filter, err
	}
	filter.CustomerID = customerID

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseSaleStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale status")
		}
		filter.Status = &status
	}

	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filter, err
	}
	filter.From = from

	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filter, err
	}
	filter.To = to

	return filter, nil
}
