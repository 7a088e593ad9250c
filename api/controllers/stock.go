package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	stocksvc "github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

type appendMovementRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	StoreID   *string `json:"store_id,omitempty" validate:"omitempty,uuid"`
	Type      string  `json:"type" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required"`
	Reason    *string `json:"reason,omitempty"`
	Reference *string `json:"reference,omitempty"`
}

func (r appendMovementRequest) toInput(orgID, userID uuid.UUID) (stocksvc.AppendInput, error) {
	movementType, err := enums.ParseMovementType(strings.TrimSpace(r.Type))
	if err != nil {
		return stocksvc.AppendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type")
	}

	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return stocksvc.AppendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}

	input := stocksvc.AppendInput{
		OrganizationID: orgID,
		ProductID:      productID,
		UserID:         userID,
		Type:           movementType,
		Quantity:       r.Quantity,
		Reason:         r.Reason,
		Reference:      r.Reference,
	}
	if r.StoreID != nil {
		storeID, err := uuid.Parse(*r.StoreID)
		if err != nil {
			return stocksvc.AppendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
		}
		input.StoreID = &storeID
	}
	return input, nil
}

// AppendMovement records a new ledger entry and adjusts the product's stock.
func AppendMovement(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		orgID, userID, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload appendMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(orgID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.Append(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, movement)
	}
}

// ReverseMovement undoes a ledger entry, restoring the product's stock.
func ReverseMovement(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		orgID, userID, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movementID, err := validators.PathUUID(chi.URLParam(r, "movementID"), "movementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.Reverse(r.Context(), stocksvc.ReverseInput{
			OrganizationID: orgID,
			MovementID:     movementID,
			UserID:         userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, movement)
	}
}

// StockSummary aggregates a product's non-reversed movements, optionally
// narrowed to a from/to window.
func StockSummary(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		orgID, _, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.PathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summarize(r.Context(), orgID, productID, stocksvc.SummaryFilter{From: from, To: to})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// ListMovements returns one cursor page of a product's ledger, newest first.
func ListMovements(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		orgID, _, err := identity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.PathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByProduct(r.Context(), orgID, productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
