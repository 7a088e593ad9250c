package stock

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// AppendInput carries the data required to record a new ledger entry.
type AppendInput struct {
	OrganizationID uuid.UUID
	ProductID      uuid.UUID
	StoreID        *uuid.UUID
	UserID         uuid.UUID
	Type           enums.MovementType
	Quantity       int
	Reason         *string
	Reference      *string
}

// ReverseInput identifies the movement being undone and who is undoing it.
type ReverseInput struct {
	OrganizationID uuid.UUID
	MovementID     uuid.UUID
	UserID         uuid.UUID
}

// SummaryFilter narrows a summary to an optional reporting window.
type SummaryFilter struct {
	From *time.Time
	To   *time.Time
}

// Summary aggregates the non-reversed movements for one product. CurrentStock
// is the denormalized counter on the product row; Drift is set when an
// unbounded summary disagrees with it.
type Summary struct {
	ProductID       uuid.UUID `json:"product_id"`
	TotalIn         int       `json:"total_in"`
	TotalOut        int       `json:"total_out"`
	TotalAdjustment int       `json:"total_adjustment"`
	ComputedStock   int       `json:"computed_stock"`
	MovementCount   int       `json:"movement_count"`
	CurrentStock    int       `json:"current_stock"`
	Drift           bool      `json:"drift"`
}

// MovementPage is one cursor page of ledger entries, newest first.
type MovementPage struct {
	Movements  []models.StockMovement `json:"movements"`
	NextCursor *string                `json:"next_cursor,omitempty"`
}
