package products

import (
	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
)

// CreateProductInput carries the fields accepted when creating a product.
// Stock is deliberately absent; it only moves through the ledger.
type CreateProductInput struct {
	OrganizationID uuid.UUID
	StoreID        *uuid.UUID
	SKU            string
	Name           string
	Description    *string
	PriceCents     int
	CostCents      *int
	MinStock       int
}

// UpdateProductInput holds optional field updates. Nil means unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	PriceCents  *int
	CostCents   *int
	MinStock    *int
	IsActive    *bool
}

// ListFilter narrows a product listing.
type ListFilter struct {
	StoreID      *uuid.UUID
	Search       string
	ActiveOnly   bool
	LowStockOnly bool
}

// ProductPage is one cursor page of products.
type ProductPage struct {
	Products   []models.Product `json:"products"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}
