package catalog

import "github.com/shopspring/decimal"

// CreateCategoryRequest is the payload for creating a category.
type CreateCategoryRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

// UpdateCategoryRequest holds only the fields the form marked dirty.
type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	ParentID    *int64  `json:"parent_id" validate:"omitempty,gt=0"`
	ClearParent bool    `json:"clear_parent"`
}

// CreateVariationRequest is the payload for a single variation.
type CreateVariationRequest struct {
	Name  string          `json:"name" validate:"required,max=120"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
	SKU   *string         `json:"sku" validate:"omitempty,min=1,max=64"`
}

// CreateProductRequest is the payload for creating a product, optionally with
// its variations in one go.
type CreateProductRequest struct {
	Name       string                   `json:"name" validate:"required,max=200"`
	CategoryID *int64                   `json:"category_id" validate:"omitempty,gt=0"`
	Price      *decimal.Decimal         `json:"price" validate:"omitempty,gte=0"`
	Variations []CreateVariationRequest `json:"variations" validate:"dive"`
}

// UpdateProductRequest holds only the fields the form marked dirty.
type UpdateProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	CategoryID    *int64           `json:"category_id" validate:"omitempty,gt=0"`
	ClearCategory bool             `json:"clear_category"`
	Price         *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	ClearPrice    bool             `json:"clear_price"`
}

// UpdateVariationRequest holds only the fields the form marked dirty.
type UpdateVariationRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1,max=120"`
	Price    *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	SKU      *string          `json:"sku" validate:"omitempty,min=1,max=64"`
	ClearSKU bool             `json:"clear_sku"`
}

// CreateDiscountRequest is the payload for a reusable discount.
type CreateDiscountRequest struct {
	Name   string          `json:"name" validate:"required,max=120"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// UpdateDiscountRequest holds only the fields the form marked dirty.
type UpdateDiscountRequest struct {
	Name   *string          `json:"name" validate:"omitempty,min=1,max=120"`
	Amount *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
}

// BulkDeleteRequest deletes several records selected together.
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}
