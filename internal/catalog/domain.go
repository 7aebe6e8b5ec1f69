package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when a record does not exist for the owner.
	ErrNotFound = fmt.Errorf("catalog: %w", httpx.ErrNotFound)
	// ErrInvalid wraps input validation failures.
	ErrInvalid = fmt.Errorf("catalog: %w", httpx.ErrValidation)
	// ErrDuplicateSKU is returned when a SKU is already taken.
	ErrDuplicateSKU = fmt.Errorf("catalog: sku already in use: %w", httpx.ErrDuplicate)
	// ErrPriceConflict is returned when a product with variations would carry its own price.
	ErrPriceConflict = fmt.Errorf("catalog: product with variations cannot have a flat price: %w", httpx.ErrConflict)
	// ErrCategoryCycle is returned when a parent assignment would create a loop.
	ErrCategoryCycle = fmt.Errorf("catalog: category parent would create a cycle: %w", httpx.ErrValidation)
)

// Category groups products. ParentID points into the same owner's categories.
type Category struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"-"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a sellable catalog item. Price is only set when the product has
// no variations.
type Product struct {
	ID         int64               `json:"id"`
	OwnerID    string              `json:"-"`
	Name       string              `json:"name"`
	CategoryID *int64              `json:"category_id,omitempty"`
	Price      decimal.NullDecimal `json:"price"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Variation is a named, individually priced option of a product.
type Variation struct {
	ID        int64           `json:"id"`
	OwnerID   string          `json:"-"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	SKU       *string         `json:"sku,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductWithVariations bundles a product with its variation list.
type ProductWithVariations struct {
	Product
	Variations []Variation `json:"variations"`
}

// HasVariations reports whether pricing is per variation.
func (p ProductWithVariations) HasVariations() bool {
	return len(p.Variations) > 0
}

// Discount is a reusable fixed-amount discount.
type Discount struct {
	ID        int64           `json:"id"`
	OwnerID   string          `json:"-"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CategoryPatch carries the dirty fields of a category edit.
type CategoryPatch struct {
	Name        *string
	ParentID    *int64
	ClearParent bool
}

// ProductPatch carries the dirty fields of a product edit.
type ProductPatch struct {
	Name          *string
	CategoryID    *int64
	ClearCategory bool
	Price         *decimal.Decimal
	ClearPrice    bool
}

// VariationPatch carries the dirty fields of a variation edit.
type VariationPatch struct {
	Name     *string
	Price    *decimal.Decimal
	SKU      *string
	ClearSKU bool
}

// DiscountPatch carries the dirty fields of a discount edit.
type DiscountPatch struct {
	Name   *string
	Amount *decimal.Decimal
}

// Empty reports whether the patch changes nothing.
func (p CategoryPatch) Empty() bool {
	return p.Name == nil && p.ParentID == nil && !p.ClearParent
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.CategoryID == nil && !p.ClearCategory && p.Price == nil && !p.ClearPrice
}

// Empty reports whether the patch changes nothing.
func (p VariationPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.SKU == nil && !p.ClearSKU
}

// Empty reports whether the patch changes nothing.
func (p DiscountPatch) Empty() bool {
	return p.Name == nil && p.Amount == nil
}
