package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// ErrUnauthorized is returned when a call carries no owner scope.
var ErrUnauthorized = fmt.Errorf("catalog: owner scope required: %w", httpx.ErrUnauthorized)

// Invalidator drops cached reports after catalog writes, since report figures
// use current prices.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service implements catalog CRUD with validation.
type Service struct {
	repo        Repository
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService constructs a Service. invalidator may be nil.
func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

// Categories lists every category of the owner.
func (s *Service) Categories(ctx context.Context, ownerID string) ([]Category, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx, ownerID)
}

// CreateCategory creates a category, optionally under a parent.
func (s *Service) CreateCategory(ctx context.Context, ownerID string, req CreateCategoryRequest) (Category, error) {
	if err := requireOwner(ownerID); err != nil {
		return Category{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Category{}, err
	}
	if req.ParentID != nil {
		if _, err := s.repo.GetCategory(ctx, ownerID, *req.ParentID); err != nil {
			return Category{}, fmt.Errorf("parent category: %w", err)
		}
	}
	created, err := s.repo.CreateCategory(ctx, Category{OwnerID: ownerID, Name: strings.TrimSpace(req.Name), ParentID: req.ParentID})
	if err != nil {
		return Category{}, err
	}
	s.bump(ctx)
	return created, nil
}

// UpdateCategory applies the dirty fields. A new parent is rejected when it is
// the category itself or one of its descendants.
func (s *Service) UpdateCategory(ctx context.Context, ownerID string, id int64, req UpdateCategoryRequest) (Category, error) {
	if err := requireOwner(ownerID); err != nil {
		return Category{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Category{}, err
	}
	patch := CategoryPatch{Name: trimmed(req.Name), ParentID: req.ParentID, ClearParent: req.ClearParent}
	if patch.Empty() {
		return s.repo.GetCategory(ctx, ownerID, id)
	}
	if patch.ParentID != nil && !patch.ClearParent {
		all, err := s.repo.ListCategories(ctx, ownerID)
		if err != nil {
			return Category{}, err
		}
		if err := checkParent(all, id, *patch.ParentID); err != nil {
			return Category{}, err
		}
	}
	updated, err := s.repo.UpdateCategory(ctx, ownerID, id, patch)
	if err != nil {
		return Category{}, err
	}
	s.bump(ctx)
	return updated, nil
}

// checkParent walks up from parentID and fails if it reaches id.
func checkParent(all []Category, id, parentID int64) error {
	parents := make(map[int64]*int64, len(all))
	for _, c := range all {
		parents[c.ID] = c.ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return fmt.Errorf("parent category: %w", ErrNotFound)
	}
	seen := make(map[int64]bool)
	for cur := &parentID; cur != nil; cur = parents[*cur] {
		if *cur == id {
			return ErrCategoryCycle
		}
		if seen[*cur] {
			return ErrCategoryCycle
		}
		seen[*cur] = true
	}
	return nil
}

// DeleteCategories bulk deletes categories. Children cascade and products
// fall back to uncategorized.
func (s *Service) DeleteCategories(ctx context.Context, ownerID string, req BulkDeleteRequest) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteCategories(ctx, ownerID, req.IDs)
	if err != nil {
		return 0, err
	}
	s.bump(ctx)
	return n, nil
}

// Products returns a page of products.
func (s *Service) Products(ctx context.Context, ownerID string, params shared.ListParams) ([]Product, shared.Pagination, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.ListProducts(ctx, ownerID, params)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(params.Page, params.PerPage, total), nil
}

// Product returns one product with its variations.
func (s *Service) Product(ctx context.Context, ownerID string, id int64) (ProductWithVariations, error) {
	if err := requireOwner(ownerID); err != nil {
		return ProductWithVariations{}, err
	}
	return s.repo.GetProduct(ctx, ownerID, id)
}

// CreateProduct creates a product and its variations. Exactly one of a flat
// price or a non-empty variation list must be supplied.
func (s *Service) CreateProduct(ctx context.Context, ownerID string, req CreateProductRequest) (ProductWithVariations, error) {
	if err := requireOwner(ownerID); err != nil {
		return ProductWithVariations{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return ProductWithVariations{}, err
	}
	if req.Price != nil && len(req.Variations) > 0 {
		return ProductWithVariations{}, ErrPriceConflict
	}
	if req.Price == nil && len(req.Variations) == 0 {
		return ProductWithVariations{}, fmt.Errorf("%w: price or variations required", ErrInvalid)
	}
	if req.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, ownerID, *req.CategoryID); err != nil {
			return ProductWithVariations{}, fmt.Errorf("category: %w", err)
		}
	}
	product := Product{OwnerID: ownerID, Name: strings.TrimSpace(req.Name), CategoryID: req.CategoryID}
	if req.Price != nil {
		product.Price = decimal.NullDecimal{Decimal: *req.Price, Valid: true}
	}
	variations := make([]Variation, 0, len(req.Variations))
	for _, v := range req.Variations {
		variations = append(variations, Variation{OwnerID: ownerID, Name: strings.TrimSpace(v.Name), Price: v.Price, SKU: v.SKU})
	}
	created, err := s.repo.CreateProduct(ctx, product, variations)
	if err != nil {
		return ProductWithVariations{}, err
	}
	s.bump(ctx)
	return created, nil
}

// UpdateProduct applies dirty fields. Setting a flat price on a product that
// has variations is rejected.
func (s *Service) UpdateProduct(ctx context.Context, ownerID string, id int64, req UpdateProductRequest) (Product, error) {
	if err := requireOwner(ownerID); err != nil {
		return Product{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Product{}, err
	}
	patch := ProductPatch{
		Name:          trimmed(req.Name),
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		Price:         req.Price,
		ClearPrice:    req.ClearPrice,
	}
	current, err := s.repo.GetProduct(ctx, ownerID, id)
	if err != nil {
		return Product{}, err
	}
	if patch.Empty() {
		return current.Product, nil
	}
	if patch.Price != nil && current.HasVariations() {
		return Product{}, ErrPriceConflict
	}
	if patch.ClearPrice && !current.HasVariations() {
		return Product{}, fmt.Errorf("%w: product without variations needs a price", ErrInvalid)
	}
	if patch.CategoryID != nil && !patch.ClearCategory {
		if _, err := s.repo.GetCategory(ctx, ownerID, *patch.CategoryID); err != nil {
			return Product{}, fmt.Errorf("category: %w", err)
		}
	}
	updated, err := s.repo.UpdateProduct(ctx, ownerID, id, patch)
	if err != nil {
		return Product{}, err
	}
	s.bump(ctx)
	return updated, nil
}

// DeleteProducts bulk deletes products with their variations and entries.
func (s *Service) DeleteProducts(ctx context.Context, ownerID string, req BulkDeleteRequest) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteProducts(ctx, ownerID, req.IDs)
	if err != nil {
		return 0, err
	}
	s.bump(ctx)
	return n, nil
}

// AddVariation adds a variation to a product. The product's flat price is
// cleared the first time it gains a variation.
func (s *Service) AddVariation(ctx context.Context, ownerID string, productID int64, req CreateVariationRequest) (Variation, error) {
	if err := requireOwner(ownerID); err != nil {
		return Variation{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Variation{}, err
	}
	product, err := s.repo.GetProduct(ctx, ownerID, productID)
	if err != nil {
		return Variation{}, err
	}
	created, err := s.repo.CreateVariation(ctx, Variation{
		OwnerID:   ownerID,
		ProductID: productID,
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		SKU:       req.SKU,
	})
	if err != nil {
		return Variation{}, err
	}
	if product.Price.Valid {
		if _, err := s.repo.UpdateProduct(ctx, ownerID, productID, ProductPatch{ClearPrice: true}); err != nil {
			return Variation{}, err
		}
	}
	s.bump(ctx)
	return created, nil
}

// UpdateVariation applies dirty fields.
func (s *Service) UpdateVariation(ctx context.Context, ownerID string, id int64, req UpdateVariationRequest) (Variation, error) {
	if err := requireOwner(ownerID); err != nil {
		return Variation{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Variation{}, err
	}
	patch := VariationPatch{Name: trimmed(req.Name), Price: req.Price, SKU: req.SKU, ClearSKU: req.ClearSKU}
	if patch.Empty() {
		return s.repo.GetVariation(ctx, ownerID, id)
	}
	updated, err := s.repo.UpdateVariation(ctx, ownerID, id, patch)
	if err != nil {
		return Variation{}, err
	}
	s.bump(ctx)
	return updated, nil
}

// DeleteVariations bulk deletes variations.
func (s *Service) DeleteVariations(ctx context.Context, ownerID string, req BulkDeleteRequest) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteVariations(ctx, ownerID, req.IDs)
	if err != nil {
		return 0, err
	}
	s.bump(ctx)
	return n, nil
}

// Discounts lists reusable discounts.
func (s *Service) Discounts(ctx context.Context, ownerID string) ([]Discount, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListDiscounts(ctx, ownerID)
}

// CreateDiscount creates a reusable discount.
func (s *Service) CreateDiscount(ctx context.Context, ownerID string, req CreateDiscountRequest) (Discount, error) {
	if err := requireOwner(ownerID); err != nil {
		return Discount{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Discount{}, err
	}
	created, err := s.repo.CreateDiscount(ctx, Discount{OwnerID: ownerID, Name: strings.TrimSpace(req.Name), Amount: req.Amount})
	if err != nil {
		return Discount{}, err
	}
	s.bump(ctx)
	return created, nil
}

// UpdateDiscount applies dirty fields.
func (s *Service) UpdateDiscount(ctx context.Context, ownerID string, id int64, req UpdateDiscountRequest) (Discount, error) {
	if err := requireOwner(ownerID); err != nil {
		return Discount{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Discount{}, err
	}
	patch := DiscountPatch{Name: trimmed(req.Name), Amount: req.Amount}
	if patch.Empty() {
		return Discount{}, fmt.Errorf("%w: nothing to update", ErrInvalid)
	}
	updated, err := s.repo.UpdateDiscount(ctx, ownerID, id, patch)
	if err != nil {
		return Discount{}, err
	}
	s.bump(ctx)
	return updated, nil
}

// DeleteDiscounts bulk deletes discounts.
func (s *Service) DeleteDiscounts(ctx context.Context, ownerID string, req BulkDeleteRequest) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteDiscounts(ctx, ownerID, req.IDs)
	if err != nil {
		return 0, err
	}
	s.bump(ctx)
	return n, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
