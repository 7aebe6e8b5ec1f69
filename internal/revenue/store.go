package revenue

import (
	"context"

	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
)

// Store is the read-only record access the aggregation core depends on. Every
// call is scoped to one owner.
type Store interface {
	FetchEntries(ctx context.Context, ownerID string, conventionID *int64, r DateRange) ([]conventions.Entry, error)
	FetchCategories(ctx context.Context, ownerID string) ([]catalog.Category, error)
	FetchProductsWithVariations(ctx context.Context, ownerID string) ([]catalog.ProductWithVariations, error)
	FetchDiscounts(ctx context.Context, ownerID string, conventionID *int64) ([]catalog.Discount, []conventions.CustomDiscount, error)
	FetchCustomReports(ctx context.Context, ownerID string, conventionID *int64) ([]conventions.CustomReport, error)
	FetchConventions(ctx context.Context, ownerID string, r DateRange) ([]conventions.Convention, error)
	FetchConvention(ctx context.Context, ownerID string, id int64) (conventions.Convention, error)
}

type repoStore struct {
	catalog     catalog.Repository
	conventions conventions.Repository
}

// NewStore adapts the catalog and convention repositories to Store.
func NewStore(catalogRepo catalog.Repository, conventionRepo conventions.Repository) Store {
	return &repoStore{catalog: catalogRepo, conventions: conventionRepo}
}

func (s *repoStore) FetchEntries(ctx context.Context, ownerID string, conventionID *int64, r DateRange) ([]conventions.Entry, error) {
	return s.conventions.ListEntries(ctx, ownerID, conventionID, r.Start, r.End)
}

func (s *repoStore) FetchCategories(ctx context.Context, ownerID string) ([]catalog.Category, error) {
	return s.catalog.ListCategories(ctx, ownerID)
}

func (s *repoStore) FetchProductsWithVariations(ctx context.Context, ownerID string) ([]catalog.ProductWithVariations, error) {
	return s.catalog.ListProductsWithVariations(ctx, ownerID)
}

// FetchDiscounts returns the reusable discounts and the custom discounts of the
// convention, or of every convention when conventionID is nil.
func (s *repoStore) FetchDiscounts(ctx context.Context, ownerID string, conventionID *int64) ([]catalog.Discount, []conventions.CustomDiscount, error) {
	discounts, err := s.catalog.ListDiscounts(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	custom, err := s.conventions.ListCustomDiscounts(ctx, ownerID, conventionID)
	if err != nil {
		return nil, nil, err
	}
	return discounts, custom, nil
}

func (s *repoStore) FetchCustomReports(ctx context.Context, ownerID string, conventionID *int64) ([]conventions.CustomReport, error) {
	return s.conventions.ListCustomReports(ctx, ownerID, conventionID)
}

func (s *repoStore) FetchConventions(ctx context.Context, ownerID string, r DateRange) ([]conventions.Convention, error) {
	return s.conventions.ListConventionsOverlapping(ctx, ownerID, r.Start, r.End)
}

func (s *repoStore) FetchConvention(ctx context.Context, ownerID string, id int64) (conventions.Convention, error) {
	return s.conventions.GetConvention(ctx, ownerID, id)
}
