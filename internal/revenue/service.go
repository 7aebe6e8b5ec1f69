package revenue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
	"github.com/boothkeeper/boothkeeper/internal/hierarchy"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// Observer receives report build timings. It may be nil.
type Observer interface {
	ObserveReport(kind string, cached bool, elapsed time.Duration)
}

// Options tunes a Service.
type Options struct {
	// Earliest is the first day the store can hold; comparison windows
	// reaching before it are rejected.
	Earliest time.Time
	Observer Observer
}

// Service computes period statistics and daily reports for an owner.
type Service struct {
	store    Store
	cache    *Cache
	logger   *slog.Logger
	earliest time.Time
	observer Observer
	group    singleflight.Group
}

// NewService wires a Store with the report cache. cache may be nil.
func NewService(store Store, cache *Cache, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		cache:    cache,
		logger:   logger,
		earliest: opts.Earliest,
		observer: opts.Observer,
	}
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) observe(kind string, cached bool, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveReport(kind, cached, time.Since(start))
	}
}

// ComputePeriodStats aggregates r and the preceding window of equal length.
// conventionID narrows the scope to one convention; nil covers them all.
func (s *Service) ComputePeriodStats(ctx context.Context, ownerID string, conventionID *int64, r DateRange) (PeriodStats, error) {
	if err := requireOwner(ownerID); err != nil {
		return PeriodStats{}, err
	}
	if r.Start.After(r.End) {
		return PeriodStats{}, fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	if prev := r.Previous(); !s.earliest.IsZero() && prev.Start.Before(s.earliest) {
		return PeriodStats{}, fmt.Errorf("%w: comparison window %s starts before %s", ErrInvalidRange, prev, shared.FormatDay(s.earliest))
	}

	start := time.Now()
	parts := statsKey(ownerID, conventionID, r)
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		stats, err := s.computeStats(ctx, ownerID, conventionID, r)
		s.observe("stats", false, start)
		return stats, err
	}

	ch := s.group.DoChan(key, func() (any, error) {
		var stats PeriodStats
		hit, err := s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
			return s.computeStats(ctx, ownerID, conventionID, r)
		})
		s.observe("stats", hit, start)
		return stats, err
	})
	select {
	case <-ctx.Done():
		return PeriodStats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return PeriodStats{}, res.Err
		}
		return res.Val.(PeriodStats), nil
	}
}

type periodInputs struct {
	index       *CatalogIndex
	current     []conventions.Entry
	previous    []conventions.Entry
	conventions []conventions.Convention
}

func (s *Service) computeStats(ctx context.Context, ownerID string, conventionID *int64, r DateRange) (PeriodStats, error) {
	prev := r.Previous()
	var in periodInputs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx, _, err := s.loadCatalog(gctx, ownerID, conventionID)
		in.index = idx
		return err
	})
	g.Go(func() error {
		entries, err := s.store.FetchEntries(gctx, ownerID, conventionID, r)
		in.current = entries
		return err
	})
	g.Go(func() error {
		entries, err := s.store.FetchEntries(gctx, ownerID, conventionID, prev)
		in.previous = entries
		return err
	})
	g.Go(func() error {
		convs, err := s.store.FetchConventions(gctx, ownerID, r)
		in.conventions = convs
		return err
	})
	if err := g.Wait(); err != nil {
		return PeriodStats{}, err
	}

	var current, previous Aggregation
	var unresolved int
	var fold errgroup.Group
	fold.Go(func() error {
		merged := in.index.Merge(in.current)
		unresolved = merged.Unresolved
		current = Aggregate(merged.Rows, r)
		return nil
	})
	fold.Go(func() error {
		previous = Aggregate(in.index.Merge(in.previous).Rows, prev)
		return nil
	})
	_ = fold.Wait()

	stats := Compare(current, previous)
	stats.Unresolved = unresolved
	stats.ConventionsInPeriod = summarize(in.conventions, conventionID)
	return stats, nil
}

func summarize(convs []conventions.Convention, conventionID *int64) []ConventionSummary {
	out := make([]ConventionSummary, 0, len(convs))
	for _, c := range convs {
		if conventionID != nil && c.ID != *conventionID {
			continue
		}
		out = append(out, ConventionSummary{
			ID:       c.ID,
			Name:     c.Name,
			Location: c.Location,
			Range:    DateRange{Start: c.StartDate, End: c.EndDate},
		})
	}
	return out
}

// loadCatalog fetches the owner's catalog and the custom items in scope and
// indexes them.
func (s *Service) loadCatalog(ctx context.Context, ownerID string, conventionID *int64) (*CatalogIndex, *hierarchy.Forest, error) {
	var (
		categories      []catalog.Category
		products        []catalog.ProductWithVariations
		discounts       []catalog.Discount
		customDiscounts []conventions.CustomDiscount
		customReports   []conventions.CustomReport
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = s.store.FetchCategories(ctx, ownerID)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.store.FetchProductsWithVariations(ctx, ownerID)
		return err
	})
	g.Go(func() (err error) {
		discounts, customDiscounts, err = s.store.FetchDiscounts(ctx, ownerID, conventionID)
		return err
	})
	g.Go(func() (err error) {
		customReports, err = s.store.FetchCustomReports(ctx, ownerID, conventionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	forest := hierarchy.BuildForest(categories, products, s.logger)
	return NewCatalogIndex(forest, products, discounts, customReports, customDiscounts, s.logger), forest, nil
}

// CategoryForest returns the owner's nested category view.
func (s *Service) CategoryForest(ctx context.Context, ownerID string) (*hierarchy.Forest, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var (
		categories []catalog.Category
		products   []catalog.ProductWithVariations
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = s.store.FetchCategories(gctx, ownerID)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.store.FetchProductsWithVariations(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hierarchy.BuildForest(categories, products, s.logger), nil
}

// DailyLine is one line of the daily sales form.
type DailyLine struct {
	Item    LineItem `json:"item"`
	Cash    int      `json:"cash"`
	Card    int      `json:"card"`
	Revenue ByType   `json:"revenue"`
}

// ProductLines groups the lines of one product: one per variation, or a
// single line for a flat priced product.
type ProductLines struct {
	ProductID int64       `json:"product_id"`
	Name      string      `json:"name"`
	Lines     []DailyLine `json:"lines"`
}

// CategoryProducts lists the products directly under one category.
type CategoryProducts struct {
	Category CategoryRef    `json:"category"`
	Path     []string       `json:"path"`
	Depth    int            `json:"depth"`
	Products []ProductLines `json:"products"`
}

// DailyReport is the editable per-day table of one convention.
type DailyReport struct {
	Convention conventions.Convention `json:"convention"`
	Day        time.Time              `json:"day"`
	Categories []CategoryProducts     `json:"categories"`
	Discounts  []DailyLine            `json:"discounts"`
	Revenue    ByType                 `json:"revenue"`
	Discounted ByType                 `json:"discounted"`
	Net        decimal.Decimal        `json:"net"`
}

// ComputeDailyReport lists every line item with its counts on day, zero when
// nothing was recorded. The day must fall within the convention.
func (s *Service) ComputeDailyReport(ctx context.Context, ownerID string, conventionID int64, day time.Time) (DailyReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return DailyReport{}, err
	}
	start := time.Now()
	defer s.observe("daily", false, start)

	conv, err := s.store.FetchConvention(ctx, ownerID, conventionID)
	if err != nil {
		return DailyReport{}, err
	}
	day = shared.DayOf(day, time.UTC)
	if !conv.Contains(day) {
		return DailyReport{}, fmt.Errorf("%w: %s is outside %s..%s", ErrInvalidRange,
			shared.FormatDay(day), shared.FormatDay(conv.StartDate), shared.FormatDay(conv.EndDate))
	}

	var (
		idx     *CatalogIndex
		forest  *hierarchy.Forest
		entries []conventions.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		idx, forest, err = s.loadCatalog(gctx, ownerID, &conventionID)
		return err
	})
	g.Go(func() (err error) {
		entries, err = s.store.FetchEntries(gctx, ownerID, &conventionID, DateRange{Start: day, End: day})
		return err
	})
	if err := g.Wait(); err != nil {
		return DailyReport{}, err
	}

	counts := make(map[conventions.ItemRef]DayCount)
	for _, row := range idx.Merge(entries).Rows {
		for _, d := range row.Days {
			counts[row.Item.Ref] = d
		}
	}
	report := DailyReport{Convention: conv, Day: day}
	line := func(item LineItem) DailyLine {
		c := counts[item.Ref]
		l := DailyLine{Item: item, Cash: c.Cash, Card: c.Card, Revenue: priced(item.UnitPrice, c.Cash, c.Card)}
		if item.IsDiscount() {
			report.Discounted = report.Discounted.Plus(l.Revenue)
		} else {
			report.Revenue = report.Revenue.Plus(l.Revenue)
		}
		return l
	}

	forest.Walk(func(node *hierarchy.CategoryNode, depth int) bool {
		if len(node.Products) == 0 {
			return true
		}
		group := CategoryProducts{
			Category: CategoryRef{ID: node.ID, Name: node.Name},
			Path:     forest.Path(node.ID),
			Depth:    depth,
		}
		for _, p := range node.Products {
			pl := ProductLines{ProductID: p.ID, Name: p.Name}
			if p.HasVariations() {
				for _, v := range p.Variations {
					if item, ok := idx.Resolve(conventions.ItemRef{Kind: conventions.KindVariation, ID: v.ID}); ok {
						pl.Lines = append(pl.Lines, line(item))
					}
				}
			} else if item, ok := idx.Resolve(conventions.ItemRef{Kind: conventions.KindProduct, ID: p.ID}); ok {
				pl.Lines = append(pl.Lines, line(item))
			}
			group.Products = append(group.Products, pl)
		}
		report.Categories = append(report.Categories, group)
		return true
	})

	custom := CategoryProducts{
		Category: CategoryRef{ID: CustomCategoryID, Name: CustomCategoryName},
		Path:     []string{CustomCategoryName},
	}
	for _, item := range idx.Items() {
		switch item.Ref.Kind {
		case conventions.KindCustom:
			custom.Products = append(custom.Products, ProductLines{Name: item.Name, Lines: []DailyLine{line(item)}})
		case conventions.KindDiscount, conventions.KindCustomDiscount:
			report.Discounts = append(report.Discounts, line(item))
		}
	}
	if len(custom.Products) > 0 {
		report.Categories = append(report.Categories, custom)
	}
	report.Net = report.Revenue.Total.Sub(report.Discounted.Total)
	return report, nil
}
