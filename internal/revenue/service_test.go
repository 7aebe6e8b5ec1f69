package revenue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
)

type fakeStore struct {
	fixture
	owner       string
	conventions []conventions.Convention
	entries     []conventions.Entry
	entryCalls  atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fixture: newFixture(),
		owner:   "artist",
		conventions: []conventions.Convention{{
			ID: 1, Name: "Anime Expo", Location: "LA", Length: 3,
			StartDate: day("2024-07-04"), EndDate: day("2024-07-06"),
		}},
	}
}

func (f *fakeStore) FetchEntries(ctx context.Context, ownerID string, conventionID *int64, r DateRange) ([]conventions.Entry, error) {
	f.entryCalls.Add(1)
	if ownerID != f.owner {
		return nil, nil
	}
	var out []conventions.Entry
	for _, e := range f.entries {
		if conventionID != nil && e.ConventionID != *conventionID {
			continue
		}
		if r.Contains(e.Day) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchCategories(ctx context.Context, ownerID string) ([]catalog.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) FetchProductsWithVariations(ctx context.Context, ownerID string) ([]catalog.ProductWithVariations, error) {
	return f.products, nil
}

func (f *fakeStore) FetchDiscounts(ctx context.Context, ownerID string, conventionID *int64) ([]catalog.Discount, []conventions.CustomDiscount, error) {
	return f.discounts, f.customDiscounts, nil
}

func (f *fakeStore) FetchCustomReports(ctx context.Context, ownerID string, conventionID *int64) ([]conventions.CustomReport, error) {
	return f.customReports, nil
}

func (f *fakeStore) FetchConventions(ctx context.Context, ownerID string, r DateRange) ([]conventions.Convention, error) {
	var out []conventions.Convention
	for _, c := range f.conventions {
		if !c.StartDate.After(r.End) && !c.EndDate.Before(r.Start) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchConvention(ctx context.Context, ownerID string, id int64) (conventions.Convention, error) {
	for _, c := range f.conventions {
		if c.ID == id && ownerID == f.owner {
			return c, nil
		}
	}
	return conventions.Convention{}, conventions.ErrNotFound
}

type recordingObserver struct {
	cached, built atomic.Int32
}

func (o *recordingObserver) ObserveReport(kind string, cached bool, elapsed time.Duration) {
	if cached {
		o.cached.Add(1)
		return
	}
	o.built.Add(1)
}

func scenarioEntries() []conventions.Entry {
	return []conventions.Entry{
		entry(conventions.KindVariation, 11, "2024-07-04", 2, 0),
		entry(conventions.KindVariation, 12, "2024-07-04", 0, 1),
		entry(conventions.KindVariation, 11, "2024-07-06", 1, 0),
		entry(conventions.KindDiscount, 5, "2024-07-05", 1, 0),
		entry(conventions.KindProduct, 2, "2024-07-01", 4, 0),
	}
}

func TestComputePeriodStatsScenario(t *testing.T) {
	store := newFakeStore()
	store.entries = scenarioEntries()
	svc := NewService(store, nil, quietLogger(), Options{})

	stats, err := svc.ComputePeriodStats(context.Background(), "artist", nil, threeDayRange(t))
	require.NoError(t, err)

	assertMoney(t, "45", stats.TotalRevenueByType.Total)
	assertMoney(t, "30", stats.TotalRevenueByType.Cash)
	assertMoney(t, "15", stats.TotalRevenueByType.Card)
	assertMoney(t, "5", stats.TotalDiscountsByType.Total)
	assertMoney(t, "40", stats.NetSales)
	assertMoney(t, "12", stats.PreviousRevenueByType.Total)
	require.NotNil(t, stats.PercentChange)
	assert.InDelta(t, (40.0-12.0)/12.0, *stats.PercentChange, 1e-9)
	require.Len(t, stats.ConventionsInPeriod, 1)
	assert.Equal(t, "Anime Expo", stats.ConventionsInPeriod[0].Name)
	assert.False(t, stats.Empty)
}

func TestPreviousPeriodMatchesRecomputation(t *testing.T) {
	store := newFakeStore()
	store.entries = scenarioEntries()
	svc := NewService(store, nil, quietLogger(), Options{})
	ctx := context.Background()

	b := threeDayRange(t)
	a := b.Previous()

	statsB, err := svc.ComputePeriodStats(ctx, "artist", nil, b)
	require.NoError(t, err)
	statsA, err := svc.ComputePeriodStats(ctx, "artist", nil, a)
	require.NoError(t, err)

	assertMoney(t, statsA.TotalRevenueByType.Total.String(), statsB.PreviousRevenueByType.Total)
	assertMoney(t, statsA.TotalRevenueByType.Cash.String(), statsB.PreviousRevenueByType.Cash)
	assertMoney(t, statsA.TotalRevenueByType.Card.String(), statsB.PreviousRevenueByType.Card)
	assertMoney(t, statsA.TotalDiscountsByType.Total.String(), statsB.PreviousDiscountsByType.Total)
}

func TestComputePeriodStatsEmpty(t *testing.T) {
	svc := NewService(newFakeStore(), nil, quietLogger(), Options{})
	stats, err := svc.ComputePeriodStats(context.Background(), "artist", nil, threeDayRange(t))
	require.NoError(t, err)
	assert.True(t, stats.Empty)
	assert.True(t, stats.TotalRevenueByType.IsZero())
	assert.True(t, stats.NetSales.IsZero())
	assert.Nil(t, stats.PercentChange)
}

func TestComputePeriodStatsRejects(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, quietLogger(), Options{Earliest: day("2024-07-02")})
	ctx := context.Background()

	_, err := svc.ComputePeriodStats(ctx, "", nil, threeDayRange(t))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.ComputePeriodStats(ctx, "artist", nil, DateRange{Start: day("2024-07-06"), End: day("2024-07-04")})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.ComputePeriodStats(ctx, "artist", nil, threeDayRange(t))
	assert.ErrorIs(t, err, ErrInvalidRange)

	assert.Zero(t, store.entryCalls.Load())
}

func TestComputePeriodStatsUsesCache(t *testing.T) {
	store := newFakeStore()
	store.entries = scenarioEntries()
	cache, _ := newTestCache(t)
	obs := &recordingObserver{}
	svc := NewService(store, cache, quietLogger(), Options{Observer: obs})
	ctx := context.Background()
	conv := int64(1)

	first, err := svc.ComputePeriodStats(ctx, "artist", &conv, threeDayRange(t))
	require.NoError(t, err)
	second, err := svc.ComputePeriodStats(ctx, "artist", &conv, threeDayRange(t))
	require.NoError(t, err)

	assert.EqualValues(t, 2, store.entryCalls.Load())
	assert.EqualValues(t, 1, obs.cached.Load())
	assertMoney(t, first.NetSales.String(), second.NetSales)
	require.NotNil(t, second.PercentChange)

	require.NoError(t, cache.Bump(ctx))
	_, err = svc.ComputePeriodStats(ctx, "artist", &conv, threeDayRange(t))
	require.NoError(t, err)
	assert.EqualValues(t, 4, store.entryCalls.Load())
}

func TestComputeDailyReport(t *testing.T) {
	store := newFakeStore()
	store.entries = scenarioEntries()
	svc := NewService(store, nil, quietLogger(), Options{})
	ctx := context.Background()

	report, err := svc.ComputeDailyReport(ctx, "artist", 1, day("2024-07-04"))
	require.NoError(t, err)
	assertMoney(t, "35", report.Revenue.Total)
	assert.True(t, report.Discounted.IsZero())

	require.Len(t, report.Categories, 3)
	assert.Equal(t, "Cables", report.Categories[0].Category.Name)
	assert.Equal(t, []string{"Electronics", "Cables"}, report.Categories[0].Path)
	assert.Equal(t, 1, report.Categories[0].Depth)
	widget := report.Categories[0].Products[0]
	require.Len(t, widget.Lines, 2)
	assert.Equal(t, 2, widget.Lines[0].Cash)
	assert.Equal(t, 1, widget.Lines[1].Card)

	assert.Equal(t, "Uncategorized", report.Categories[1].Category.Name)
	assert.Zero(t, report.Categories[1].Products[0].Lines[0].Cash)
	assert.Equal(t, CustomCategoryName, report.Categories[2].Category.Name)
	assert.Len(t, report.Discounts, 2)

	dayTwo, err := svc.ComputeDailyReport(ctx, "artist", 1, day("2024-07-05"))
	require.NoError(t, err)
	assertMoney(t, "-5", dayTwo.Net)

	_, err = svc.ComputeDailyReport(ctx, "artist", 1, day("2024-07-09"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.ComputeDailyReport(ctx, "intruder", 1, day("2024-07-04"))
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
