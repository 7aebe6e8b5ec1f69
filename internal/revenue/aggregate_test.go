package revenue

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
	"github.com/boothkeeper/boothkeeper/internal/hierarchy"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(s string) time.Time {
	d, err := shared.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, money(want).Equal(got), "want %s, got %s", want, got)
}

func i64(v int64) *int64 { return &v }

// fixture is a small catalog: product 1 (Prints, category Cables under
// Electronics) with variations 11 at 10 and 12 at 15, flat product 2 at 3 with
// no category, discount 5 of 5, custom report 7 at 20, custom discount 8 of 2.
type fixture struct {
	categories      []catalog.Category
	products        []catalog.ProductWithVariations
	discounts       []catalog.Discount
	customReports   []conventions.CustomReport
	customDiscounts []conventions.CustomDiscount
}

func newFixture() fixture {
	return fixture{
		categories: []catalog.Category{
			{ID: 1, Name: "Electronics"},
			{ID: 2, Name: "Cables", ParentID: i64(1)},
		},
		products: []catalog.ProductWithVariations{
			{
				Product: catalog.Product{ID: 1, Name: "Widget", CategoryID: i64(2)},
				Variations: []catalog.Variation{
					{ID: 11, ProductID: 1, Name: "Small", Price: money("10")},
					{ID: 12, ProductID: 1, Name: "Large", Price: money("15")},
				},
			},
			{Product: catalog.Product{ID: 2, Name: "Sticker", Price: decimal.NewNullDecimal(money("3"))}},
		},
		discounts:       []catalog.Discount{{ID: 5, Name: "Bundle", Amount: money("5")}},
		customReports:   []conventions.CustomReport{{ID: 7, ConventionID: 1, Name: "Commission", Price: money("20")}},
		customDiscounts: []conventions.CustomDiscount{{ID: 8, ConventionID: 1, Amount: money("2")}},
	}
}

func (f fixture) index() *CatalogIndex {
	forest := hierarchy.BuildForest(f.categories, f.products, quietLogger())
	return NewCatalogIndex(forest, f.products, f.discounts, f.customReports, f.customDiscounts, quietLogger())
}

func entry(kind conventions.ItemKind, id int64, d string, cash, card int) conventions.Entry {
	return conventions.Entry{ConventionID: 1, Item: conventions.ItemRef{Kind: kind, ID: id}, Day: day(d), Cash: cash, Card: card}
}

func threeDayRange(t *testing.T) DateRange {
	t.Helper()
	r, err := NewDateRange(day("2024-07-04"), day("2024-07-06"))
	require.NoError(t, err)
	return r
}

func TestAggregateThreeDayScenario(t *testing.T) {
	idx := newFixture().index()
	entries := []conventions.Entry{
		entry(conventions.KindVariation, 11, "2024-07-04", 2, 0),
		entry(conventions.KindVariation, 12, "2024-07-04", 0, 1),
		entry(conventions.KindVariation, 11, "2024-07-06", 1, 0),
	}
	merged := idx.Merge(entries)
	require.Zero(t, merged.Unresolved)

	agg := Aggregate(merged.Rows, threeDayRange(t))

	assertMoney(t, "45", agg.Revenue.Total)
	assertMoney(t, "30", agg.Revenue.Cash)
	assertMoney(t, "15", agg.Revenue.Card)
	assert.Equal(t, 4, agg.Quantity)
	require.Len(t, agg.Days, 2)
	assert.Equal(t, day("2024-07-04"), agg.Days[0].Day)
	assertMoney(t, "35", agg.Days[0].Revenue.Total)

	require.Len(t, agg.Categories, 1)
	assert.Equal(t, "Cables", agg.Categories[0].Name)
	assertMoney(t, "45", agg.Categories[0].Revenue.Total)

	require.Len(t, agg.Products, 2)
	assert.Equal(t, "Widget (Small)", agg.Products[0].Name)
	assertMoney(t, "30", agg.Products[0].Revenue.Total)
}

func TestAggregateDiscountGivesNet(t *testing.T) {
	idx := newFixture().index()
	entries := []conventions.Entry{
		entry(conventions.KindVariation, 11, "2024-07-04", 2, 0),
		entry(conventions.KindVariation, 12, "2024-07-04", 0, 1),
		entry(conventions.KindVariation, 11, "2024-07-06", 1, 0),
		entry(conventions.KindDiscount, 5, "2024-07-05", 1, 0),
	}
	agg := Aggregate(idx.Merge(entries).Rows, threeDayRange(t))

	assertMoney(t, "45", agg.Revenue.Total)
	assertMoney(t, "5", agg.Discounts.Total)
	assertMoney(t, "5", agg.Discounts.Cash)
	assertMoney(t, "40", agg.Net())
	assert.Equal(t, 1, agg.DiscountUses)
	for _, c := range agg.Categories {
		assert.NotEqual(t, "Bundle", c.Name)
	}
}

func TestAggregateConservesCategoryRevenue(t *testing.T) {
	idx := newFixture().index()
	entries := []conventions.Entry{
		entry(conventions.KindVariation, 11, "2024-07-04", 3, 2),
		entry(conventions.KindProduct, 2, "2024-07-04", 7, 1),
		entry(conventions.KindCustom, 7, "2024-07-05", 0, 2),
		entry(conventions.KindCustomDiscount, 8, "2024-07-05", 1, 1),
		entry(conventions.KindVariation, 12, "2024-07-06", 1, 4),
	}
	agg := Aggregate(idx.Merge(entries).Rows, threeDayRange(t))

	sum := decimal.Zero
	for _, c := range agg.Categories {
		sum = sum.Add(c.Revenue.Total)
	}
	assertMoney(t, agg.Revenue.Total.String(), sum)
	assertMoney(t, agg.Revenue.Total.String(), agg.Revenue.Cash.Add(agg.Revenue.Card))

	names := map[string]bool{}
	for _, c := range agg.Categories {
		names[c.Name] = true
	}
	assert.True(t, names[hierarchy.UncategorizedName])
	assert.True(t, names[CustomCategoryName])
	assertMoney(t, "4", agg.Discounts.Total)
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil, threeDayRange(t))
	assert.True(t, agg.Empty())
	assert.True(t, agg.Revenue.IsZero())
	assert.True(t, agg.Discounts.IsZero())
	assert.Empty(t, agg.Categories)
	assert.Empty(t, agg.Days)
}

func TestAggregateIgnoresDaysOutsideRange(t *testing.T) {
	idx := newFixture().index()
	entries := []conventions.Entry{
		entry(conventions.KindProduct, 2, "2024-07-03", 5, 0),
		entry(conventions.KindProduct, 2, "2024-07-05", 1, 0),
	}
	agg := Aggregate(idx.Merge(entries).Rows, threeDayRange(t))
	assertMoney(t, "3", agg.Revenue.Total)
}

func TestRankingTieBreaks(t *testing.T) {
	idx := newFixture().index()
	// Sticker: 5 x 3 = 15 over 5 units; Large: 1 x 15 = 15 over 1 unit.
	entries := []conventions.Entry{
		entry(conventions.KindVariation, 12, "2024-07-04", 1, 0),
		entry(conventions.KindProduct, 2, "2024-07-04", 5, 0),
	}
	agg := Aggregate(idx.Merge(entries).Rows, threeDayRange(t))
	require.Len(t, agg.Products, 2)
	assert.Equal(t, "Sticker", agg.Products[0].Name)
	assert.Equal(t, "Widget (Large)", agg.Products[1].Name)
}

func TestMergeSumsSameDayAcrossConventions(t *testing.T) {
	idx := newFixture().index()
	a := entry(conventions.KindProduct, 2, "2024-07-04", 1, 0)
	b := entry(conventions.KindProduct, 2, "2024-07-04", 0, 2)
	b.ConventionID = 2
	missing := entry(conventions.KindProduct, 99, "2024-07-04", 1, 0)

	res := idx.Merge([]conventions.Entry{a, missing, b})
	assert.Equal(t, 1, res.Unresolved)
	require.Len(t, res.Rows, 1)
	require.Len(t, res.Rows[0].Days, 1)
	assert.Equal(t, 1, res.Rows[0].Days[0].Cash)
	assert.Equal(t, 2, res.Rows[0].Days[0].Card)
}

func TestCatalogIndexAttribution(t *testing.T) {
	idx := newFixture().index()

	item, ok := idx.Resolve(conventions.ItemRef{Kind: conventions.KindCustom, ID: 7})
	require.True(t, ok)
	require.NotNil(t, item.Category)
	assert.Equal(t, CustomCategoryID, item.Category.ID)

	item, ok = idx.Resolve(conventions.ItemRef{Kind: conventions.KindCustomDiscount, ID: 8})
	require.True(t, ok)
	assert.Nil(t, item.Category)
	assert.Equal(t, "Discount 2.00", item.Name)

	item, ok = idx.Resolve(conventions.ItemRef{Kind: conventions.KindProduct, ID: 2})
	require.True(t, ok)
	assert.Equal(t, hierarchy.UncategorizedID, item.Category.ID)
}

func TestPercentChange(t *testing.T) {
	_, ok := PercentChange(money("40"), decimal.Zero)
	assert.False(t, ok)

	pct, ok := PercentChange(money("60"), money("40"))
	require.True(t, ok)
	assert.InDelta(t, 0.5, pct, 1e-9)

	pct, ok = PercentChange(money("30"), money("40"))
	require.True(t, ok)
	assert.InDelta(t, -0.25, pct, 1e-9)
}

func TestCompareOmitsPercentChangeOnZeroBaseline(t *testing.T) {
	idx := newFixture().index()
	r := threeDayRange(t)
	current := Aggregate(idx.Merge([]conventions.Entry{
		entry(conventions.KindVariation, 11, "2024-07-04", 2, 0),
		entry(conventions.KindVariation, 12, "2024-07-04", 0, 1),
		entry(conventions.KindVariation, 11, "2024-07-06", 1, 0),
		entry(conventions.KindDiscount, 5, "2024-07-05", 1, 0),
	}).Rows, r)
	previous := Aggregate(nil, r.Previous())

	stats := Compare(current, previous)
	assertMoney(t, "40", stats.NetSales)
	assert.True(t, stats.PreviousNetSales.IsZero())
	assert.Nil(t, stats.PercentChange)
	assert.False(t, stats.Empty)
}
