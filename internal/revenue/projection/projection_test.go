package projection

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothkeeper/boothkeeper/internal/revenue"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

func day(s string) time.Time {
	d, err := shared.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func split(cash, card int64) revenue.ByType {
	return revenue.ByType{}.Add(decimal.NewFromInt(cash), decimal.NewFromInt(card))
}

func sampleStats(t *testing.T) revenue.PeriodStats {
	t.Helper()
	r, err := revenue.NewDateRange(day("2024-07-04"), day("2024-07-06"))
	require.NoError(t, err)
	pct := 0.25
	return revenue.PeriodStats{
		Range:                r,
		PreviousRange:        r.Previous(),
		TotalRevenueByType:   split(30, 15),
		TotalDiscountsByType: split(5, 0),
		NetSales:             decimal.NewFromInt(40),
		PreviousNetSales:     decimal.NewFromInt(32),
		PercentChange:        &pct,
		CategoryRevenue: []revenue.Rollup{
			{Key: "category:2", ID: 2, Name: "Cables", Quantity: 4, Revenue: split(30, 15)},
		},
		ProductRevenue: []revenue.Rollup{
			{Key: "variation:11", ID: 11, Name: "Widget (Small)", Quantity: 3, Revenue: split(30, 0)},
			{Key: "variation:12", ID: 12, Name: "Widget (Large)", Quantity: 1, Revenue: split(0, 15)},
		},
		Daily: []revenue.DayBreakdown{
			{Day: day("2024-07-04"), Revenue: split(20, 15), Quantity: 3, Categories: []revenue.Rollup{
				{ID: 2, Name: "Cables", Quantity: 3, Revenue: split(20, 15)},
			}},
			{Day: day("2024-07-05"), Discounts: split(5, 0)},
			{Day: day("2024-07-06"), Revenue: split(10, 0), Quantity: 1, Categories: []revenue.Rollup{
				{ID: 2, Name: "Cables", Quantity: 1, Revenue: split(10, 0)},
			}},
		},
	}
}

func TestDailyTableZeroFills(t *testing.T) {
	stats := sampleStats(t)
	stats.Daily = []revenue.DayBreakdown{stats.Daily[0]}
	table := DailyTable(stats.Daily, stats.Range)

	require.Len(t, table.Columns, 1)
	require.Len(t, table.Rows, 3)
	assert.True(t, table.Rows[0].HasEntries)
	assert.True(t, decimal.NewFromInt(35).Equal(table.Rows[0].Cells[0].Revenue))
	assert.False(t, table.Rows[1].HasEntries)
	require.Len(t, table.Rows[1].Cells, 1)
	assert.True(t, table.Rows[1].Cells[0].Revenue.IsZero())
	assert.Equal(t, day("2024-07-06"), table.Rows[2].Day)
}

func TestTimeSeriesCoversRange(t *testing.T) {
	stats := sampleStats(t)
	points := TimeSeries(stats.Daily, stats.Range)
	require.Len(t, points, 3)
	assert.True(t, decimal.NewFromInt(35).Equal(points[0].Total))
	assert.True(t, points[1].Total.IsZero())
	assert.True(t, decimal.NewFromInt(10).Equal(points[2].Cash))
}

func TestTopN(t *testing.T) {
	stats := sampleStats(t)
	top := TopN(stats.ProductRevenue, 1)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "Widget (Small)", top[0].Name)

	assert.Len(t, TopN(stats.ProductRevenue, 0), 2)
	assert.Len(t, TopN(stats.ProductRevenue, 10), 2)
	assert.Empty(t, TopN(nil, 5))
}

func TestPaymentSplitUsesGross(t *testing.T) {
	s := PaymentSplit(split(30, 15))
	assert.False(t, s.Empty)
	assert.InDelta(t, 66.67, s.CashPercent, 0.001)
	assert.InDelta(t, 33.33, s.CardPercent, 0.001)

	empty := PaymentSplit(revenue.ByType{})
	assert.True(t, empty.Empty)
	assert.Zero(t, empty.CashPercent)
	assert.Zero(t, empty.CardPercent)
}

func TestDashboard(t *testing.T) {
	view := Dashboard(sampleStats(t), 5)
	assert.Equal(t, "+25.0%", view.Summary.ChangeLabel)
	assert.True(t, decimal.NewFromInt(40).Equal(view.Summary.Net))
	assert.Len(t, view.Series, 3)
	assert.Len(t, view.TopProducts, 2)
	assert.Empty(t, view.Message)

	stats := sampleStats(t)
	stats.PercentChange = nil
	stats.Empty = true
	empty := Dashboard(stats, 5)
	assert.Empty(t, empty.Summary.ChangeLabel)
	assert.Equal(t, NoDataMessage, empty.Message)
}

func TestChangeLabel(t *testing.T) {
	neg := -0.125
	assert.Equal(t, "-12.5%", ChangeLabel(&neg))
	zero := 0.0
	assert.Equal(t, "0.0%", ChangeLabel(&zero))
	assert.Equal(t, "", ChangeLabel(nil))
}

func TestEmptyDashboardIsZeroFilled(t *testing.T) {
	r, err := revenue.NewDateRange(day("2024-07-04"), day("2024-07-05"))
	require.NoError(t, err)
	view := EmptyDashboard(r)
	assert.True(t, view.Degraded)
	assert.True(t, view.Empty)
	assert.Equal(t, NoDataMessage, view.Message)
	assert.Len(t, view.Series, 2)
	assert.True(t, view.Payment.Empty)
}
