// Package projection reshapes aggregated revenue into the tables, series and
// leaderboards the dashboard renders. Nothing here computes new figures.
package projection

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/boothkeeper/boothkeeper/internal/revenue"
)

var hundred = decimal.NewFromInt(100)

// CategoryCell is one category's figures on one day.
type CategoryCell struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// TableRow is one day of the day-by-category table.
type TableRow struct {
	Day        time.Time       `json:"day"`
	Cells      []CategoryCell  `json:"cells"`
	Quantity   int             `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
	Discounts  decimal.Decimal `json:"discounts"`
	Net        decimal.Decimal `json:"net"`
	HasEntries bool            `json:"has_entries"`
}

// Table is the day-by-category table. Columns are the categories seen in the
// period in first-seen order; every row carries one cell per column.
type Table struct {
	Columns []revenue.CategoryRef `json:"columns"`
	Rows    []TableRow            `json:"rows"`
}

// DailyTable lays out every day of r, zero filling days without entries.
func DailyTable(days []revenue.DayBreakdown, r revenue.DateRange) Table {
	var table Table
	colIndex := make(map[int64]int)
	byDay := make(map[int64]revenue.DayBreakdown, len(days))
	for _, d := range days {
		byDay[d.Day.Unix()] = d
		for _, c := range d.Categories {
			if _, ok := colIndex[c.ID]; !ok {
				colIndex[c.ID] = len(table.Columns)
				table.Columns = append(table.Columns, revenue.CategoryRef{ID: c.ID, Name: c.Name})
			}
		}
	}
	r.Each(func(day time.Time) {
		row := TableRow{Day: day, Cells: make([]CategoryCell, len(table.Columns))}
		for i, col := range table.Columns {
			row.Cells[i] = CategoryCell{CategoryID: col.ID, Name: col.Name}
		}
		if d, ok := byDay[day.Unix()]; ok {
			row.HasEntries = true
			row.Quantity = d.Quantity
			row.Revenue = d.Revenue.Total
			row.Discounts = d.Discounts.Total
			for _, c := range d.Categories {
				cell := &row.Cells[colIndex[c.ID]]
				cell.Quantity = c.Quantity
				cell.Revenue = c.Revenue.Total
			}
		}
		row.Net = row.Revenue.Sub(row.Discounts)
		table.Rows = append(table.Rows, row)
	})
	return table
}

// Point is one day of the revenue time series.
type Point struct {
	Day   time.Time       `json:"day"`
	Cash  decimal.Decimal `json:"cash"`
	Card  decimal.Decimal `json:"card"`
	Total decimal.Decimal `json:"total"`
}

// TimeSeries returns one point per day of r.
func TimeSeries(days []revenue.DayBreakdown, r revenue.DateRange) []Point {
	byDay := make(map[int64]revenue.ByType, len(days))
	for _, d := range days {
		byDay[d.Day.Unix()] = d.Revenue
	}
	points := make([]Point, 0, r.Days())
	r.Each(func(day time.Time) {
		rev := byDay[day.Unix()]
		points = append(points, Point{Day: day, Cash: rev.Cash, Card: rev.Card, Total: rev.Total})
	})
	return points
}

// Ranked is a leaderboard entry.
type Ranked struct {
	Rank     int             `json:"rank"`
	ID       int64           `json:"id"`
	Key      string          `json:"key"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// TopN returns the first n rollups with rank numbers. Rollups are expected in
// ranking order already. n <= 0 returns all of them.
func TopN(rollups []revenue.Rollup, n int) []Ranked {
	if n <= 0 || n > len(rollups) {
		n = len(rollups)
	}
	out := make([]Ranked, 0, n)
	for i, r := range rollups[:n] {
		out = append(out, Ranked{
			Rank:     i + 1,
			ID:       r.ID,
			Key:      r.Key,
			Name:     r.Name,
			Quantity: r.Quantity,
			Revenue:  r.Revenue.Total,
		})
	}
	return out
}

// Split is the cash and card share of gross revenue.
type Split struct {
	Cash        decimal.Decimal `json:"cash"`
	Card        decimal.Decimal `json:"card"`
	Total       decimal.Decimal `json:"total"`
	CashPercent float64         `json:"cash_percent"`
	CardPercent float64         `json:"card_percent"`
	Empty       bool            `json:"empty"`
}

// PaymentSplit annotates a gross split with percentages of the total. Both
// percentages are zero when nothing was sold.
func PaymentSplit(gross revenue.ByType) Split {
	s := Split{Cash: gross.Cash, Card: gross.Card, Total: gross.Total}
	if gross.Total.IsZero() {
		s.Empty = true
		return s
	}
	s.CashPercent = percentOf(gross.Cash, gross.Total)
	s.CardPercent = percentOf(gross.Card, gross.Total)
	return s
}

func percentOf(part, total decimal.Decimal) float64 {
	v, _ := part.Mul(hundred).Div(total).Round(2).Float64()
	return v
}

// Summary is the headline block of the dashboard.
type Summary struct {
	Gross          decimal.Decimal `json:"gross"`
	Discounts      decimal.Decimal `json:"discounts"`
	Net            decimal.Decimal `json:"net"`
	PreviousGross  decimal.Decimal `json:"previous_gross"`
	PreviousNet    decimal.Decimal `json:"previous_net"`
	PercentChange  *float64        `json:"percent_change,omitempty"`
	ChangeLabel    string          `json:"change_label,omitempty"`
	Conventions    int             `json:"conventions"`
	UnresolvedRows int             `json:"unresolved_rows,omitempty"`
}

// DashboardView bundles every widget of the dashboard.
type DashboardView struct {
	Range         revenue.DateRange           `json:"range"`
	PreviousRange revenue.DateRange           `json:"previous_range"`
	Summary       Summary                     `json:"summary"`
	Payment       Split                       `json:"payment"`
	Series        []Point                     `json:"series"`
	Table         Table                       `json:"table"`
	TopProducts   []Ranked                    `json:"top_products"`
	TopCategories []Ranked                    `json:"top_categories"`
	Conventions   []revenue.ConventionSummary `json:"conventions"`
	Empty         bool                        `json:"empty"`
	Degraded      bool                        `json:"degraded,omitempty"`
	Message       string                      `json:"message,omitempty"`
}

// NoDataMessage is shown for periods without entries.
const NoDataMessage = "No data for selected period"

// Dashboard maps period statistics to the dashboard view with top n lists.
func Dashboard(stats revenue.PeriodStats, n int) DashboardView {
	view := DashboardView{
		Range:         stats.Range,
		PreviousRange: stats.PreviousRange,
		Summary: Summary{
			Gross:          stats.TotalRevenueByType.Total,
			Discounts:      stats.TotalDiscountsByType.Total,
			Net:            stats.NetSales,
			PreviousGross:  stats.PreviousRevenueByType.Total,
			PreviousNet:    stats.PreviousNetSales,
			PercentChange:  stats.PercentChange,
			ChangeLabel:    ChangeLabel(stats.PercentChange),
			Conventions:    len(stats.ConventionsInPeriod),
			UnresolvedRows: stats.Unresolved,
		},
		Payment:       PaymentSplit(stats.TotalRevenueByType),
		Series:        TimeSeries(stats.Daily, stats.Range),
		Table:         DailyTable(stats.Daily, stats.Range),
		TopProducts:   TopN(stats.ProductRevenue, n),
		TopCategories: TopN(stats.CategoryRevenue, n),
		Conventions:   stats.ConventionsInPeriod,
		Empty:         stats.Empty,
	}
	if view.Empty {
		view.Message = NoDataMessage
	}
	return view
}

// EmptyDashboard is the view shown when figures could not be computed.
func EmptyDashboard(r revenue.DateRange) DashboardView {
	view := Dashboard(revenue.PeriodStats{Range: r, PreviousRange: r.Previous(), Empty: true}, 0)
	view.Degraded = true
	return view
}

// ChangeLabel renders a percent change ratio such as +12.5%. It returns an
// empty string when the metric is suppressed.
func ChangeLabel(pct *float64) string {
	if pct == nil {
		return ""
	}
	d := decimal.NewFromFloat(*pct).Mul(hundred).Round(1)
	if d.IsPositive() {
		return "+" + d.StringFixed(1) + "%"
	}
	return d.StringFixed(1) + "%"
}
