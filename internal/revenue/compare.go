package revenue

import "github.com/shopspring/decimal"

// PercentChange returns (current - previous) / previous as a ratio. ok is
// false when previous is zero, in which case the metric must not be shown.
func PercentChange(current, previous decimal.Decimal) (float64, bool) {
	if previous.IsZero() {
		return 0, false
	}
	ratio, _ := current.Sub(previous).Div(previous).Float64()
	return ratio, true
}

// PeriodStats is the dashboard summary of a period and its predecessor.
type PeriodStats struct {
	Range                   DateRange       `json:"range"`
	PreviousRange           DateRange       `json:"previous_range"`
	TotalRevenueByType      ByType          `json:"total_revenue_by_type"`
	TotalDiscountsByType    ByType          `json:"total_discounts_by_type"`
	PreviousRevenueByType   ByType          `json:"previous_revenue_by_type"`
	PreviousDiscountsByType ByType          `json:"previous_discounts_by_type"`
	NetSales                decimal.Decimal `json:"net_sales"`
	PreviousNetSales        decimal.Decimal `json:"previous_net_sales"`
	// PercentChange is nil when the previous net is zero.
	PercentChange       *float64            `json:"percent_change,omitempty"`
	CategoryRevenue     []Rollup            `json:"category_revenue"`
	ProductRevenue      []Rollup            `json:"product_revenue"`
	ConventionsInPeriod []ConventionSummary `json:"conventions_in_period"`
	Daily               []DayBreakdown      `json:"daily"`
	Unresolved          int                 `json:"unresolved,omitempty"`
	Empty               bool                `json:"empty"`
}

// ConventionSummary names a convention overlapping the period.
type ConventionSummary struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Range    DateRange `json:"range"`
}

// Compare combines the current and previous aggregations.
func Compare(current, previous Aggregation) PeriodStats {
	stats := PeriodStats{
		Range:                   current.Range,
		PreviousRange:           previous.Range,
		TotalRevenueByType:      current.Revenue,
		TotalDiscountsByType:    current.Discounts,
		PreviousRevenueByType:   previous.Revenue,
		PreviousDiscountsByType: previous.Discounts,
		NetSales:                current.Net(),
		PreviousNetSales:        previous.Net(),
		CategoryRevenue:         current.Categories,
		ProductRevenue:          current.Products,
		Daily:                   current.Days,
		Empty:                   current.Empty(),
	}
	if pct, ok := PercentChange(stats.NetSales, stats.PreviousNetSales); ok {
		stats.PercentChange = &pct
	}
	return stats
}
