package revenue

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boothkeeper/boothkeeper/internal/hierarchy"
)

// ByType splits an amount by payment type. Total is always Cash + Card.
type ByType struct {
	Cash  decimal.Decimal `json:"cash"`
	Card  decimal.Decimal `json:"card"`
	Total decimal.Decimal `json:"total"`
}

// Add returns b with the given cash and card amounts added.
func (b ByType) Add(cash, card decimal.Decimal) ByType {
	b.Cash = b.Cash.Add(cash)
	b.Card = b.Card.Add(card)
	b.Total = b.Cash.Add(b.Card)
	return b
}

// Plus adds two splits.
func (b ByType) Plus(o ByType) ByType {
	return b.Add(o.Cash, o.Card)
}

// IsZero reports whether nothing was recorded.
func (b ByType) IsZero() bool {
	return b.Cash.IsZero() && b.Card.IsZero()
}

func priced(price decimal.Decimal, cash, card int) ByType {
	return ByType{}.Add(price.Mul(decimal.NewFromInt(int64(cash))), price.Mul(decimal.NewFromInt(int64(card))))
}

// Rollup is revenue accumulated along one dimension.
type Rollup struct {
	Key      string `json:"key"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Revenue  ByType `json:"revenue"`
}

// DayBreakdown is one day of the period with revenue per category.
type DayBreakdown struct {
	Day        time.Time `json:"day"`
	Revenue    ByType    `json:"revenue"`
	Discounts  ByType    `json:"discounts"`
	Quantity   int       `json:"quantity"`
	Categories []Rollup  `json:"categories"`
}

// Aggregation is the folded result of one period.
type Aggregation struct {
	Range        DateRange      `json:"range"`
	Revenue      ByType         `json:"revenue"`
	Discounts    ByType         `json:"discounts"`
	Quantity     int            `json:"quantity"`
	DiscountUses int            `json:"discount_uses"`
	Categories   []Rollup       `json:"categories"`
	Products     []Rollup       `json:"products"`
	Days         []DayBreakdown `json:"days"`
}

// Net is gross revenue minus discounts.
func (a Aggregation) Net() decimal.Decimal {
	return a.Revenue.Total.Sub(a.Discounts.Total)
}

// Empty reports whether the period had no entries at all.
func (a Aggregation) Empty() bool {
	return a.Quantity == 0 && a.DiscountUses == 0
}

type rollupAcc struct {
	order []string
	byKey map[string]*Rollup
}

func newRollupAcc() *rollupAcc {
	return &rollupAcc{byKey: make(map[string]*Rollup)}
}

func (acc *rollupAcc) add(key string, id int64, name string, qty int, rev ByType) {
	r, ok := acc.byKey[key]
	if !ok {
		r = &Rollup{Key: key, ID: id, Name: name}
		acc.byKey[key] = r
		acc.order = append(acc.order, key)
	}
	r.Quantity += qty
	r.Revenue = r.Revenue.Plus(rev)
}

// list returns rollups in first-seen order.
func (acc *rollupAcc) list() []Rollup {
	out := make([]Rollup, 0, len(acc.order))
	for _, k := range acc.order {
		out = append(out, *acc.byKey[k])
	}
	return out
}

// ranked returns rollups by revenue descending, then quantity descending,
// then first-seen order.
func (acc *rollupAcc) ranked() []Rollup {
	out := acc.list()
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Revenue.Total.Cmp(out[j].Revenue.Total); c != 0 {
			return c > 0
		}
		return out[i].Quantity > out[j].Quantity
	})
	return out
}

func categoryKey(id int64) string {
	return "category:" + strconv.FormatInt(id, 10)
}

// Aggregate folds rows into period totals, rollups and a per-day breakdown.
// Days outside r are ignored.
func Aggregate(rows []Row, r DateRange) Aggregation {
	agg := Aggregation{Range: r}
	categories := newRollupAcc()
	products := newRollupAcc()
	type dayAcc struct {
		breakdown  DayBreakdown
		categories *rollupAcc
	}
	days := make(map[int64]*dayAcc)

	for _, row := range rows {
		item := row.Item
		for _, d := range row.Days {
			if !r.Contains(d.Day) || (d.Cash == 0 && d.Card == 0) {
				continue
			}
			qty := d.Cash + d.Card
			amount := priced(item.UnitPrice, d.Cash, d.Card)
			da, ok := days[d.Day.Unix()]
			if !ok {
				da = &dayAcc{breakdown: DayBreakdown{Day: d.Day}, categories: newRollupAcc()}
				days[d.Day.Unix()] = da
			}
			if item.IsDiscount() {
				agg.Discounts = agg.Discounts.Plus(amount)
				agg.DiscountUses += qty
				da.breakdown.Discounts = da.breakdown.Discounts.Plus(amount)
				continue
			}
			agg.Revenue = agg.Revenue.Plus(amount)
			agg.Quantity += qty
			da.breakdown.Revenue = da.breakdown.Revenue.Plus(amount)
			da.breakdown.Quantity += qty

			cat := item.Category
			if cat == nil {
				cat = &CategoryRef{ID: hierarchy.UncategorizedID, Name: hierarchy.UncategorizedName}
			}
			categories.add(categoryKey(cat.ID), cat.ID, cat.Name, qty, amount)
			da.categories.add(categoryKey(cat.ID), cat.ID, cat.Name, qty, amount)
			products.add(item.Ref.String(), item.Ref.ID, item.Name, qty, amount)
		}
	}

	agg.Categories = categories.ranked()
	agg.Products = products.ranked()
	agg.Days = make([]DayBreakdown, 0, len(days))
	for _, da := range days {
		da.breakdown.Categories = da.categories.list()
		agg.Days = append(agg.Days, da.breakdown)
	}
	sort.Slice(agg.Days, func(i, j int) bool { return agg.Days[i].Day.Before(agg.Days[j].Day) })
	return agg
}
