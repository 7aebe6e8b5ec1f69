package revenue

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
	"github.com/boothkeeper/boothkeeper/internal/hierarchy"
)

const (
	// CustomCategoryID is the synthetic category custom line items roll into.
	CustomCategoryID int64 = -1
	// CustomCategoryName is its display name.
	CustomCategoryName = "Custom"
)

// CategoryRef attributes a line item to a category for rollups.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LineItem is the uniform reporting shape of anything a daily entry can point
// at: catalog products and variations, custom reports, and both kinds of
// discount. Discounts carry no category.
type LineItem struct {
	Ref         conventions.ItemRef `json:"ref"`
	Name        string              `json:"name"`
	ProductID   int64               `json:"product_id,omitempty"`
	ProductName string              `json:"product_name,omitempty"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Category    *CategoryRef        `json:"category,omitempty"`
}

// IsDiscount reports whether the item reduces revenue.
func (l LineItem) IsDiscount() bool {
	return l.Ref.Kind.IsDiscount()
}

// DayCount holds the counts of one line item on one day.
type DayCount struct {
	Day  time.Time `json:"day"`
	Cash int       `json:"cash"`
	Card int       `json:"card"`
}

// Row is a resolved line item with its daily counts in day order.
type Row struct {
	Item LineItem   `json:"item"`
	Days []DayCount `json:"days"`
}

// MergeResult is the output of CatalogIndex.Merge.
type MergeResult struct {
	Rows []Row
	// Unresolved counts entries whose line item no longer exists.
	Unresolved int
}

// CatalogIndex resolves item refs against the owner's catalog and the custom
// items of the conventions in scope. Prices are the current ones.
type CatalogIndex struct {
	forest *hierarchy.Forest
	items  map[conventions.ItemRef]LineItem
	// order lists catalog line items in forest order for the daily report.
	order  []conventions.ItemRef
	logger *slog.Logger
}

// NewCatalogIndex indexes every resolvable line item.
func NewCatalogIndex(
	forest *hierarchy.Forest,
	products []catalog.ProductWithVariations,
	discounts []catalog.Discount,
	customReports []conventions.CustomReport,
	customDiscounts []conventions.CustomDiscount,
	logger *slog.Logger,
) *CatalogIndex {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &CatalogIndex{
		forest: forest,
		items:  make(map[conventions.ItemRef]LineItem),
		logger: logger,
	}
	for _, p := range products {
		category := idx.categoryOf(p.ID)
		ref := conventions.ItemRef{Kind: conventions.KindProduct, ID: p.ID}
		idx.add(LineItem{
			Ref:         ref,
			Name:        p.Name,
			ProductID:   p.ID,
			ProductName: p.Name,
			// A product that gained variations keeps its old entries at zero value.
			UnitPrice: p.Price.Decimal,
			Category:  category,
		})
		for _, v := range p.Variations {
			idx.add(LineItem{
				Ref:         conventions.ItemRef{Kind: conventions.KindVariation, ID: v.ID},
				Name:        p.Name + " (" + v.Name + ")",
				ProductID:   p.ID,
				ProductName: p.Name,
				UnitPrice:   v.Price,
				Category:    category,
			})
		}
	}
	custom := &CategoryRef{ID: CustomCategoryID, Name: CustomCategoryName}
	for _, c := range customReports {
		idx.add(LineItem{
			Ref:       conventions.ItemRef{Kind: conventions.KindCustom, ID: c.ID},
			Name:      c.Name,
			UnitPrice: c.Price,
			Category:  custom,
		})
	}
	for _, d := range discounts {
		idx.add(LineItem{
			Ref:       conventions.ItemRef{Kind: conventions.KindDiscount, ID: d.ID},
			Name:      discountName(d.Name, d.Amount),
			UnitPrice: d.Amount,
		})
	}
	for _, d := range customDiscounts {
		idx.add(LineItem{
			Ref:       conventions.ItemRef{Kind: conventions.KindCustomDiscount, ID: d.ID},
			Name:      discountName(d.Name, d.Amount),
			UnitPrice: d.Amount,
		})
	}
	return idx
}

func (idx *CatalogIndex) add(item LineItem) {
	if _, dup := idx.items[item.Ref]; dup {
		return
	}
	idx.items[item.Ref] = item
	idx.order = append(idx.order, item.Ref)
}

func (idx *CatalogIndex) categoryOf(productID int64) *CategoryRef {
	node, ok := idx.forest.CategoryOf(productID)
	if !ok {
		return &CategoryRef{ID: hierarchy.UncategorizedID, Name: hierarchy.UncategorizedName}
	}
	return &CategoryRef{ID: node.ID, Name: node.Name}
}

func discountName(name string, amount decimal.Decimal) string {
	if name != "" {
		return name
	}
	return "Discount " + amount.StringFixed(2)
}

// Resolve returns the line item a ref points at.
func (idx *CatalogIndex) Resolve(ref conventions.ItemRef) (LineItem, bool) {
	item, ok := idx.items[ref]
	return item, ok
}

// Items returns every indexed line item in index order.
func (idx *CatalogIndex) Items() []LineItem {
	out := make([]LineItem, 0, len(idx.order))
	for _, ref := range idx.order {
		out = append(out, idx.items[ref])
	}
	return out
}

// Merge groups entries into rows, one per line item in first-seen order.
// Counts for the same item and day are summed, which happens when several
// conventions are in scope.
func (idx *CatalogIndex) Merge(entries []conventions.Entry) MergeResult {
	var res MergeResult
	pos := make(map[conventions.ItemRef]int)
	days := make(map[conventions.ItemRef]map[int64]int)
	for _, e := range entries {
		item, ok := idx.items[e.Item]
		if !ok {
			res.Unresolved++
			continue
		}
		i, seen := pos[e.Item]
		if !seen {
			i = len(res.Rows)
			pos[e.Item] = i
			days[e.Item] = make(map[int64]int)
			res.Rows = append(res.Rows, Row{Item: item})
		}
		row := &res.Rows[i]
		key := e.Day.Unix()
		if j, ok := days[e.Item][key]; ok {
			row.Days[j].Cash += e.Cash
			row.Days[j].Card += e.Card
			continue
		}
		days[e.Item][key] = len(row.Days)
		row.Days = append(row.Days, DayCount{Day: e.Day, Cash: e.Cash, Card: e.Card})
	}
	for i := range res.Rows {
		d := res.Rows[i].Days
		sort.SliceStable(d, func(a, b int) bool { return d[a].Day.Before(d[b].Day) })
	}
	if res.Unresolved > 0 {
		idx.logger.Warn("daily entries reference missing line items", slog.Int("count", res.Unresolved))
	}
	return res
}
