// Package hierarchy nests flat category and product records into a forest
// used for display and for revenue rollups.
package hierarchy

import (
	"log/slog"

	"github.com/boothkeeper/boothkeeper/internal/catalog"
)

const (
	// UncategorizedID is the id of the synthetic bucket holding products
	// without a resolvable category.
	UncategorizedID int64 = 0
	// UncategorizedName is the display name of that bucket.
	UncategorizedName = "Uncategorized"
)

// CategoryNode is one category with its direct subcategories and the products
// assigned directly to it.
type CategoryNode struct {
	ID        int64                           `json:"id"`
	Name      string                          `json:"name"`
	ParentID  *int64                          `json:"parent_id,omitempty"`
	Synthetic bool                            `json:"synthetic,omitempty"`
	Children  []*CategoryNode                 `json:"children"`
	Products  []catalog.ProductWithVariations `json:"products"`
}

// Forest is the nested category view of an owner's catalog. Nodes live in an
// id-indexed arena; child lists only ever hold accepted parent edges so the
// structure is acyclic.
type Forest struct {
	Roots []*CategoryNode `json:"roots"`

	nodes      map[int64]*CategoryNode
	productCat map[int64]int64
	// Orphans lists categories whose parent did not resolve and were promoted to roots.
	Orphans []int64 `json:"-"`
	// Cycles lists categories whose parent edge would have closed a loop.
	Cycles []int64 `json:"-"`
}

// BuildForest runs the two-pass build. Traversal order follows the source
// slices; nothing is sorted.
func BuildForest(categories []catalog.Category, products []catalog.ProductWithVariations, logger *slog.Logger) *Forest {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Forest{
		nodes:      make(map[int64]*CategoryNode, len(categories)),
		productCat: make(map[int64]int64, len(products)),
	}
	order := make([]*CategoryNode, 0, len(categories))
	for _, c := range categories {
		if c.ID == UncategorizedID {
			logger.Warn("category with reserved id skipped", slog.Int64("category_id", c.ID), slog.String("name", c.Name))
			continue
		}
		if _, dup := f.nodes[c.ID]; dup {
			logger.Warn("duplicate category id skipped", slog.Int64("category_id", c.ID))
			continue
		}
		node := &CategoryNode{ID: c.ID, Name: c.Name, ParentID: c.ParentID}
		f.nodes[c.ID] = node
		order = append(order, node)
	}

	// accepted holds parent edges already placed in the forest.
	accepted := make(map[int64]int64, len(order))
	for _, node := range order {
		if node.ParentID == nil {
			f.Roots = append(f.Roots, node)
			continue
		}
		parent, ok := f.nodes[*node.ParentID]
		if !ok {
			logger.Warn("orphan category promoted to root",
				slog.Int64("category_id", node.ID),
				slog.Int64("parent_id", *node.ParentID))
			f.Orphans = append(f.Orphans, node.ID)
			f.Roots = append(f.Roots, node)
			continue
		}
		if closesCycle(accepted, node.ID, parent.ID) {
			logger.Warn("category parent edge ignored, would close a cycle",
				slog.Int64("category_id", node.ID),
				slog.Int64("parent_id", parent.ID))
			f.Cycles = append(f.Cycles, node.ID)
			f.Roots = append(f.Roots, node)
			continue
		}
		accepted[node.ID] = parent.ID
		parent.Children = append(parent.Children, node)
	}

	var uncategorized *CategoryNode
	for _, p := range products {
		if _, seen := f.productCat[p.ID]; seen {
			continue
		}
		var target *CategoryNode
		if p.CategoryID != nil {
			target = f.nodes[*p.CategoryID]
			if target == nil {
				logger.Warn("product category missing, using uncategorized",
					slog.Int64("product_id", p.ID),
					slog.Int64("category_id", *p.CategoryID))
			}
		}
		if target == nil {
			if uncategorized == nil {
				uncategorized = &CategoryNode{ID: UncategorizedID, Name: UncategorizedName, Synthetic: true}
			}
			target = uncategorized
		}
		target.Products = append(target.Products, p)
		f.productCat[p.ID] = target.ID
	}
	if uncategorized != nil {
		f.nodes[UncategorizedID] = uncategorized
		f.Roots = append(f.Roots, uncategorized)
	}
	return f
}

// closesCycle walks the accepted edges up from parentID and reports whether
// the walk reaches childID.
func closesCycle(accepted map[int64]int64, childID, parentID int64) bool {
	cur := parentID
	for {
		if cur == childID {
			return true
		}
		next, ok := accepted[cur]
		if !ok {
			return false
		}
		cur = next
	}
}

// Find returns the node for a category id, including the Uncategorized bucket.
func (f *Forest) Find(categoryID int64) (*CategoryNode, bool) {
	if f == nil {
		return nil, false
	}
	n, ok := f.nodes[categoryID]
	return n, ok
}

// CategoryOf returns the node a product was attached to.
func (f *Forest) CategoryOf(productID int64) (*CategoryNode, bool) {
	if f == nil {
		return nil, false
	}
	id, ok := f.productCat[productID]
	if !ok {
		return nil, false
	}
	return f.Find(id)
}

// Walk visits every node depth first in forest order. Returning false from fn
// skips the node's subtree.
func (f *Forest) Walk(fn func(node *CategoryNode, depth int) bool) {
	if f == nil {
		return
	}
	var visit func(n *CategoryNode, depth int)
	visit = func(n *CategoryNode, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	for _, root := range f.Roots {
		visit(root, 0)
	}
}

// Path returns the category names from the root down to categoryID.
func (f *Forest) Path(categoryID int64) []string {
	var path []string
	for n, ok := f.Find(categoryID); ok; {
		path = append([]string{n.Name}, path...)
		if n.ParentID == nil || n.Synthetic || f.isRoot(n) {
			break
		}
		n, ok = f.Find(*n.ParentID)
	}
	return path
}

func (f *Forest) isRoot(n *CategoryNode) bool {
	for _, r := range f.Roots {
		if r == n {
			return true
		}
	}
	return false
}

// CategoryCount returns the number of real categories placed in the forest.
func (f *Forest) CategoryCount() int {
	n := 0
	f.Walk(func(node *CategoryNode, _ int) bool {
		if !node.Synthetic {
			n++
		}
		return true
	})
	return n
}

// ProductCount returns the number of products placed in the forest.
func (f *Forest) ProductCount() int {
	n := 0
	f.Walk(func(node *CategoryNode, _ int) bool {
		n += len(node.Products)
		return true
	})
	return n
}
