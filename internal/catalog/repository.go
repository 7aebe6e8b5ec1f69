package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boothkeeper/boothkeeper/internal/platform/db"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// Repository persists catalog records. Every method is scoped to an owner.
type Repository interface {
	ListCategories(ctx context.Context, ownerID string) ([]Category, error)
	GetCategory(ctx context.Context, ownerID string, id int64) (Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, ownerID string, id int64, patch CategoryPatch) (Category, error)
	DeleteCategories(ctx context.Context, ownerID string, ids []int64) (int64, error)

	ListProducts(ctx context.Context, ownerID string, params shared.ListParams) ([]Product, int, error)
	ListProductsWithVariations(ctx context.Context, ownerID string) ([]ProductWithVariations, error)
	GetProduct(ctx context.Context, ownerID string, id int64) (ProductWithVariations, error)
	CreateProduct(ctx context.Context, p Product, variations []Variation) (ProductWithVariations, error)
	UpdateProduct(ctx context.Context, ownerID string, id int64, patch ProductPatch) (Product, error)
	DeleteProducts(ctx context.Context, ownerID string, ids []int64) (int64, error)

	GetVariation(ctx context.Context, ownerID string, id int64) (Variation, error)
	CreateVariation(ctx context.Context, v Variation) (Variation, error)
	UpdateVariation(ctx context.Context, ownerID string, id int64, patch VariationPatch) (Variation, error)
	DeleteVariations(ctx context.Context, ownerID string, ids []int64) (int64, error)

	ListDiscounts(ctx context.Context, ownerID string) ([]Discount, error)
	CreateDiscount(ctx context.Context, d Discount) (Discount, error)
	UpdateDiscount(ctx context.Context, ownerID string, id int64, patch DiscountPatch) (Discount, error)
	DeleteDiscounts(ctx context.Context, ownerID string, ids []int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const (
	categoryColumns  = `id, owner_id, name, parent_id, created_at, updated_at`
	productColumns   = `id, owner_id, name, category_id, price, created_at, updated_at`
	variationColumns = `id, owner_id, product_id, name, price, sku, created_at, updated_at`
	discountColumns  = `id, owner_id, name, amount, created_at, updated_at`
)

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
	return c, notFound(err)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CategoryID, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err)
}

func scanVariation(row pgx.Row) (Variation, error) {
	var v Variation
	err := row.Scan(&v.ID, &v.OwnerID, &v.ProductID, &v.Name, &v.Price, &v.SKU, &v.CreatedAt, &v.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return Variation{}, ErrDuplicateSKU
	}
	return v, notFound(err)
}

func scanDiscount(row pgx.Row) (Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Amount, &d.CreatedAt, &d.UpdatedAt)
	return d, notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repository) ListCategories(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) GetCategory(ctx context.Context, ownerID string, id int64) (Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND owner_id = $2`, id, ownerID))
}

func (r *repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	return scanCategory(r.pool.QueryRow(ctx,
		`INSERT INTO categories (owner_id, name, parent_id) VALUES ($1, $2, $3) RETURNING `+categoryColumns,
		c.OwnerID, c.Name, c.ParentID))
}

func (r *repository) UpdateCategory(ctx context.Context, ownerID string, id int64, patch CategoryPatch) (Category, error) {
	var set db.UpdateSet
	if patch.Name != nil {
		set.Set("name", *patch.Name)
	}
	if patch.ClearParent {
		set.SetNull("parent_id")
	} else if patch.ParentID != nil {
		set.Set("parent_id", *patch.ParentID)
	}
	query, args := set.Build("categories", id, ownerID, categoryColumns)
	return scanCategory(r.pool.QueryRow(ctx, query, args...))
}

// DeleteCategories removes categories; child categories cascade and products
// fall back to uncategorized through the foreign keys.
func (r *repository) DeleteCategories(ctx context.Context, ownerID string, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE owner_id = $1 AND id = ANY($2)`, ownerID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListProducts uses a dynamic query because of the optional search filter.
func (r *repository) ListProducts(ctx context.Context, ownerID string, params shared.ListParams) ([]Product, int, error) {
	where := ` WHERE owner_id = $1`
	args := []any{ownerID}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + productSortOrder(params.SortBy, params.SortDir)
	args = append(args, params.PerPage)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, params.Offset())
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) ListProductsWithVariations(ctx context.Context, ownerID string) ([]ProductWithVariations, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	var products []ProductWithVariations
	index := make(map[int64]int)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[p.ID] = len(products)
		products = append(products, ProductWithVariations{Product: p})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := r.pool.Query(ctx, `SELECT `+variationColumns+` FROM variations WHERE owner_id = $1 ORDER BY product_id, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		v, err := scanVariation(vrows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[v.ProductID]; ok {
			products[i].Variations = append(products[i].Variations, v)
		}
	}
	return products, vrows.Err()
}

func (r *repository) GetProduct(ctx context.Context, ownerID string, id int64) (ProductWithVariations, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		return ProductWithVariations{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+variationColumns+` FROM variations WHERE product_id = $1 AND owner_id = $2 ORDER BY id`, id, ownerID)
	if err != nil {
		return ProductWithVariations{}, err
	}
	defer rows.Close()
	out := ProductWithVariations{Product: p}
	for rows.Next() {
		v, err := scanVariation(rows)
		if err != nil {
			return ProductWithVariations{}, err
		}
		out.Variations = append(out.Variations, v)
	}
	return out, rows.Err()
}

func (r *repository) CreateProduct(ctx context.Context, p Product, variations []Variation) (ProductWithVariations, error) {
	var out ProductWithVariations
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := scanProduct(tx.QueryRow(ctx,
			`INSERT INTO products (owner_id, name, category_id, price) VALUES ($1, $2, $3, $4) RETURNING `+productColumns,
			p.OwnerID, p.Name, p.CategoryID, p.Price))
		if err != nil {
			return err
		}
		out.Product = created
		for _, v := range variations {
			createdVar, err := scanVariation(tx.QueryRow(ctx,
				`INSERT INTO variations (owner_id, product_id, name, price, sku) VALUES ($1, $2, $3, $4, $5) RETURNING `+variationColumns,
				p.OwnerID, created.ID, v.Name, v.Price, v.SKU))
			if err != nil {
				return err
			}
			out.Variations = append(out.Variations, createdVar)
		}
		return nil
	})
	return out, err
}

func (r *repository) UpdateProduct(ctx context.Context, ownerID string, id int64, patch ProductPatch) (Product, error) {
	var set db.UpdateSet
	if patch.Name != nil {
		set.Set("name", *patch.Name)
	}
	if patch.ClearCategory {
		set.SetNull("category_id")
	} else if patch.CategoryID != nil {
		set.Set("category_id", *patch.CategoryID)
	}
	if patch.ClearPrice {
		set.SetNull("price")
	} else if patch.Price != nil {
		set.Set("price", *patch.Price)
	}
	query, args := set.Build("products", id, ownerID, productColumns)
	return scanProduct(r.pool.QueryRow(ctx, query, args...))
}

// DeleteProducts removes products; variations and their daily entries cascade.
func (r *repository) DeleteProducts(ctx context.Context, ownerID string, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE owner_id = $1 AND id = ANY($2)`, ownerID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) GetVariation(ctx context.Context, ownerID string, id int64) (Variation, error) {
	return scanVariation(r.pool.QueryRow(ctx, `SELECT `+variationColumns+` FROM variations WHERE id = $1 AND owner_id = $2`, id, ownerID))
}

func (r *repository) CreateVariation(ctx context.Context, v Variation) (Variation, error) {
	return scanVariation(r.pool.QueryRow(ctx,
		`INSERT INTO variations (owner_id, product_id, name, price, sku) VALUES ($1, $2, $3, $4, $5) RETURNING `+variationColumns,
		v.OwnerID, v.ProductID, v.Name, v.Price, v.SKU))
}

func (r *repository) UpdateVariation(ctx context.Context, ownerID string, id int64, patch VariationPatch) (Variation, error) {
	var set db.UpdateSet
	if patch.Name != nil {
		set.Set("name", *patch.Name)
	}
	if patch.Price != nil {
		set.Set("price", *patch.Price)
	}
	if patch.ClearSKU {
		set.SetNull("sku")
	} else if patch.SKU != nil {
		set.Set("sku", *patch.SKU)
	}
	query, args := set.Build("variations", id, ownerID, variationColumns)
	return scanVariation(r.pool.QueryRow(ctx, query, args...))
}

func (r *repository) DeleteVariations(ctx context.Context, ownerID string, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM variations WHERE owner_id = $1 AND id = ANY($2)`, ownerID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListDiscounts(ctx context.Context, ownerID string) ([]Discount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts WHERE owner_id = $1 ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) CreateDiscount(ctx context.Context, d Discount) (Discount, error) {
	return scanDiscount(r.pool.QueryRow(ctx,
		`INSERT INTO discounts (owner_id, name, amount) VALUES ($1, $2, $3) RETURNING `+discountColumns,
		d.OwnerID, d.Name, d.Amount))
}

func (r *repository) UpdateDiscount(ctx context.Context, ownerID string, id int64, patch DiscountPatch) (Discount, error) {
	var set db.UpdateSet
	if patch.Name != nil {
		set.Set("name", *patch.Name)
	}
	if patch.Amount != nil {
		set.Set("amount", *patch.Amount)
	}
	query, args := set.Build("discounts", id, ownerID, discountColumns)
	return scanDiscount(r.pool.QueryRow(ctx, query, args...))
}

func (r *repository) DeleteDiscounts(ctx context.Context, ownerID string, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE owner_id = $1 AND id = ANY($2)`, ownerID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func productSortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "created":
		return "created_at " + dir + ", id"
	case "price":
		return "price " + dir + " NULLS LAST, id"
	default:
		return "name " + dir + ", id"
	}
}
