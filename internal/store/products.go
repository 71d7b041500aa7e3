package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/01moynul/pawshop-golang/internal/models"
)

const productColumns = `id, name, slug, price, image, category, subcategory, description, brand,
	in_stock, stock_quantity, low_stock_threshold, last_restocked, created_at, updated_at`

// ProductFilter holds the single-valued filters pushed down to SQL.
type ProductFilter struct {
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// StockLevel is the stock state of a product after a mutation.
type StockLevel struct {
	ProductID int64  `db:"id"`
	Name      string `db:"name"`
	Category  string `db:"category"`
	Quantity  int    `db:"stock_quantity"`
	Threshold int    `db:"low_stock_threshold"`
}

func (l StockLevel) Low() bool { return l.Quantity <= l.Threshold }

func getProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	var p models.Product
	err := sqlx.GetContext(ctx, q, &p, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p *models.Product
	err := s.with(ctx, func(q Querier) (err error) {
		p, err = getProduct(ctx, q, id)
		return err
	})
	return p, err
}

// ListProductsByCategory returns the products of one category narrowed by the
// optional brand and price bounds, in insertion order. Bounds are bound as
// decimal text so the column's numeric affinity compares them unrounded.
func (s *Store) ListProductsByCategory(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	where := []string{"category = ?"}
	args := []interface{}{f.Category}
	if f.Brand != "" {
		where = append(where, "brand = ?")
		args = append(args, f.Brand)
	}
	if f.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, f.MaxPrice.String())
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	products := []models.Product{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &products, query, args...)
	})
	return products, errors.Wrap(err, "list products")
}

// SearchProducts matches term as a case-insensitive substring of name or description.
func (s *Store) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	products := []models.Product{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &products,
			`SELECT `+productColumns+` FROM products
			WHERE LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'
			ORDER BY name LIMIT ?`, pattern, pattern, limit)
	})
	return products, errors.Wrap(err, "search products")
}

// Brands lists the distinct non-empty brands of a category.
func (s *Store) Brands(ctx context.Context, category string) ([]string, error) {
	brands := []string{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &brands,
			`SELECT DISTINCT brand FROM products WHERE category = ? AND brand <> '' ORDER BY brand`, category)
	})
	return brands, errors.Wrap(err, "list brands")
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &products, `SELECT `+productColumns+` FROM products ORDER BY id`)
	})
	return products, errors.Wrap(err, "list all products")
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.with(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO products (name, slug, price, image, category, subcategory, description, brand,
				in_stock, stock_quantity, low_stock_threshold, last_restocked, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CASE WHEN ? > 0 THEN CURRENT_TIMESTAMP END, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			p.Name, p.Slug, p.Price, p.Image, p.Category, p.Subcategory, p.Description, p.Brand,
			p.StockQuantity > 0, p.StockQuantity, p.LowStockThreshold, p.StockQuantity)
		if err != nil {
			return errors.Wrap(err, "insert product")
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "product id")
		}
		created, err := getProduct(ctx, q, p.ID)
		if err != nil {
			return err
		}
		*p = *created
		return nil
	})
}

// UpdateProduct overwrites the editable fields of p. The previous category is
// returned so callers can invalidate both listings.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) (previousCategory string, err error) {
	err = s.InTx(ctx, func(tx *Tx) error {
		old, err := getProduct(ctx, tx.q, p.ID)
		if err != nil {
			return err
		}
		previousCategory = old.Category

		_, err = tx.q.ExecContext(ctx,
			`UPDATE products SET name = ?, slug = ?, price = ?, image = ?, category = ?, subcategory = ?,
				description = ?, brand = ?, in_stock = ?,
				last_restocked = CASE WHEN ? > stock_quantity THEN CURRENT_TIMESTAMP ELSE last_restocked END,
				stock_quantity = ?, low_stock_threshold = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			p.Name, p.Slug, p.Price, p.Image, p.Category, p.Subcategory, p.Description, p.Brand,
			p.StockQuantity > 0, p.StockQuantity, p.StockQuantity, p.LowStockThreshold, p.ID)
		if err != nil {
			return errors.Wrap(err, "update product")
		}
		updated, err := getProduct(ctx, tx.q, p.ID)
		if err != nil {
			return err
		}
		*p = *updated
		return nil
	})
	return previousCategory, err
}

// DeleteProduct removes the product and returns its category. Orders keep
// their snapshots.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (category string, err error) {
	err = s.InTx(ctx, func(tx *Tx) error {
		p, err := getProduct(ctx, tx.q, id)
		if err != nil {
			return err
		}
		category = p.Category
		_, err = tx.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
		return errors.Wrap(err, "delete product")
	})
	return category, err
}

// AdjustStock applies delta to the product's stock, clamping at zero. The
// restock timestamp is stamped only for positive deltas.
func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) (StockLevel, error) {
	var level StockLevel
	err := s.InTx(ctx, func(tx *Tx) (err error) {
		level, err = tx.AdjustStock(ctx, id, delta)
		return err
	})
	return level, err
}

// DecrementStock removes amount units, clamping at zero, and returns the new quantity.
func (s *Store) DecrementStock(ctx context.Context, id int64, amount int) (int, error) {
	level, err := s.AdjustStock(ctx, id, -amount)
	return level.Quantity, err
}

func (tx *Tx) AdjustStock(ctx context.Context, id int64, delta int) (StockLevel, error) {
	var err error
	switch {
	case delta > 0:
		_, err = tx.q.ExecContext(ctx,
			`UPDATE products SET in_stock = 1, stock_quantity = stock_quantity + ?,
				last_restocked = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, delta, id)
	case delta < 0:
		// in_stock is assigned first: MySQL evaluates assignments left to right.
		_, err = tx.q.ExecContext(ctx,
			`UPDATE products SET in_stock = CASE WHEN stock_quantity > ? THEN 1 ELSE 0 END,
				stock_quantity = CASE WHEN stock_quantity >= ? THEN stock_quantity - ? ELSE 0 END,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, -delta, -delta, -delta, id)
	}
	if err != nil {
		return StockLevel{}, errors.Wrap(err, "adjust stock")
	}
	return tx.StockLevel(ctx, id)
}

// ReserveStock removes quantity units only if that many are available. It
// reports false, leaving the row untouched, when stock is short.
func (tx *Tx) ReserveStock(ctx context.Context, id int64, quantity int) (bool, error) {
	res, err := tx.q.ExecContext(ctx,
		`UPDATE products SET in_stock = CASE WHEN stock_quantity > ? THEN 1 ELSE 0 END,
			stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity >= ?`, quantity, quantity, id, quantity)
	if err != nil {
		return false, errors.Wrap(err, "reserve stock")
	}
	n, err := affected(res)
	return n == 1, err
}

func (tx *Tx) StockLevel(ctx context.Context, id int64) (StockLevel, error) {
	var level StockLevel
	err := sqlx.GetContext(ctx, tx.q, &level,
		`SELECT id, name, category, stock_quantity, low_stock_threshold FROM products WHERE id = ?`, id)
	if err != nil {
		return StockLevel{}, notFound(err, "product", id)
	}
	return level, nil
}

// StockLevels reads the live stock of ids. Missing products are absent from the map.
func (tx *Tx) StockLevels(ctx context.Context, ids []int64) (map[int64]StockLevel, error) {
	levels := make(map[int64]StockLevel, len(ids))
	if len(ids) == 0 {
		return levels, nil
	}
	query, args, err := sqlx.In(
		`SELECT id, name, category, stock_quantity, low_stock_threshold FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build stock query")
	}
	var rows []StockLevel
	if err := sqlx.SelectContext(ctx, tx.q, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "read stock levels")
	}
	for _, row := range rows {
		levels[row.ProductID] = row
	}
	return levels, nil
}

// CountLowStock counts products whose stock is at or below threshold. A
// negative threshold compares against each product's own threshold.
func (s *Store) CountLowStock(ctx context.Context, threshold int) (int, error) {
	var n int
	err := s.with(ctx, func(q Querier) error {
		if threshold < 0 {
			return sqlx.GetContext(ctx, q, &n,
				`SELECT COUNT(*) FROM products WHERE stock_quantity <= low_stock_threshold`)
		}
		return sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM products WHERE stock_quantity <= ?`, threshold)
	})
	return n, errors.Wrap(err, "count low stock")
}

// ListLowStock returns products at or below their own threshold, emptiest first.
func (s *Store) ListLowStock(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.with(ctx, func(q Querier) error {
		return sqlx.SelectContext(ctx, q, &products,
			`SELECT `+productColumns+` FROM products
			WHERE stock_quantity <= low_stock_threshold
			ORDER BY stock_quantity, name`)
	})
	return products, errors.Wrap(err, "list low stock")
}

func (s *Store) StockStats(ctx context.Context) (models.StockStats, error) {
	var stats models.StockStats
	err := s.with(ctx, func(q Querier) error {
		return sqlx.GetContext(ctx, q, &stats,
			`SELECT COUNT(*) AS total_products,
				COALESCE(SUM(stock_quantity), 0) AS total_units,
				COALESCE(SUM(CASE WHEN stock_quantity = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock,
				COALESCE(SUM(CASE WHEN stock_quantity <= low_stock_threshold THEN 1 ELSE 0 END), 0) AS low_stock
			FROM products`)
	})
	return stats, errors.Wrap(err, "stock stats")
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
