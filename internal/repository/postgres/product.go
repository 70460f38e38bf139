package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/database"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const productColumns = `id, name, sku, category, price, cost, stock, unit, sale_unit, sale_ratio,
	low_stock_threshold, created_at, updated_at`

func scanProduct(row rowScanner, p *domain.Product, extra ...any) error {
	dest := []any{
		&p.ID, &p.Name, &p.SKU, &p.Category, &p.Price, &p.Cost, &p.Stock, &p.Unit,
		&p.SaleUnit, &p.SaleRatio, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a product. A taken SKU is reported as AlreadyExists.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.Name, p.SKU, p.Category, p.Price, p.Cost, p.Stock, p.Unit,
		p.SaleUnit, p.SaleRatio, p.LowStockThreshold, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// List returns products by name, optionally filtered by a name or SKU
// substring.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`, count(*) OVER() AS total_count
		FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR sku ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2 OFFSET $3`, filter.Search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var total int
	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p, &total); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

// Update writes catalog fields; stock is left alone.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, sku = $3, category = $4, price = $5, cost = $6, unit = $7,
			sale_unit = $8, sale_ratio = $9, low_stock_threshold = $10, updated_at = $11
		WHERE id = $1`,
		p.ID, p.Name, p.SKU, p.Category, p.Price, p.Cost, p.Unit,
		p.SaleUnit, p.SaleRatio, p.LowStockThreshold, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// StockLevels returns current stock keyed by product id.
func (r *ProductRepository) StockLevels(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	levels := make(map[string]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return levels, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, stock FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query stock levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			stock decimal.Decimal
		)
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels[id] = stock
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock levels: %w", err)
	}
	return levels, nil
}

// Adjust applies entry.Quantity to stock and appends the ledger row.
func (r *ProductRepository) Adjust(ctx context.Context, entry *domain.InventoryTransaction) (*repository.StockChange, error) {
	c := &repository.StockChange{ProductID: entry.ProductID}
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = $3
			WHERE id = $1
			RETURNING name, stock, low_stock_threshold`,
			entry.ProductID, entry.Quantity, entry.CreatedAt,
		).Scan(&c.ProductName, &c.Stock, &c.LowStockThreshold)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", entry.ProductID)
		}
		if err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_transactions (id, product_id, type, quantity, note, order_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.ID, entry.ProductID, entry.Type, entry.Quantity, entry.Note, entry.OrderID, entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert inventory transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListTransactions returns the newest ledger rows for a product.
func (r *ProductRepository) ListTransactions(ctx context.Context, productID string, limit int) ([]domain.InventoryTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, type, quantity, note, order_id, created_at
		FROM inventory_transactions
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.InventoryTransaction, 0)
	for rows.Next() {
		var t domain.InventoryTransaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.Type, &t.Quantity, &t.Note, &t.OrderID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory transactions: %w", err)
	}
	return txs, nil
}
