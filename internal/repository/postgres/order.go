package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/database"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const orderColumns = `id, code, type, status, customer_id, supplier_id, total, paid, discount,
	payment_method, shipping_fee, shipping_paid_by, carrier_id, carrier_name, delivery_method,
	delivery_address, delivery_note, recipient_name, recipient_phone, returned_amount,
	refund_amount, return_note, note, shipped_at, completed_at, created_at, updated_at`

func scanOrder(row rowScanner, o *domain.Order, extra ...any) error {
	dest := []any{
		&o.ID, &o.Code, &o.Type, &o.Status, &o.CustomerID, &o.SupplierID,
		&o.Total, &o.Paid, &o.Discount, &o.PaymentMethod, &o.ShippingFee,
		&o.ShippingPaidBy, &o.CarrierID, &o.CarrierName, &o.DeliveryMethod,
		&o.DeliveryAddress, &o.DeliveryNote, &o.RecipientName, &o.RecipientPhone,
		&o.ReturnedAmount, &o.RefundAmount, &o.ReturnNote, &o.Note,
		&o.ShippedAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create assigns the order code from the daily counter and inserts the order
// and its items atomically.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		prefix := domain.CodePrefix(o.Type)
		day := o.CreatedAt.Format("20060102")

		var seq int
		err := tx.QueryRow(ctx, `
			INSERT INTO order_code_counters (prefix, day, seq)
			VALUES ($1, $2, 1)
			ON CONFLICT (prefix, day) DO UPDATE SET seq = order_code_counters.seq + 1
			RETURNING seq`, prefix, day).Scan(&seq)
		if err != nil {
			return fmt.Errorf("next order sequence: %w", err)
		}
		o.Code = fmt.Sprintf("%s%s-%03d", prefix, day, seq)

		_, err = tx.Exec(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`,
			o.ID, o.Code, o.Type, o.Status, o.CustomerID, o.SupplierID,
			o.Total, o.Paid, o.Discount, o.PaymentMethod, o.ShippingFee,
			o.ShippingPaidBy, o.CarrierID, o.CarrierName, o.DeliveryMethod,
			o.DeliveryAddress, o.DeliveryNote, o.RecipientName, o.RecipientPhone,
			o.ReturnedAmount, o.RefundAmount, o.ReturnNote, o.Note,
			o.ShippedAt, o.CompletedAt, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		return insertItems(ctx, tx, o.Items)
	})
}

func insertItems(ctx context.Context, tx pgx.Tx, items []domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, unit, quantity, price, returned_quantity, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, item := range items {
		_, err := tx.Exec(ctx, query,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.Unit,
			item.Quantity,
			item.Price,
			item.ReturnedQuantity,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an order by its ID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	byOrder, err := loadItems(ctx, r.pool, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = itemsOrEmpty(byOrder[o.ID])
	return &o, nil
}

// loadItems batch-loads items for the given orders.
func loadItems(ctx context.Context, db database.DBTX, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, unit, quantity, price, returned_quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Unit,
			&item.Quantity,
			&item.Price,
			&item.ReturnedQuantity,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}
	return byOrder, nil
}

func itemsOrEmpty(items []domain.OrderItem) []domain.OrderItem {
	if items == nil {
		return []domain.OrderItem{}
	}
	return items
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, *filter.Type)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		o.Items = []domain.OrderItem{}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// ListOpen returns PENDING and PROCESSING sales with their items.
func (r *OrderRepository) ListOpen(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE type = $1 AND status = ANY($2)
		ORDER BY created_at`,
		domain.OrderTypeSale, []string{domain.OrderStatusPending, domain.OrderStatusProcessing},
	)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan open order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	byOrder, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = itemsOrEmpty(byOrder[orders[i].ID])
	}
	return orders, nil
}

// lockStatus locks the order row for the rest of tx and returns its status
// and type.
func lockStatus(ctx context.Context, tx pgx.Tx, id string) (status, orderType string, err error) {
	err = tx.QueryRow(ctx, `SELECT status, type FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status, &orderType)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", apperrors.NotFound("order", id)
	}
	if err != nil {
		return "", "", fmt.Errorf("lock order: %w", err)
	}
	return status, orderType, nil
}

// ReplaceItems rewrites items, discount and total while the order is open.
func (r *OrderRepository) ReplaceItems(ctx context.Context, o *domain.Order) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		status, _, err := lockStatus(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		if status == domain.OrderStatusCompleted || status == domain.OrderStatusCancelled {
			return apperrors.InvalidState("edit items of", status)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		if err := insertItems(ctx, tx, o.Items); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE orders SET discount = $2, total = $3, updated_at = $4
			WHERE id = $1`, o.ID, o.Discount, o.Total, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update order totals: %w", err)
		}
		return nil
	})
}

// UpdateStatus changes status only if the stored status is still from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("order %s is no longer %s", id, from))
	}
	return nil
}

// StartShipping writes the shipping fields and moves READY to SHIPPING.
func (r *OrderRepository) StartShipping(ctx context.Context, o *domain.Order) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, carrier_id = $3, carrier_name = $4, shipping_fee = $5,
			shipping_paid_by = $6, shipped_at = $7, updated_at = $7
		WHERE id = $1 AND status = $8`,
		o.ID, domain.OrderStatusShipping, o.CarrierID, o.CarrierName, o.ShippingFee,
		o.ShippingPaidBy, o.ShippedAt, domain.OrderStatusReady,
	)
	if err != nil {
		return fmt.Errorf("start shipping: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("order %s is no longer %s", o.ID, domain.OrderStatusReady))
	}
	return nil
}

// Complete locks the order, re-checks the transition, records returns,
// applies stock and ledger effects for sales and sets COMPLETED. Any failure
// rolls back all of it.
func (r *OrderRepository) Complete(ctx context.Context, o *domain.Order) ([]repository.StockChange, error) {
	ctx, end := database.TraceQuery(ctx, "order.complete", "complete order")
	var changes []repository.StockChange

	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		status, orderType, err := lockStatus(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(status, domain.OrderStatusCompleted) {
			return apperrors.InvalidTransition(status, domain.OrderStatusCompleted)
		}

		locked, err := loadItems(ctx, tx, []string{o.ID})
		if err != nil {
			return err
		}
		if !sameItems(o.Items, locked[o.ID]) {
			return apperrors.Conflict(fmt.Sprintf("items of order %s changed, reload and retry", o.ID))
		}

		now := time.Now().UTC()
		if o.CompletedAt != nil {
			now = *o.CompletedAt
		}

		for _, item := range o.Items {
			tag, err := tx.Exec(ctx, `
				UPDATE order_items SET returned_quantity = $3
				WHERE id = $1 AND order_id = $2`,
				item.ID, o.ID, item.ReturnedQuantity)
			if err != nil {
				return fmt.Errorf("record returned quantity: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.Conflict(fmt.Sprintf("item %s is no longer part of order %s", item.ID, o.ID))
			}
		}

		if orderType == domain.OrderTypeSale {
			changes, err = decrementStock(ctx, tx, o, now)
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET status = $2, returned_amount = $3, refund_amount = $4, return_note = $5,
				completed_at = $6, updated_at = $6
			WHERE id = $1`,
			o.ID, domain.OrderStatusCompleted, o.ReturnedAmount, o.RefundAmount, o.ReturnNote, now)
		if err != nil {
			return fmt.Errorf("complete order: %w", err)
		}
		return nil
	})
	end(err)
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// sameItems reports whether the lines a caller settled still match the stored
// ones by id, product and quantity.
func sameItems(settled, stored []domain.OrderItem) bool {
	if len(settled) != len(stored) {
		return false
	}
	byID := make(map[string]domain.OrderItem, len(stored))
	for _, it := range stored {
		byID[it.ID] = it
	}
	for _, it := range settled {
		cur, ok := byID[it.ID]
		if !ok || cur.ProductID != it.ProductID || !cur.Quantity.Equal(it.Quantity) {
			return false
		}
	}
	return true
}

// decrementStock removes each item's kept quantity from stock and appends one
// OUT ledger row per item. A line returned in full gets a zero-delta row and
// leaves stock alone. Stock may go negative since availability is never
// reserved.
func decrementStock(ctx context.Context, tx pgx.Tx, o *domain.Order, now time.Time) ([]repository.StockChange, error) {
	changes := make([]repository.StockChange, 0, len(o.Items))
	note := "Sale " + o.Code
	orderID := o.ID

	for _, item := range o.Items {
		kept := item.KeptQuantity()

		if !kept.IsZero() {
			c := repository.StockChange{ProductID: item.ProductID}
			err := tx.QueryRow(ctx, `
				UPDATE products SET stock = stock - $2, updated_at = $3
				WHERE id = $1
				RETURNING name, stock, low_stock_threshold`,
				item.ProductID, kept, now,
			).Scan(&c.ProductName, &c.Stock, &c.LowStockThreshold)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NotFound("product", item.ProductID)
			}
			if err != nil {
				return nil, fmt.Errorf("decrement stock: %w", err)
			}
			changes = append(changes, c)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO inventory_transactions (id, product_id, type, quantity, note, order_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), item.ProductID, domain.InventoryOut, kept.Neg(), note, &orderID, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert inventory transaction: %w", err)
		}
	}
	return changes, nil
}

// AddPayment inserts the payment and bumps order.paid atomically.
func (r *OrderRepository) AddPayment(ctx context.Context, p *domain.Payment) (int64, error) {
	var paid int64
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE orders SET paid = paid + $2, updated_at = $3
			WHERE id = $1
			RETURNING paid`, p.OrderID, p.Amount, p.CreatedAt).Scan(&paid)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("order", p.OrderID)
		}
		if err != nil {
			return fmt.Errorf("update paid amount: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO payments (id, order_id, amount, method, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.OrderID, p.Amount, p.Method, p.Note, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return paid, nil
}

// ListPayments returns an order's payments, oldest first.
func (r *OrderRepository) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, amount, method, note, created_at
		FROM payments WHERE order_id = $1
		ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}
