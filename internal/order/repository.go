package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository interface {
	// Create inserts the order and its items. A second order for the same
	// payment reference yields ErrDuplicateOrder.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID uint) ([]Order, error)
	// UpdateStatus moves the order from one status to another, failing with
	// ErrInvalidStatusTransition if it is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const selectOrder = `
	SELECT id, user_id, shipping_address, total_amount, payment_status,
		payment_reference, payment_id, order_status, created_at, updated_at
	FROM orders`

func (r *repository) Create(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderStatus == "" {
		o.OrderStatus = StatusProcessing
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders
			(id, user_id, shipping_address, total_amount, payment_status,
			 payment_reference, payment_id, order_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`,
		o.ID, o.UserID, o.ShippingAddress, o.TotalAmount, string(o.PaymentStatus),
		o.PaymentReference, o.PaymentID, string(o.OrderStatus),
	).Scan(&o.CreatedAt, &o.UpdatedAt)

	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.PaymentReference)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for pos, it := range o.Items {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO order_items
				(order_id, position, product_id, quantity, selected_color, selected_size, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, o.ID, pos, it.ProductID, it.Quantity, it.SelectedColor, it.SelectedSize, it.UnitPrice, it.Subtotal)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOne(ctx, selectOrder+` WHERE id = $1`, id)
}

func (r *repository) GetByPaymentReference(ctx context.Context, reference string) (*Order, error) {
	return r.getOne(ctx, selectOrder+` WHERE payment_reference = $1`, reference)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []Item{}
	}
	return o, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+`
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	var ids []uuid.UUID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []Item{}
		}
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET order_status = $1, updated_at = NOW()
		WHERE id = $2 AND order_status = $3
	`, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", ErrInvalidStatusTransition, id, from)
	}
	return nil
}

func (r *repository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	keys := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		keys[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, selected_color, selected_size, unit_price, subtotal
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]Item, len(orderIDs))
	for rows.Next() {
		var (
			orderID uuid.UUID
			it      Item
		)
		if err := rows.Scan(
			&orderID, &it.ProductID, &it.Quantity, &it.SelectedColor, &it.SelectedSize,
			&it.UnitPrice, &it.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o             Order
		paymentStatus string
		orderStatus   string
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &o.ShippingAddress, &o.TotalAmount, &paymentStatus,
		&o.PaymentReference, &o.PaymentID, &orderStatus, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.PaymentStatus = payment.Status(paymentStatus)
	o.OrderStatus = OrderStatus(orderStatus)
	return &o, nil
}
