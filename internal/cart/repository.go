package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"

	"github.com/google/uuid"
)

type Repository interface {
	GetByUser(ctx context.Context, userID uint) (*Cart, error)
	// GetByUserForUpdate row-locks the cart header until the surrounding
	// transaction ends.
	GetByUserForUpdate(ctx context.Context, userID uint) (*Cart, error)
	// EnsureForUpdate creates an empty cart header if the user has none, then
	// row-locks and returns the user's cart.
	EnsureForUpdate(ctx context.Context, userID uint) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const selectCart = `
	SELECT id, user_id, subtotal, delivery_fee, total_price
	FROM carts
	WHERE user_id = $1`

func (r *repository) GetByUser(ctx context.Context, userID uint) (*Cart, error) {
	return r.get(ctx, selectCart, userID)
}

func (r *repository) GetByUserForUpdate(ctx context.Context, userID uint) (*Cart, error) {
	return r.get(ctx, selectCart+` FOR UPDATE`, userID)
}

func (r *repository) EnsureForUpdate(ctx context.Context, userID uint) (*Cart, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, subtotal, delivery_fee, total_price, updated_at)
		VALUES ($1, $2, 0, 0, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID)
	if err != nil {
		return nil, fmt.Errorf("create cart for user %d: %w", userID, err)
	}
	return r.GetByUserForUpdate(ctx, userID)
}

func (r *repository) get(ctx context.Context, query string, userID uint) (*Cart, error) {
	var c Cart
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&c.ID, &c.UserID, &c.Subtotal, &c.DeliveryFee, &c.TotalPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart for user %d: %w", userID, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity, selected_color, selected_size, unit_price, line_subtotal
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ProductID, &it.Quantity, &it.SelectedColor, &it.SelectedSize,
			&it.UnitPrice, &it.LineSubtotal,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return &c, nil
}

// Save upserts the cart header and replaces its lines, preserving order.
func (r *repository) Save(ctx context.Context, c *Cart) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (id, user_id, subtotal, delivery_fee, total_price, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET subtotal = EXCLUDED.subtotal,
			delivery_fee = EXCLUDED.delivery_fee,
			total_price = EXCLUDED.total_price,
			updated_at = NOW()
		RETURNING id
	`, c.ID, c.UserID, c.Subtotal, c.DeliveryFee, c.TotalPrice).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("replace cart items: %w", err)
	}

	for pos, it := range c.Items {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO cart_items
				(cart_id, position, product_id, quantity, selected_color, selected_size, unit_price, line_subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c.ID, pos, it.ProductID, it.Quantity, it.SelectedColor, it.SelectedSize, it.UnitPrice, it.LineSubtotal)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}

	return nil
}

func (r *repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET subtotal = 0, delivery_fee = 0, total_price = 0, updated_at = NOW()
		WHERE id = $1
	`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCartNotFound
	}
	return nil
}
