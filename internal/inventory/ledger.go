// Package inventory guards per-product stock. All writes go through a
// conditional decrement so quantity never drops below zero.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"storefront-be/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type Ledger interface {
	// LockProducts row-locks the given products in ascending id order and
	// returns their current quantities. Unknown ids are absent from the map.
	LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	// TryDecrement removes amount units, or returns ErrInsufficientStock
	// leaving the row untouched.
	TryDecrement(ctx context.Context, productID uuid.UUID, amount int) error
}

type ledger struct {
	db db.DBTX
}

func NewLedger(conn db.DBTX) Ledger {
	return &ledger{db: conn}
}

// SortedIDs returns a de-duplicated ascending copy of ids.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return slices.Compact(out)
}

func (l *ledger) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	sorted := SortedIDs(ids)
	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = id.String()
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, quantity
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	stock := make(map[uuid.UUID]int, len(sorted))
	for rows.Next() {
		var (
			id  uuid.UUID
			qty int
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scan product stock: %w", err)
		}
		stock[id] = qty
	}
	return stock, rows.Err()
}

func (l *ledger) TryDecrement(ctx context.Context, productID uuid.UUID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("decrement %s: non-positive amount %d", productID, amount)
	}

	res, err := l.db.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1
		WHERE id = $2 AND quantity >= $1
	`, amount, productID)
	if err != nil {
		return fmt.Errorf("decrement %s: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement %s: %w", productID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
	}
	return nil
}
