package checkout

import (
	"context"
	"database/sql"

	"storefront-be/internal/cart"
	"storefront-be/internal/db"
	"storefront-be/internal/inventory"
	"storefront-be/internal/order"
	"storefront-be/internal/outbox"
	"storefront-be/internal/payment"
)

// Stores groups the repositories one reconciliation touches. Every field is
// bound to the same transaction inside UnitOfWork.Do.
type Stores struct {
	Carts     cart.Repository
	Payments  payment.Repository
	Orders    order.Repository
	Inventory inventory.Ledger
	Outbox    outbox.Repository
}

func StoresFor(conn db.DBTX) Stores {
	return Stores{
		Carts:     cart.NewRepository(conn),
		Payments:  payment.NewRepository(conn),
		Orders:    order.NewRepository(conn),
		Inventory: inventory.NewLedger(conn),
		Outbox:    outbox.NewRepository(conn),
	}
}

// UnitOfWork commits everything fn writes, or nothing if fn returns an error.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type sqlUnitOfWork struct {
	db *sql.DB
}

func NewSQLUnitOfWork(conn *sql.DB) UnitOfWork {
	return &sqlUnitOfWork{db: conn}
}

func (u *sqlUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return db.RunInTx(ctx, u.db, opts, func(tx *sql.Tx) error {
		return fn(ctx, StoresFor(tx))
	})
}
