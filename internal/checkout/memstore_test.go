package checkout

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/inventory"
	"storefront-be/internal/order"
	"storefront-be/internal/outbox"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memState is the whole database for engine tests.
type memState struct {
	carts    map[uint]cart.Cart
	payments map[string]payment.Payment
	orders   map[uuid.UUID]order.Order
	stock    map[uuid.UUID]int
	outbox   []outbox.Record
}

func (s memState) clone() memState {
	out := memState{
		carts:    make(map[uint]cart.Cart, len(s.carts)),
		payments: make(map[string]payment.Payment, len(s.payments)),
		orders:   make(map[uuid.UUID]order.Order, len(s.orders)),
		stock:    make(map[uuid.UUID]int, len(s.stock)),
		outbox:   slices.Clone(s.outbox),
	}
	for k, v := range s.carts {
		out.carts[k] = v.Clone()
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	for k, v := range s.orders {
		v.Items = slices.Clone(v.Items)
		out.orders[k] = v
	}
	for k, v := range s.stock {
		out.stock[k] = v
	}
	return out
}

// memUnitOfWork serializes transactions and restores the previous state when
// fn fails, which is what ReadCommitted plus row locks give the engine.
type memUnitOfWork struct {
	mu    sync.Mutex
	state memState
}

func newMemUnitOfWork() *memUnitOfWork {
	return &memUnitOfWork{state: memState{
		carts:    map[uint]cart.Cart{},
		payments: map[string]payment.Payment{},
		orders:   map[uuid.UUID]order.Order{},
		stock:    map[uuid.UUID]int{},
	}}
}

func (u *memUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	before := u.state.clone()
	st := &u.state
	err := fn(ctx, Stores{
		Carts:     memCarts{st},
		Payments:  memPayments{st},
		Orders:    memOrders{st},
		Inventory: memLedger{st},
		Outbox:    memOutbox{st},
	})
	if err != nil {
		u.state = before
	}
	return err
}

// snapshot returns a copy safe to inspect outside the lock.
func (u *memUnitOfWork) snapshot() memState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.clone()
}

func (u *memUnitOfWork) seedProduct(qty int) uuid.UUID {
	id := uuid.New()
	u.mu.Lock()
	u.state.stock[id] = qty
	u.mu.Unlock()
	return id
}

func (u *memUnitOfWork) seedCart(userID uint, fee int64, items ...cart.Item) cart.Cart {
	c := cart.Cart{ID: uuid.New(), UserID: userID, Items: []cart.Item{}}
	for _, it := range items {
		c.Add(it, fee)
	}
	u.mu.Lock()
	u.state.carts[userID] = c.Clone()
	u.mu.Unlock()
	return c
}

type memCarts struct{ s *memState }

func (m memCarts) GetByUser(_ context.Context, userID uint) (*cart.Cart, error) {
	c, ok := m.s.carts[userID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	out := c.Clone()
	return &out, nil
}

func (m memCarts) GetByUserForUpdate(ctx context.Context, userID uint) (*cart.Cart, error) {
	return m.GetByUser(ctx, userID)
}

func (m memCarts) EnsureForUpdate(ctx context.Context, userID uint) (*cart.Cart, error) {
	if _, ok := m.s.carts[userID]; !ok {
		m.s.carts[userID] = cart.Cart{ID: uuid.New(), UserID: userID, Items: []cart.Item{}}
	}
	return m.GetByUser(ctx, userID)
}

func (m memCarts) Save(_ context.Context, c *cart.Cart) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.s.carts[c.UserID] = c.Clone()
	return nil
}

func (m memCarts) Clear(_ context.Context, cartID uuid.UUID) error {
	for uid, c := range m.s.carts {
		if c.ID == cartID {
			c.Clear()
			m.s.carts[uid] = c
			return nil
		}
	}
	return cart.ErrCartNotFound
}

type memPayments struct{ s *memState }

func (m memPayments) Create(_ context.Context, p *payment.Payment) error {
	if _, ok := m.s.payments[p.Reference]; ok {
		return payment.ErrDuplicateReference
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.s.payments[p.Reference] = *p
	return nil
}

func (m memPayments) GetByReference(_ context.Context, reference string) (*payment.Payment, error) {
	p, ok := m.s.payments[reference]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return &p, nil
}

type memOrders struct{ s *memState }

func (m memOrders) Create(_ context.Context, o *order.Order) error {
	for _, existing := range m.s.orders {
		if existing.PaymentReference == o.PaymentReference {
			return order.ErrDuplicateOrder
		}
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	stored := *o
	stored.Items = slices.Clone(o.Items)
	m.s.orders[o.ID] = stored
	return nil
}

func (m memOrders) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := m.s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

func (m memOrders) GetByPaymentReference(ctx context.Context, reference string) (*order.Order, error) {
	for id, o := range m.s.orders {
		if o.PaymentReference == reference {
			return m.GetByID(ctx, id)
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m memOrders) ListByUser(_ context.Context, userID uint) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to order.OrderStatus) error {
	o, ok := m.s.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.OrderStatus != from {
		return order.ErrInvalidStatusTransition
	}
	o.OrderStatus = to
	m.s.orders[id] = o
	return nil
}

type memLedger struct{ s *memState }

func (m memLedger) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	for _, id := range inventory.SortedIDs(ids) {
		if q, ok := m.s.stock[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (m memLedger) TryDecrement(_ context.Context, productID uuid.UUID, amount int) error {
	q, ok := m.s.stock[productID]
	if !ok || q < amount {
		return fmt.Errorf("%w: product %s", inventory.ErrInsufficientStock, productID)
	}
	m.s.stock[productID] = q - amount
	return nil
}

type memOutbox struct{ s *memState }

func (m memOutbox) Insert(_ context.Context, rec outbox.Record) error {
	rec.ID = int64(len(m.s.outbox) + 1)
	m.s.outbox = append(m.s.outbox, rec)
	return nil
}

func (m memOutbox) FetchPending(_ context.Context, limit int) ([]outbox.Record, error) {
	var out []outbox.Record
	for _, r := range m.s.outbox {
		if r.SentAt == nil && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memOutbox) MarkSent(_ context.Context, id int64) error {
	now := time.Now()
	for i := range m.s.outbox {
		if m.s.outbox[i].ID == id {
			m.s.outbox[i].SentAt = &now
		}
	}
	return nil
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitializeTransaction(ctx context.Context, email string, amountMinor int64, callbackURL string) (*payment.InitializeResult, error) {
	args := m.Called(ctx, email, amountMinor, callbackURL)
	if res := args.Get(0); res != nil {
		return res.(*payment.InitializeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, reference string) (*payment.Verification, error) {
	args := m.Called(ctx, reference)
	if res := args.Get(0); res != nil {
		return res.(*payment.Verification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, reference string, amountMinor int64, note string) (*payment.Refund, error) {
	args := m.Called(ctx, reference, amountMinor, note)
	if res := args.Get(0); res != nil {
		return res.(*payment.Refund), args.Error(1)
	}
	return nil, args.Error(1)
}
