// Package checkout turns a verified gateway payment into a payment record,
// an order, stock decrements and a cleared cart, committed together.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/inventory"
	"storefront-be/internal/lock"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/outbox"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultLockTTL = 30 * time.Second

// errNotRecorded means no payment exists yet for a reference.
var errNotRecorded = errors.New("reference not recorded")

type Options struct {
	CallbackURL string
	Locker      lock.Locker
	LockTTL     time.Duration
	Metrics     *metrics.CheckoutMetrics
}

type Engine struct {
	gateway     payment.Gateway
	uow         UnitOfWork
	locker      lock.Locker
	lockTTL     time.Duration
	metrics     *metrics.CheckoutMetrics
	callbackURL string
	now         func() time.Time
}

func NewEngine(gateway payment.Gateway, uow UnitOfWork, opts Options) *Engine {
	e := &Engine{
		gateway:     gateway,
		uow:         uow,
		locker:      opts.Locker,
		lockTTL:     opts.LockTTL,
		metrics:     opts.Metrics,
		callbackURL: opts.CallbackURL,
		now:         time.Now,
	}
	if e.locker == nil {
		e.locker = lock.NoopLocker{}
	}
	if e.lockTTL <= 0 {
		e.lockTTL = defaultLockTTL
	}
	return e
}

type InitializeInput struct {
	UserID uint
	Email  string
	// Amount is the cart total in whole major units.
	Amount int64
}

// Initialize starts a gateway transaction for the caller's cart.
func (e *Engine) Initialize(ctx context.Context, in InitializeInput) (*payment.InitializeResult, error) {
	if in.Amount <= 0 || in.Amount > payment.MaxMajorAmount {
		return nil, ErrInvalidAmount
	}

	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		c, err := s.Carts.GetByUser(ctx, in.UserID)
		if errors.Is(err, cart.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return ErrEmptyCart
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, err := e.gateway.InitializeTransaction(ctx, in.Email, payment.ToMinor(in.Amount), e.callbackURL)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("checkout initialized",
		zap.String("reference", res.Reference),
		zap.Int64("amount", in.Amount),
	)
	return res, nil
}

type VerifyInput struct {
	UserID    uint
	Email     string
	Reference string
	// ClaimedTotal is the total the client expects to have paid, in whole
	// major units.
	ClaimedTotal int64
	// ShippingAddress may be nil when replaying an already recorded
	// reference; a fresh reconciliation requires it.
	ShippingAddress *order.ShippingAddress
}

type Result struct {
	Order    *order.Order     `json:"order"`
	Payment  *payment.Payment `json:"payment"`
	Cart     *cart.Cart       `json:"cart"`
	Replayed bool             `json:"-"`
}

// Verify reconciles one gateway reference. Calling it again for a reference
// that already committed returns the recorded result.
func (e *Engine) Verify(ctx context.Context, in VerifyInput) (*Result, error) {
	timer := metrics.StartTimer()
	res, err := e.verify(ctx, in)
	e.metrics.ObserveVerify(outcome(res, err), timer.Duration())
	return res, err
}

func (e *Engine) verify(ctx context.Context, in VerifyInput) (*Result, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	if in.Reference == "" {
		return nil, ErrInvalidReference
	}
	if in.ClaimedTotal <= 0 || in.ClaimedTotal > payment.MaxMajorAmount {
		return nil, ErrInvalidAmount
	}

	log := logger.FromCtx(ctx).With(zap.String("reference", in.Reference))

	release, err := e.locker.Acquire(ctx, "checkout:verify:"+in.Reference, e.lockTTL)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		return nil, err
	case err != nil:
		log.Warn("verify lock unavailable, continuing without it", zap.Error(err))
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release verify lock", zap.Error(err))
			}
		}()
	}

	res, err := e.replay(ctx, in)
	if err == nil {
		log.Info("verify replayed recorded reference", zap.String("order_id", res.Order.ID.String()))
		return res, nil
	}
	if !errors.Is(err, errNotRecorded) {
		return nil, err
	}

	if in.ShippingAddress == nil {
		return nil, ErrShippingAddressRequired
	}

	v, err := e.gateway.VerifyTransaction(ctx, in.Reference)
	if err != nil {
		log.Info("gateway verification rejected", zap.Error(err))
		return nil, err
	}
	if v.Reference != "" && v.Reference != in.Reference {
		return nil, fmt.Errorf("%w: gateway returned reference %q", payment.ErrVerificationFailed, v.Reference)
	}
	if in.Email != "" && v.CustomerEmail != "" && !strings.EqualFold(in.Email, v.CustomerEmail) {
		return nil, ErrReferenceOwnership
	}

	log.Debug("gateway verified payment",
		zap.Int64("paid_minor", v.AmountPaidMinor),
		zap.String("channel", v.Channel),
	)

	// Money has moved; run to commit or rollback regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	res, err = e.reconcile(ctx, in, v)
	if errors.Is(err, payment.ErrDuplicateReference) || errors.Is(err, order.ErrDuplicateOrder) {
		log.Info("reference committed concurrently, replaying")
		return e.replay(ctx, in)
	}
	if errors.Is(err, inventory.ErrInsufficientStock) {
		e.recordRefunded(ctx, in, v)
	}
	// Stock shortfalls and refund failures are logged where they happen.
	if err != nil && !errors.Is(err, inventory.ErrInsufficientStock) && !errors.Is(err, payment.ErrRefundFailed) {
		log.Error("payment verified but reconciliation failed",
			zap.Bool("operator_action_required", true),
			zap.Int64("paid_minor", v.AmountPaidMinor),
			zap.Error(err),
		)
	}
	return res, err
}

// replay returns the recorded outcome for a reference, or errNotRecorded.
func (e *Engine) replay(ctx context.Context, in VerifyInput) (*Result, error) {
	var res *Result
	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		p, err := s.Payments.GetByReference(ctx, in.Reference)
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return errNotRecorded
		}
		if err != nil {
			return err
		}
		if p.UserID != in.UserID {
			return ErrReferenceOwnership
		}
		if p.Status == payment.StatusFailed {
			return fmt.Errorf("%w: reference %s was refunded", inventory.ErrInsufficientStock, in.Reference)
		}

		o, err := s.Orders.GetByPaymentReference(ctx, in.Reference)
		if err != nil {
			return fmt.Errorf("payment %s recorded without order: %w", in.Reference, err)
		}

		c, err := s.Carts.GetByUser(ctx, in.UserID)
		if errors.Is(err, cart.ErrCartNotFound) {
			c, err = &cart.Cart{UserID: in.UserID, Items: []cart.Item{}}, nil
		}
		if err != nil {
			return err
		}

		res = &Result{Order: o, Payment: p, Cart: c, Replayed: true}
		return nil
	})
	return res, err
}

// recordRefunded stores a refunded reference as a Failed payment outside the
// rolled-back checkout, so replay rejects it instead of reconciling again.
func (e *Engine) recordRefunded(ctx context.Context, in VerifyInput, v *payment.Verification) {
	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		return s.Payments.Create(ctx, &payment.Payment{
			UserID:        in.UserID,
			AmountMinor:   v.AmountPaidMinor,
			Reference:     in.Reference,
			TransactionID: v.TransactionID,
			PaymentMethod: v.Channel,
			Status:        payment.StatusFailed,
		})
	})
	if err != nil && !errors.Is(err, payment.ErrDuplicateReference) {
		logger.FromCtx(ctx).Error("failed to record refunded reference",
			zap.String("reference", in.Reference),
			zap.Bool("operator_action_required", true),
			zap.Error(err),
		)
	}
}

func (e *Engine) reconcile(ctx context.Context, in VerifyInput, v *payment.Verification) (*Result, error) {
	log := logger.FromCtx(ctx).With(zap.String("reference", in.Reference))
	status := payment.Classify(v.AmountPaidMinor, in.ClaimedTotal)

	var res *Result
	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		c, err := s.Carts.GetByUserForUpdate(ctx, in.UserID)
		if err != nil && !errors.Is(err, cart.ErrCartNotFound) {
			return err
		}

		// A concurrent verify may have committed while we waited on the cart lock.
		if _, perr := s.Payments.GetByReference(ctx, in.Reference); perr == nil {
			return payment.ErrDuplicateReference
		} else if !errors.Is(perr, payment.ErrPaymentNotFound) {
			return perr
		}

		if c == nil || c.IsEmpty() {
			return ErrEmptyCart
		}

		p := &payment.Payment{
			UserID:        in.UserID,
			AmountMinor:   v.AmountPaidMinor,
			Reference:     in.Reference,
			TransactionID: v.TransactionID,
			PaymentMethod: v.Channel,
			Status:        status,
		}
		if err := s.Payments.Create(ctx, p); err != nil {
			return err
		}
		log.Debug("payment recorded", zap.String("payment_status", string(status)))

		o := &order.Order{
			UserID:           in.UserID,
			Items:            order.SnapshotItems(c.Items),
			ShippingAddress:  *in.ShippingAddress,
			TotalAmount:      in.ClaimedTotal,
			PaymentStatus:    status,
			PaymentReference: in.Reference,
			PaymentID:        p.ID,
			OrderStatus:      order.StatusProcessing,
		}
		if err := s.Orders.Create(ctx, o); err != nil {
			return err
		}
		log.Debug("order recorded", zap.String("order_id", o.ID.String()))

		if err := e.decrementStock(ctx, s, c, in.Reference, v.AmountPaidMinor); err != nil {
			return err
		}

		if err := s.Carts.Clear(ctx, c.ID); err != nil {
			return err
		}
		c.Clear()

		rec, err := outbox.NewRecord(EventOrderConfirmed, o.ID.String(), newOrderConfirmed(o, e.now()))
		if err != nil {
			return err
		}
		if err := s.Outbox.Insert(ctx, rec); err != nil {
			return err
		}

		res = &Result{Order: o, Payment: p, Cart: c}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("checkout reconciled",
		zap.String("order_id", res.Order.ID.String()),
		zap.String("payment_status", string(status)),
		zap.Int64("total_amount", in.ClaimedTotal),
	)
	return res, nil
}

// decrementStock locks every product in the cart in id order, then
// decrements line by line in cart order. The first shortfall refunds the
// payment and aborts.
func (e *Engine) decrementStock(ctx context.Context, s Stores, c *cart.Cart, reference string, paidMinor int64) error {
	ids := make([]uuid.UUID, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}

	available, err := s.Inventory.LockProducts(ctx, ids)
	if err != nil {
		return err
	}

	for _, line := range c.Items {
		err := s.Inventory.TryDecrement(ctx, line.ProductID, line.Quantity)
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return e.refundShortfall(ctx, reference, paidMinor, line, available[line.ProductID])
		}
		if err != nil {
			return err
		}
		available[line.ProductID] -= line.Quantity
	}
	return nil
}

func (e *Engine) refundShortfall(ctx context.Context, reference string, paidMinor int64, line cart.Item, available int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("reference", reference),
		zap.String("product_id", line.ProductID.String()),
		zap.Int("requested", line.Quantity),
		zap.Int("available", available),
		zap.Int64("refund_minor", paidMinor),
		zap.Bool("operator_action_required", true),
	)

	stockErr := fmt.Errorf("%w: product %s", inventory.ErrInsufficientStock, line.ProductID)

	note := fmt.Sprintf("insufficient stock for product %s", line.ProductID)
	_, err := e.gateway.Refund(ctx, reference, paidMinor, note)
	e.metrics.ObserveRefund(err == nil)
	if err != nil {
		if !errors.Is(err, payment.ErrRefundFailed) {
			err = fmt.Errorf("%w: %v", payment.ErrRefundFailed, err)
		}
		log.Error("refund failed after stock shortfall; customer charged without order", zap.Error(err))
		return fmt.Errorf("%w (product %s out of stock)", err, line.ProductID)
	}

	log.Error("checkout aborted on stock shortfall; payment refunded")
	return stockErr
}

func outcome(res *Result, err error) string {
	switch {
	case err == nil && res.Replayed:
		return metrics.OutcomeReplayed
	case err == nil && res.Payment.Status == payment.StatusPending:
		return metrics.OutcomePending
	case err == nil:
		return metrics.OutcomePaid
	case errors.Is(err, payment.ErrRefundFailed):
		return metrics.OutcomeRefundFailed
	case errors.Is(err, inventory.ErrInsufficientStock):
		return metrics.OutcomeInsufficientStock
	case errors.Is(err, payment.ErrVerificationFailed):
		return metrics.OutcomeVerificationFail
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return metrics.OutcomeGatewayDown
	case errors.Is(err, ErrEmptyCart):
		return metrics.OutcomeEmptyCart
	default:
		return metrics.OutcomeError
	}
}
