package order

import (
	"context"
	"errors"
	"fmt"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	ListOrders(ctx context.Context, userID uint) ([]Order, error)
	GetOrder(ctx context.Context, user auth.User, orderID uuid.UUID) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) (*Order, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListOrders(ctx context.Context, userID uint) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetOrder hides other users' orders behind ErrOrderNotFound. Admins see all.
func (s *service) GetOrder(ctx context.Context, user auth.User, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() && o.UserID != user.ID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) (*Order, error) {
	switch status {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.OrderStatus.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.OrderStatus, status)
	}

	if err := s.repo.UpdateStatus(ctx, orderID, o.OrderStatus, status); err != nil {
		if !errors.Is(err, ErrInvalidStatusTransition) {
			logger.FromCtx(ctx).Error("failed to update order status",
				zap.String("order_id", orderID.String()), zap.Error(err))
		}
		return nil, err
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(o.OrderStatus)),
		zap.String("to", string(status)),
	)

	o.OrderStatus = status
	return o, nil
}
