package transport

import (
	"context"

	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) Initialize(ctx context.Context, in checkout.InitializeInput) (*payment.InitializeResult, error) {
	args := m.Called(ctx, in)
	if res := args.Get(0); res != nil {
		return res.(*payment.InitializeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCheckout) Verify(ctx context.Context, in checkout.VerifyInput) (*checkout.Result, error) {
	args := m.Called(ctx, in)
	if res := args.Get(0); res != nil {
		return res.(*checkout.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) cartResult(args mock.Arguments) (*cart.Cart, error) {
	if c := args.Get(0); c != nil {
		return c.(*cart.Cart), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID uint) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID))
}

func (m *MockCartService) AddItem(ctx context.Context, userID uint, in cart.AddItemInput) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, in))
}

func (m *MockCartService) UpdateItemQuantity(ctx context.Context, userID uint, in cart.UpdateItemInput) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, in))
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID uint, key cart.ItemKey) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, key))
}

func (m *MockCartService) ClearCart(ctx context.Context, userID uint) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID))
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID uint) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.([]order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, user auth.User, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, user, id)
	if res := args.Get(0); res != nil {
		return res.(*order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status order.OrderStatus) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	if res := args.Get(0); res != nil {
		return res.(*order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}
