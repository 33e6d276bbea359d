package order

import (
	"context"
	"testing"

	"storefront-be/internal/auth"
	"storefront-be/internal/cart"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetByPaymentReference(ctx context.Context, reference string) (*Order, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uint) ([]Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Order), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func TestService_GetOrder(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name    string
		user    auth.User
		wantErr error
	}{
		{"Owner", auth.User{ID: 1}, nil},
		{"OtherUser", auth.User{ID: 2}, ErrOrderNotFound},
		{"Admin", auth.User{ID: 99, Role: auth.RoleAdmin}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("GetByID", ctx, id).Return(&Order{ID: id, UserID: 1}, nil)

			o, err := NewService(repo).GetOrder(ctx, tt.user, id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, o)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, o.ID)
		})
	}

	t.Run("Missing", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(nil, ErrOrderNotFound)

		_, err := NewService(repo).GetOrder(ctx, auth.User{ID: 1}, id)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestService_ListOrders(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	want := []Order{{ID: uuid.New()}, {ID: uuid.New()}}
	repo.On("ListByUser", ctx, uint(3)).Return(want, nil)

	got, err := NewService(repo).ListOrders(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestService_UpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("ProcessingToShipped", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(&Order{ID: id, OrderStatus: StatusProcessing}, nil)
		repo.On("UpdateStatus", ctx, id, StatusProcessing, StatusShipped).Return(nil)

		o, err := NewService(repo).UpdateOrderStatus(ctx, id, StatusShipped)
		require.NoError(t, err)
		assert.Equal(t, StatusShipped, o.OrderStatus)
		repo.AssertExpectations(t)
	})

	t.Run("DeliveredIsTerminal", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(&Order{ID: id, OrderStatus: StatusDelivered}, nil)

		_, err := NewService(repo).UpdateOrderStatus(ctx, id, StatusCancelled)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		_, err := NewService(new(MockRepository)).UpdateOrderStatus(ctx, id, OrderStatus("Lost"))
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("ConcurrentChange", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(&Order{ID: id, OrderStatus: StatusProcessing}, nil)
		repo.On("UpdateStatus", ctx, id, StatusProcessing, StatusCancelled).Return(ErrInvalidStatusTransition)

		_, err := NewService(repo).UpdateOrderStatus(ctx, id, StatusCancelled)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}

func TestSnapshotItems_IndependentOfCart(t *testing.T) {
	c := cart.Cart{Items: []cart.Item{
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: 500},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: 300, SelectedColor: "red"},
	}}
	c.Recalculate(1000)

	items := SnapshotItems(c.Items)

	c.SetQuantity(c.Items[0].Key(), 9, 1000)
	c.Clear()

	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(1000), items[0].Subtotal)
	assert.Equal(t, "red", items[1].SelectedColor)
}

func TestOrderStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusProcessing.CanTransition(StatusShipped))
	assert.True(t, StatusProcessing.CanTransition(StatusCancelled))
	assert.True(t, StatusShipped.CanTransition(StatusDelivered))
	assert.False(t, StatusShipped.CanTransition(StatusProcessing))
	assert.False(t, StatusCancelled.CanTransition(StatusShipped))
}
