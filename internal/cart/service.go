package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TxFunc runs fn against a Repository bound to one transaction.
type TxFunc func(ctx context.Context, fn func(repo Repository) error) error

// SQLTx binds TxFunc to a Postgres connection pool.
func SQLTx(conn *sql.DB) TxFunc {
	return func(ctx context.Context, fn func(repo Repository) error) error {
		return db.RunInTx(ctx, conn, nil, func(tx *sql.Tx) error {
			return fn(NewRepository(tx))
		})
	}
}

type AddItemInput struct {
	ProductID     uuid.UUID `json:"productId" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
	SelectedColor string    `json:"selectedColor"`
	SelectedSize  string    `json:"selectedSize"`
}

type UpdateItemInput struct {
	ItemKey
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type Service interface {
	GetCart(ctx context.Context, userID uint) (*Cart, error)
	AddItem(ctx context.Context, userID uint, in AddItemInput) (*Cart, error)
	UpdateItemQuantity(ctx context.Context, userID uint, in UpdateItemInput) (*Cart, error)
	RemoveItem(ctx context.Context, userID uint, key ItemKey) (*Cart, error)
	ClearCart(ctx context.Context, userID uint) (*Cart, error)
}

type service struct {
	repo        Repository
	inTx        TxFunc
	products    product.Repository
	deliveryFee int64
}

func NewService(repo Repository, inTx TxFunc, products product.Repository, deliveryFee int64) Service {
	return &service{repo: repo, inTx: inTx, products: products, deliveryFee: deliveryFee}
}

// GetCart returns the caller's cart, or an empty one if none exists yet.
func (s *service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	c, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		empty := &Cart{UserID: userID, Items: []Item{}}
		return empty, nil
	}
	return c, err
}

func (s *service) AddItem(ctx context.Context, userID uint, in AddItemInput) (*Cart, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.HasColor(in.SelectedColor) || !p.HasSize(in.SelectedSize) {
		return nil, ErrInvalidVariant
	}

	var out *Cart
	err = s.inTx(ctx, func(repo Repository) error {
		c, err := repo.EnsureForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if c.QuantityOf(p.ID)+in.Quantity > p.Quantity {
			return fmt.Errorf("%w: %s has %d left", ErrNotEnoughStock, p.Name, p.Quantity)
		}

		c.Add(Item{
			ProductID:     p.ID,
			Quantity:      in.Quantity,
			SelectedColor: in.SelectedColor,
			SelectedSize:  in.SelectedSize,
			UnitPrice:     p.Price,
		}, s.deliveryFee)

		if err := repo.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Debug("cart item added",
		zap.String("product_id", p.ID.String()),
		zap.Int("quantity", in.Quantity),
		zap.Int64("total_price", out.TotalPrice),
	)
	return out, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID uint, in UpdateItemInput) (*Cart, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(c *Cart) error {
		current, ok := c.Find(in.ItemKey)
		if !ok {
			return ErrCartItemNotFound
		}
		if c.QuantityOf(p.ID)-current.Quantity+in.Quantity > p.Quantity {
			return fmt.Errorf("%w: %s has %d left", ErrNotEnoughStock, p.Name, p.Quantity)
		}
		c.SetQuantity(in.ItemKey, in.Quantity, s.deliveryFee)
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, userID uint, key ItemKey) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) error {
		if !c.Remove(key, s.deliveryFee) {
			return ErrCartItemNotFound
		}
		return nil
	})
}

func (s *service) ClearCart(ctx context.Context, userID uint) (*Cart, error) {
	var out *Cart
	err := s.inTx(ctx, func(repo Repository) error {
		c, err := repo.GetByUserForUpdate(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			out = &Cart{UserID: userID, Items: []Item{}}
			return nil
		}
		if err != nil {
			return err
		}
		if err := repo.Clear(ctx, c.ID); err != nil {
			return err
		}
		c.Clear()
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mutate applies fn to the locked cart and persists the result.
func (s *service) mutate(ctx context.Context, userID uint, fn func(c *Cart) error) (*Cart, error) {
	var out *Cart
	err := s.inTx(ctx, func(repo Repository) error {
		c, err := repo.GetByUserForUpdate(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			return ErrCartItemNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := repo.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
