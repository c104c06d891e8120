package services

import (
	"context"
	"iter"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

type CartService struct {
	cart *repositories.CartRepository
}

func NewCartService(cart *repositories.CartRepository) *CartService {
	return &CartService{cart: cart}
}

// CartSummary is the cart as the checkout page shows it.
type CartSummary struct {
	Items     []models.CartView `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

func checkIDs(userID, productID uint) error {
	if userID == 0 {
		return models.Invalid("user_id", "must be a positive integer")
	}
	if productID == 0 {
		return models.Invalid("product_id", "must be a positive integer")
	}
	return nil
}

// AddItem puts one more unit of productID in the user's cart.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint) (models.AddResult, error) {
	if err := checkIDs(userID, productID); err != nil {
		return 0, err
	}
	res, err := s.cart.AddItem(ctx, userID, productID)
	if err != nil {
		return 0, err
	}
	metrics.CartMutations.WithLabelValues(res.String()).Inc()
	logger.WithCtx(ctx).Debug("cart add", "user_id", userID, "product_id", productID, "result", res.String())
	return res, nil
}

// RemoveItem drops the whole line for productID.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (models.RemoveResult, error) {
	if err := checkIDs(userID, productID); err != nil {
		return 0, err
	}
	res, err := s.cart.RemoveItem(ctx, userID, productID)
	if err != nil {
		return 0, err
	}
	metrics.CartMutations.WithLabelValues(res.String()).Inc()
	return res, nil
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context, userID uint) error {
	if userID == 0 {
		return models.Invalid("user_id", "must be a positive integer")
	}
	n, err := s.cart.Clear(ctx, userID)
	if err != nil {
		return err
	}
	metrics.CartMutations.WithLabelValues("cleared").Inc()
	logger.WithCtx(ctx).Debug("cart cleared", "user_id", userID, "lines", n)
	return nil
}

// ListItems streams the user's cart lazily.
func (s *CartService) ListItems(ctx context.Context, userID uint) iter.Seq2[models.CartView, error] {
	return s.cart.ListItems(ctx, userID)
}

// Summary collects the cart with item count and subtotal.
func (s *CartService) Summary(ctx context.Context, userID uint) (CartSummary, error) {
	sum := CartSummary{Items: []models.CartView{}, Subtotal: decimal.Zero}
	if userID == 0 {
		return sum, models.Invalid("user_id", "must be a positive integer")
	}
	for v, err := range s.cart.ListItems(ctx, userID) {
		if err != nil {
			return CartSummary{}, err
		}
		sum.Items = append(sum.Items, v)
		sum.ItemCount += v.Quantity
		sum.Subtotal = sum.Subtotal.Add(v.Price.Mul(decimal.NewFromInt(int64(v.Quantity))))
	}
	return sum, nil
}
