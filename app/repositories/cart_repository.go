package repositories

import (
	"context"
	"iter"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// CartRepository stores one line per (user, product).
type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// AddItem inserts a line with quantity 1 or increments the existing one in a
// single upsert statement, so concurrent adds never lose an increment or
// create a duplicate line. A missing user or product yields
// models.ErrReference.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID uint) (models.AddResult, error) {
	defer metrics.ObserveDBQuery("cart.add", time.Now())

	var qty int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line := models.CartLine{UserID: userID, ProductID: productID, Quantity: 1}
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("quantity + ?", 1)}),
		}).Create(&line).Error
		if err != nil {
			return err
		}

		// The row is locked by the upsert until commit, so this reads our
		// own write.
		return tx.Model(&models.CartLine{}).
			Select("quantity").
			Where("user_id = ? AND product_id = ?", userID, productID).
			Row().Scan(&qty)
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, models.ErrReference
		}
		return 0, models.Persistence("cart.add", err)
	}

	if qty == 1 {
		return models.Inserted, nil
	}
	return models.Increased, nil
}

// RemoveItem deletes the whole line regardless of quantity.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID uint) (models.RemoveResult, error) {
	defer metrics.ObserveDBQuery("cart.remove", time.Now())

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return 0, models.Persistence("cart.remove", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NotInCart, nil
	}
	return models.Removed, nil
}

// Clear deletes every line of the user's cart and returns how many went.
func (r *CartRepository) Clear(ctx context.Context, userID uint) (int64, error) {
	defer metrics.ObserveDBQuery("cart.clear", time.Now())

	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartLine{})
	if res.Error != nil {
		return 0, models.Persistence("cart.clear", res.Error)
	}
	return res.RowsAffected, nil
}

// ListItems streams the user's lines joined with their products. Lines
// whose product no longer exists are skipped. Order is unspecified.
//
// Nothing is queried until the sequence is ranged over, and the database
// connection is held until the loop ends; do not issue other queries from
// inside the loop.
func (r *CartRepository) ListItems(ctx context.Context, userID uint) iter.Seq2[models.CartView, error] {
	return func(yield func(models.CartView, error) bool) {
		defer metrics.ObserveDBQuery("cart.list", time.Now())

		rows, err := r.db.WithContext(ctx).
			Table("cart").
			Select("products.id, products.name, products.price, products.image, " +
				"products.description, products.category, cart.quantity").
			Joins("INNER JOIN products ON products.id = cart.product_id").
			Where("cart.user_id = ?", userID).
			Rows()
		if err != nil {
			yield(models.CartView{}, models.Persistence("cart.list", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var v models.CartView
			if err := r.db.ScanRows(rows, &v); err != nil {
				yield(models.CartView{}, models.Persistence("cart.list", err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.CartView{}, models.Persistence("cart.list", err))
		}
	}
}

// Items collects ListItems into a slice.
func (r *CartRepository) Items(ctx context.Context, userID uint) ([]models.CartView, error) {
	out := []models.CartView{}
	for v, err := range r.ListItems(ctx, userID) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// CountLines returns the number of distinct lines in a user's cart.
func (r *CartRepository) CountLines(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CartLine{}).Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, models.Persistence("cart.count", err)
	}
	return n, nil
}
