package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// ProductRepository persists products. It trusts its input: callers pass a
// ProductInput produced by services.Normalize.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product with the given image reference (nil for none)
// and returns the new id.
func (r *ProductRepository) Create(ctx context.Context, in models.ProductInput, imageRef *string) (uint, error) {
	p, err := r.Insert(ctx, in, imageRef)
	return p.ID, err
}

// Insert is Create returning the stored row as gorm filled it in.
func (r *ProductRepository) Insert(ctx context.Context, in models.ProductInput, imageRef *string) (models.Product, error) {
	defer metrics.ObserveDBQuery("products.create", time.Now())

	p := models.Product{
		Name:        in.Name,
		Price:       in.Price,
		Image:       imageRef,
		Description: in.Description,
		Category:    in.Category,
	}
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Product{}, models.Persistence("products.create", err)
	}
	return p, nil
}

// Update overwrites name, price, description and category of product id and
// applies the image decision. KEEP leaves image out of the SET clause
// entirely; CLEAR writes NULL; REPLACE writes the new reference.
// It returns the number of matched rows; 0 means no such product.
func (r *ProductRepository) Update(ctx context.Context, id uint, in models.ProductInput, image models.ImageDecision) (int64, error) {
	defer metrics.ObserveDBQuery("products.update", time.Now())
	return update(r.db.WithContext(ctx), id, in, image)
}

func update(db *gorm.DB, id uint, in models.ProductInput, image models.ImageDecision) (int64, error) {
	set := map[string]interface{}{
		"name":        in.Name,
		"price":       in.Price,
		"description": in.Description,
		"category":    in.Category,
	}
	if !image.IsKeep() {
		set["image"] = image.Value()
	}

	res := db.Model(&models.Product{}).Where("id = ?", id).Updates(set)
	if res.Error != nil {
		return 0, models.Persistence("products.update", res.Error)
	}
	return res.RowsAffected, nil
}

// Revision is the outcome of Apply: the row before and after the update.
type Revision struct {
	Before models.Product
	After  models.Product
}

// Apply runs Update inside a transaction that locks the row first and reads
// it back last. Either the whole revision commits or nothing does, so an
// error always means the stored row is unchanged. Unknown ids yield
// models.ErrNotFound.
func (r *ProductRepository) Apply(ctx context.Context, id uint, in models.ProductInput, image models.ImageDecision) (Revision, error) {
	defer metrics.ObserveDBQuery("products.apply", time.Now())

	var rev Revision
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := findLocked(tx, id)
		if err != nil {
			return err
		}
		if _, err := update(tx, id, in, image); err != nil {
			return err
		}
		after, err := find(tx, id)
		if err != nil {
			return err
		}
		rev = Revision{Before: before, After: after}
		return nil
	})
	if err != nil {
		return Revision{}, err
	}
	return rev, nil
}

// Delete removes product id and returns the affected row count.
func (r *ProductRepository) Delete(ctx context.Context, id uint) (int64, error) {
	defer metrics.ObserveDBQuery("products.delete", time.Now())

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return 0, models.Persistence("products.delete", res.Error)
	}
	return res.RowsAffected, nil
}

// Remove deletes product id in a transaction and returns the row as it was.
func (r *ProductRepository) Remove(ctx context.Context, id uint) (models.Product, error) {
	defer metrics.ObserveDBQuery("products.delete", time.Now())

	var gone models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findLocked(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return models.Persistence("products.delete", err)
		}
		gone = p
		return nil
	})
	return gone, err
}

// CountByImage counts the products whose image is ref.
func (r *ProductRepository) CountByImage(ctx context.Context, ref string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("image = ?", ref).Count(&n).Error
	if err != nil {
		return 0, models.Persistence("products.count_by_image", err)
	}
	return n, nil
}

// findLocked reads the row FOR UPDATE where the dialect has row locks.
// SQLite and SQL Server serialise writers on their own.
func findLocked(tx *gorm.DB, id uint) (models.Product, error) {
	switch tx.Dialector.Name() {
	case "mysql", "postgres":
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return find(tx, id)
}

func find(db *gorm.DB, id uint) (models.Product, error) {
	var p models.Product
	err := db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, models.ErrNotFound
	}
	if err != nil {
		return p, models.Persistence("products.find", err)
	}
	return p, nil
}

// FindByID returns models.ErrNotFound when the product does not exist.
func (r *ProductRepository) FindByID(ctx context.Context, id uint) (models.Product, error) {
	defer metrics.ObserveDBQuery("products.find", time.Now())
	return find(r.db.WithContext(ctx), id)
}

// List returns every product, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	defer metrics.ObserveDBQuery("products.list", time.Now())

	var out []models.Product
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&out).Error
	if err != nil {
		return nil, models.Persistence("products.list", err)
	}
	return out, nil
}

// ListByCategory returns the products of one category, newest first.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	defer metrics.ObserveDBQuery("products.list", time.Now())

	var out []models.Product
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, models.Persistence("products.list_by_category", err)
	}
	return out, nil
}

// Related returns up to limit other products from the same category as id.
func (r *ProductRepository) Related(ctx context.Context, id uint, limit int) ([]models.Product, error) {
	defer metrics.ObserveDBQuery("products.related", time.Now())

	var out []models.Product
	sub := r.db.Model(&models.Product{}).Select("category").Where("id = ?", id)
	err := r.db.WithContext(ctx).
		Where("category = (?)", sub).
		Where("id <> ?", id).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, models.Persistence("products.related", err)
	}
	return out, nil
}

// Latest returns up to limit products other than exclude, newest first.
func (r *ProductRepository) Latest(ctx context.Context, exclude uint, limit int) ([]models.Product, error) {
	defer metrics.ObserveDBQuery("products.latest", time.Now())

	var out []models.Product
	err := r.db.WithContext(ctx).
		Where("id <> ?", exclude).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, models.Persistence("products.latest", err)
	}
	return out, nil
}

// Categories lists the distinct categories in use, alphabetically.
func (r *ProductRepository) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Distinct("category").Order("category").
		Pluck("category", &out).Error
	if err != nil {
		return nil, models.Persistence("products.categories", err)
	}
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, models.Persistence("products.count", err)
	}
	return n, nil
}
