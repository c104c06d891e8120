package services

import (
	"context"
	"strings"
	"time"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

const (
	catalogKeyspace    = "catalog"
	catalogTTL         = 5 * time.Minute
	recommendationSize = 4
)

// CatalogPattern matches every cached catalogue key.
const CatalogPattern = catalogKeyspace + ":*"

// ProductService validates product writes, keeps the catalogue cache honest
// and announces images that are no longer used.
type ProductService struct {
	products *repositories.ProductRepository
	bus      *event.Bus
	cache    *cache.Store
}

// NewProductService wires the service. cache may be nil.
func NewProductService(products *repositories.ProductRepository, bus *event.Bus, c *cache.Store) *ProductService {
	return &ProductService{products: products, bus: bus, cache: c}
}

// Create normalizes raw and inserts it with imageRef (nil for none). An
// error means nothing was stored.
func (s *ProductService) Create(ctx context.Context, raw ProductFields, imageRef *string) (models.Product, error) {
	in, err := Normalize(raw)
	if err != nil {
		return models.Product{}, err
	}

	p, err := s.products.Insert(ctx, in, imageRef)
	if err != nil {
		return models.Product{}, err
	}

	image := "none"
	if imageRef != nil {
		image = "set"
	}
	metrics.ProductWrites.WithLabelValues("create", image).Inc()
	s.bus.Fire(ctx, EventProductChanged, ProductChanged{ProductID: p.ID, Op: "create"})
	return p, nil
}

// Update overwrites the product's fields and applies the image decision.
// An unknown id yields models.ErrNotFound. An error means the stored row is
// unchanged.
func (s *ProductService) Update(ctx context.Context, id uint, raw ProductFields, image models.ImageDecision) (models.Product, error) {
	in, err := Normalize(raw)
	if err != nil {
		return models.Product{}, err
	}

	// The previous image is read under the row lock, so two racing updates
	// cannot both release the same file.
	rev, err := s.products.Apply(ctx, id, in, image)
	if err != nil {
		return models.Product{}, err
	}

	metrics.ProductWrites.WithLabelValues("update", image.String()).Inc()
	s.bus.Fire(ctx, EventProductChanged, ProductChanged{ProductID: id, Op: "update"})
	if old := rev.Before.Image; old != nil && (rev.After.Image == nil || *rev.After.Image != *old) {
		s.bus.FireAsync(ctx, EventImageReleased, ImageReleased{ProductID: id, Ref: *old})
	}
	return rev.After, nil
}

// Delete removes the product. Cart lines go with it through the foreign key.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	gone, err := s.products.Remove(ctx, id)
	if err != nil {
		return err
	}

	metrics.ProductWrites.WithLabelValues("delete", "none").Inc()
	s.bus.Fire(ctx, EventProductChanged, ProductChanged{ProductID: id, Op: "delete"})
	if gone.Image != nil {
		s.bus.FireAsync(ctx, EventImageReleased, ImageReleased{ProductID: id, Ref: *gone.Image})
	}
	return nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (models.Product, error) {
	return s.products.FindByID(ctx, id)
}

// List returns the catalogue, optionally filtered by category. "" and "all"
// mean no filter. Results are cached until the next product write.
func (s *ProductService) List(ctx context.Context, category string) ([]models.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return cache.Remember(ctx, s.cache, catalogKeyspace, catalogKeyspace+":list:all", catalogTTL,
			func(ctx context.Context) ([]models.Product, error) {
				return s.products.List(ctx)
			})
	}
	return cache.Remember(ctx, s.cache, catalogKeyspace, catalogKeyspace+":list:"+category, catalogTTL,
		func(ctx context.Context) ([]models.Product, error) {
			return s.products.ListByCategory(ctx, category)
		})
}

// Categories lists the categories currently in use.
func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	return cache.Remember(ctx, s.cache, catalogKeyspace, catalogKeyspace+":categories", catalogTTL,
		s.products.Categories)
}

// Recommendations returns up to four products from the same category, or
// the newest other products when the category has nothing else.
func (s *ProductService) Recommendations(ctx context.Context, id uint) ([]models.Product, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, err
	}
	related, err := s.products.Related(ctx, id, recommendationSize)
	if err != nil {
		return nil, err
	}
	if len(related) > 0 {
		return related, nil
	}
	return s.products.Latest(ctx, id, recommendationSize)
}

// Count is used by the dashboard.
func (s *ProductService) Count(ctx context.Context) (int64, error) {
	return s.products.Count(ctx)
}
