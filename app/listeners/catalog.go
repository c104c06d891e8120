// Package listeners reacts to catalogue events.
package listeners

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// PatternDeleter is satisfied by *cache.Store.
type PatternDeleter interface {
	DeletePattern(ctx context.Context, pattern string) error
}

// RefDeleter is satisfied by *storage.Manager.
type RefDeleter interface {
	DeleteRef(ctx context.Context, ref string) error
}

// ImageUsage is satisfied by *repositories.ProductRepository.
type ImageUsage interface {
	CountByImage(ctx context.Context, ref string) (int64, error)
}

// Register subscribes the catalogue listeners. c may be nil; files is only
// subscribed together with usage, which guards shared references.
func Register(bus *event.Bus, c PatternDeleter, files RefDeleter, usage ImageUsage) {
	if c != nil {
		bus.Listen(services.EventProductChanged, forgetCatalog(c))
	}
	if files != nil && usage != nil {
		bus.Listen(services.EventImageReleased, deleteImage(files, usage))
	}
}

func forgetCatalog(c PatternDeleter) event.Handler {
	return func(ctx context.Context, _ interface{}) error {
		return c.DeletePattern(ctx, services.CatalogPattern)
	}
}

// deleteImage removes a released file unless another product still points
// at the same reference.
func deleteImage(files RefDeleter, usage ImageUsage) event.Handler {
	return func(ctx context.Context, payload interface{}) error {
		ev, ok := payload.(services.ImageReleased)
		if !ok {
			return fmt.Errorf("listeners: unexpected payload %T", payload)
		}
		n, err := usage.CountByImage(ctx, ev.Ref)
		if err != nil {
			return fmt.Errorf("check image %s: %w", ev.Ref, err)
		}
		if n > 0 {
			logger.WithCtx(ctx).Debug("released image still in use", "ref", ev.Ref, "products", n)
			return nil
		}
		if err := files.DeleteRef(ctx, ev.Ref); err != nil {
			return fmt.Errorf("delete image %s: %w", ev.Ref, err)
		}
		logger.WithCtx(ctx).Debug("released image deleted", "product_id", ev.ProductID, "ref", ev.Ref)
		return nil
	}
}
