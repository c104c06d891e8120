package seeders

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
)

func init() {
	Register("sample products", seedProducts)
}

func text(s string) *string { return &s }

var sampleProducts = []services.ProductFields{
	{Name: "Canvas Tote Bag", Price: "19.99", Description: text("Roomy everyday tote."), Category: text("bags")},
	{Name: "Leather Backpack", Price: "89.00", Description: text("Fits a 15-inch laptop."), Category: text("bags")},
	{Name: "Ceramic Mug", Price: "12.50", Category: text("kitchen")},
	{Name: "Cast Iron Skillet", Price: "39.95", Description: text("Pre-seasoned, 10 inch."), Category: text("kitchen")},
	{Name: "Cotton T-Shirt", Price: "15.00", Category: text("clothing")},
	{Name: "Gift Card", Price: "25.00"},
}

// seedProducts only runs on an empty catalogue.
func seedProducts(ctx context.Context, db *gorm.DB) error {
	products := repositories.NewProductRepository(db)

	n, err := products.Count(ctx)
	if err != nil || n > 0 {
		return err
	}

	for _, raw := range sampleProducts {
		in, err := services.Normalize(raw)
		if err != nil {
			return err
		}
		if _, err := products.Create(ctx, in, nil); err != nil {
			return err
		}
	}
	return nil
}
