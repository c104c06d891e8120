package seeders

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

func init() {
	Register("admin user", seedAdmin)
}

// seedAdmin creates SEED_ADMIN_EMAIL as an admin unless that email exists.
func seedAdmin(ctx context.Context, db *gorm.DB) error {
	users := repositories.NewUserRepository(db)
	email := strings.ToLower(config.Get("SEED_ADMIN_EMAIL", "admin@example.com"))

	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(config.Get("SEED_ADMIN_PASSWORD", "admin123"))
	if err != nil {
		return err
	}
	return users.Create(ctx, &models.User{
		Username: config.Get("SEED_ADMIN_USERNAME", "admin"),
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	})
}
