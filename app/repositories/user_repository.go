package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) first(ctx context.Context, op string, query string, arg interface{}) (models.User, error) {
	defer metrics.ObserveDBQuery(op, time.Now())

	var u models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u, models.ErrNotFound
	}
	if err != nil {
		return u, models.Persistence(op, err)
	}
	return u, nil
}

// FindByEmail looks up a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.first(ctx, "users.find_by_email", "email = ?", email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.first(ctx, "users.find_by_username", "username = ?", username)
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	return r.first(ctx, "users.find", "id = ?", id)
}

// RoleOf implements rbac.RoleLookup.
func (r *UserRepository) RoleOf(ctx context.Context, id uint) (string, bool, error) {
	u, err := r.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return u.Role, true, nil
}

// Create persists a new user. A taken username or email yields
// models.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	defer metrics.ObserveDBQuery("users.create", time.Now())

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("%w: username or email already taken", models.ErrConflict)
		}
		return models.Persistence("users.create", err)
	}
	return nil
}

// All returns every user, newest first.
func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		return nil, models.Persistence("users.all", err)
	}
	return users, nil
}

// SetRole changes a user's role. When the change would leave no admin it
// fails with models.ErrConflict; the check and the write share one
// transaction.
func (r *UserRepository) SetRole(ctx context.Context, id uint, role string) error {
	defer metrics.ObserveDBQuery("users.set_role", time.Now())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Where("id = ?", id).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return models.Persistence("users.set_role", err)
		}
		if u.Role == models.RoleAdmin && role != models.RoleAdmin {
			if err := lastAdminGuard(tx); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("role", role).Error; err != nil {
			return models.Persistence("users.set_role", err)
		}
		return nil
	})
}

// Delete removes a user and, through the foreign key, their cart. Deleting
// the last admin fails with models.ErrConflict.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	defer metrics.ObserveDBQuery("users.delete", time.Now())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Where("id = ?", id).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return models.Persistence("users.delete", err)
		}
		if u.Role == models.RoleAdmin {
			if err := lastAdminGuard(tx); err != nil {
				return err
			}
		}
		// Drop cart lines explicitly too: not every driver enforces the FK.
		if err := tx.Where("user_id = ?", id).Delete(&models.CartLine{}).Error; err != nil {
			return models.Persistence("users.delete", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.User{}).Error; err != nil {
			return models.Persistence("users.delete", err)
		}
		return nil
	})
}

func lastAdminGuard(tx *gorm.DB) error {
	var admins int64
	if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return models.Persistence("users.count_admins", err)
	}
	if admins <= 1 {
		return fmt.Errorf("%w: cannot remove the last admin", models.ErrConflict)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, models.Persistence("users.count", err)
	}
	return n, nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, models.Persistence("users.count_by_role", err)
	}
	return n, nil
}

// SetPassword stores a new bcrypt hash.
func (r *UserRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	defer metrics.ObserveDBQuery("users.set_password", time.Now())

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return models.Persistence("users.set_password", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
