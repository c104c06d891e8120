package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// AdminService holds user management rules for the admin panel.
type AdminService struct {
	users    *repositories.UserRepository
	products *ProductService
}

func NewAdminService(users *repositories.UserRepository, products *ProductService) *AdminService {
	return &AdminService{users: users, products: products}
}

// Dashboard is the admin landing page's counters.
type Dashboard struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalProducts int64 `json:"totalProducts"`
	AdminUsers    int64 `json:"adminUsers"`
	RegularUsers  int64 `json:"regularUsers"`
}

func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.TotalUsers, err = s.users.Count(ctx); err != nil {
		return d, err
	}
	if d.AdminUsers, err = s.users.CountByRole(ctx, models.RoleAdmin); err != nil {
		return d, err
	}
	d.RegularUsers = d.TotalUsers - d.AdminUsers
	if d.TotalProducts, err = s.products.Count(ctx); err != nil {
		return d, err
	}
	return d, nil
}

func (s *AdminService) Users(ctx context.Context) ([]models.User, error) {
	return s.users.All(ctx)
}

// ResetPassword sets a new password for any user.
func (s *AdminService) ResetPassword(ctx context.Context, id uint, password string) error {
	if len(password) < MinPasswordLen {
		return models.Invalid("password", "must be at least 6 characters")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, id, hash)
}

// ChangeRole updates a user's role. Admins cannot demote themselves and the
// last admin cannot be demoted (models.ErrConflict).
func (s *AdminService) ChangeRole(ctx context.Context, actorID, id uint, role string) error {
	if !models.ValidRole(role) {
		return models.Invalid("role", fmt.Sprintf("must be %q or %q", models.RoleUser, models.RoleAdmin))
	}
	if actorID == id && role != models.RoleAdmin {
		return fmt.Errorf("%w: you cannot remove your own admin role", models.ErrForbidden)
	}
	if err := s.users.SetRole(ctx, id, role); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("role changed", "actor_id", actorID, "user_id", id, "role", role)
	return nil
}

// DeleteUser removes a user and their cart. Admins cannot delete
// themselves and the last admin cannot be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return fmt.Errorf("%w: you cannot delete your own account", models.ErrForbidden)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("user deleted", "actor_id", actorID, "user_id", id)
	return nil
}

// Promote makes the user with email an admin. Used by the CLI.
func (s *AdminService) Promote(ctx context.Context, email string) (models.User, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return u, err
	}
	if err := s.users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return u, err
	}
	u.Role = models.RoleAdmin
	return u, nil
}
