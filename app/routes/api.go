// Package routes declares the storefront's HTTP API.
package routes

import (
	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/rbac"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

// API bundles what the route table needs.
type API struct {
	Env      string
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Admin    *controllers.AdminController

	Tokens middleware.TokenVerifier
	Roles  rbac.RoleLookup
	// AuthLimiter throttles login and registration. Optional.
	AuthLimiter *middleware.Limiter
}

func RegisterAPI(r *router.Router, a API) {
	authenticated := middleware.Authenticate(a.Tokens)
	adminOnly := rbac.HasRole(a.Roles, models.RoleAdmin)

	api := r.Group("/api")
	api.Get("/health", "health", ctx.Wrap(controllers.Health(a.Env)))

	var throttle []router.Middleware
	if a.AuthLimiter != nil {
		throttle = append(throttle, a.AuthLimiter.Middleware)
	}
	authGroup := api.Group("/auth", throttle...)
	authGroup.Post("/register", "auth.register", ctx.Wrap(a.Auth.Register))
	authGroup.Post("/login", "auth.login", ctx.Wrap(a.Auth.Login))
	authGroup.Get("/me", "auth.me", ctx.Wrap(a.Auth.Me), authenticated)

	products := api.Group("/products")
	products.Get("/", "products.index", ctx.Wrap(a.Products.Index))
	products.Get("/categories", "products.categories", ctx.Wrap(a.Products.Categories))
	products.Get("/{productId}", "products.show", ctx.Wrap(a.Products.Show))
	products.Get("/{productId}/recommendations", "products.recommendations", ctx.Wrap(a.Products.Recommendations))
	products.Post("/", "products.store", ctx.Wrap(a.Products.Store), authenticated, adminOnly)
	products.Post("/upload-image", "products.upload_image", ctx.Wrap(a.Products.UploadImage), authenticated, adminOnly)

	cart := api.Group("/cart", authenticated)
	cart.Get("/", "cart.index", ctx.Wrap(a.Cart.Index))
	cart.Post("/", "cart.add", ctx.Wrap(a.Cart.Add))
	cart.Delete("/", "cart.clear", ctx.Wrap(a.Cart.Clear))
	cart.Delete("/{productId}", "cart.remove", ctx.Wrap(a.Cart.Remove))

	admin := api.Group("/admin", authenticated, adminOnly)
	admin.Get("/dashboard", "admin.dashboard", ctx.Wrap(a.Admin.Dashboard))
	admin.Get("/users", "admin.users", ctx.Wrap(a.Admin.Users))
	admin.Put("/users/{userId}/password", "admin.users.password", ctx.Wrap(a.Admin.ResetPassword))
	admin.Put("/users/{userId}/role", "admin.users.role", ctx.Wrap(a.Admin.ChangeRole))
	admin.Delete("/users/{userId}", "admin.users.delete", ctx.Wrap(a.Admin.DeleteUser))
	admin.Get("/products", "admin.products", ctx.Wrap(a.Admin.Products))
	admin.Post("/products", "admin.products.store", ctx.Wrap(a.Admin.StoreProduct))
	admin.Put("/products/{productId}", "admin.products.update", ctx.Wrap(a.Admin.UpdateProduct))
	admin.Delete("/products/{productId}", "admin.products.delete", ctx.Wrap(a.Admin.DeleteProduct))
}
