// Package app wires the storefront together: configuration, logging, the
// database pool, cache, image storage, the event bus and every service.
// Commands build one App, use it, and Close it.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/app/listeners"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

const cachePrefix = "storefront:"

type App struct {
	Env   string
	DB    *gorm.DB
	Cache *cache.Store // nil without Redis
	Files *storage.Manager
	Bus   *event.Bus

	Tokens *auth.Issuer
	Users  *repositories.UserRepository

	Products *services.ProductService
	Cart     *services.CartService
	Auth     *services.AuthService
	Admin    *services.AdminService
	Images   *services.ImageService

	mongo *logger.MongoHandler
}

// Boot loads configuration and connects everything. Redis and the Mongo log
// sink are optional: failures are logged and the app runs without them.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{Env: config.AppEnv(), Bus: event.NewBus()}
	a.setupLogger(ctx)

	db, err := database.Open(ctx, config.DatabaseDriver(), config.DatabaseDSN(), database.Options{})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = db

	if a.Cache, err = cache.Connect(ctx, config.RedisAddr(), config.RedisPassword(), cachePrefix); err != nil {
		logger.Warn("catalogue cache disabled", "error", err)
	}

	if a.Files, err = storage.NewManager(ctx, storage.FromConfig()); err != nil {
		a.Close()
		return nil, err
	}

	if a.Tokens, err = auth.NewIssuer(config.JWTSecret(), auth.DefaultTTL); err != nil {
		a.Close()
		return nil, err
	}

	a.wire()
	return a, nil
}

// wire builds repositories, services and listeners on top of the connections.
func (a *App) wire() {
	a.Users = repositories.NewUserRepository(a.DB)
	products := repositories.NewProductRepository(a.DB)
	cart := repositories.NewCartRepository(a.DB)

	a.Products = services.NewProductService(products, a.Bus, a.Cache)
	a.Cart = services.NewCartService(cart)
	a.Auth = services.NewAuthService(a.Users, a.Tokens)
	a.Admin = services.NewAdminService(a.Users, a.Products)
	a.Images = services.NewImageService(a.Files, config.MaxUploadBytes())

	var purge listeners.PatternDeleter
	if a.Cache != nil {
		purge = a.Cache
	}
	listeners.Register(a.Bus, purge, a.Files, products)
}

func (a *App) setupLogger(ctx context.Context) {
	uri := config.LogMongoURI()
	if uri == "" {
		logger.Setup(a.Env)
		return
	}
	h, err := logger.NewMongoHandler(ctx, uri, config.Get("LOG_MONGO_DB", "storefront"), config.Get("LOG_MONGO_COLLECTION", "logs"))
	if err != nil {
		logger.Setup(a.Env)
		logger.Warn("mongo log sink disabled", "error", err)
		return
	}
	a.mongo = h
	logger.Setup(a.Env, h)
}

// Controllers builds the HTTP handlers.
func (a *App) Controllers() (*controllers.AuthController, *controllers.ProductController, *controllers.CartController, *controllers.AdminController) {
	return controllers.NewAuthController(a.Auth),
		controllers.NewProductController(a.Products, a.Images),
		controllers.NewCartController(a.Cart),
		controllers.NewAdminController(a.Admin, a.Products, a.Images)
}

// Close waits for background listeners, then releases connections in
// reverse order. Safe on a partially booted App.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Wait()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DB != nil {
		_ = database.Close(a.DB)
	}
	if a.mongo != nil {
		a.mongo.Close()
	}
}
