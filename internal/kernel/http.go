// Package kernel builds the storefront's HTTP handler: the global
// middleware stack, the API routes and the operational endpoints.
package kernel

import (
	"net/http"
	"strings"
	"time"

	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/app/schema"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/internal/app"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/graphql"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/reqid"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/router"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// Login and registration attempts allowed per client per window.
const (
	authAttempts = 20
	authWindow   = time.Minute
)

type HTTPKernel struct {
	router  *router.Router
	limiter *middleware.Limiter
}

// NewHTTPKernel registers every route against a. Call Stop when done.
func NewHTTPKernel(a *app.App) (*HTTPKernel, error) {
	r := router.New()

	// Outermost first: metrics see total latency, recovery sits outside
	// everything that might panic, and the logger needs the request id.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.FrontendOrigins()...)))

	k := &HTTPKernel{router: r, limiter: middleware.NewLimiter(authAttempts, authWindow)}

	authC, productC, cartC, adminC := a.Controllers()
	routes.RegisterAPI(r, routes.API{
		Env:         a.Env,
		Auth:        authC,
		Products:    productC,
		Cart:        cartC,
		Admin:       adminC,
		Tokens:      a.Tokens,
		Roles:       a.Users,
		AuthLimiter: k.limiter,
	})

	catalog, err := schema.New(a.Products)
	if err != nil {
		k.Stop()
		return nil, err
	}
	r.Mount("/graphql", graphql.Handler(catalog))
	r.Mount("/metrics", metrics.Handler())

	notFound := ctx.Wrap(controllers.APINotFound)

	// Local uploads are served by the app itself; directory listings are not.
	if disk, ok := a.Files.Disk().(*storage.LocalDisk); ok && strings.HasPrefix(config.StorageURL(), "/") {
		prefix := strings.TrimSuffix(config.StorageURL(), "/")
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(disk.Root())))
		r.Mount(prefix, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasSuffix(req.URL.Path, "/") {
				notFound(w, req)
				return
			}
			files.ServeHTTP(w, req)
		}))
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	logger.Debug("http kernel ready", "routes", len(r.Routes()))
	return k, nil
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

func (k *HTTPKernel) Routes() []router.RouteInfo { return k.router.Routes() }

// Stop ends the rate limiter's sweeper.
func (k *HTTPKernel) Stop() { k.limiter.Stop() }
