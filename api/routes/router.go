package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/newsletter"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/preferences"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies groups everything the HTTP surface is wired to. Redis and
// Idempotency may be nil when no redis endpoint is configured.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Catalog       catalog.Service
	ProductLookup catalog.Lookup
	Cart          cart.Service
	Wishlist      wishlist.Service
	Preferences   preferences.Service
	Orders        orders.Service
	Newsletter    newsletter.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	lookup := deps.ProductLookup
	if lookup == nil {
		lookup = deps.Catalog
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))
		idem := middleware.Idempotency(deps.Idempotency, logg)

		r.Get("/categories", controllers.CategoryList(deps.Catalog, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, logg))
			r.Get("/{slug}", controllers.ProductDetail(lookup, logg))
			r.Get("/{slug}/reviews", controllers.ProductReviews(deps.Catalog, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{lineId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{lineId}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Post("/open", controllers.CartDrawer(deps.Cart, cart.DrawerOpen, logg))
			r.Post("/close", controllers.CartDrawer(deps.Cart, cart.DrawerClose, logg))
			r.Post("/toggle", controllers.CartDrawer(deps.Cart, cart.DrawerToggle, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistFetch(deps.Wishlist, logg))
			r.Delete("/", controllers.WishlistClear(deps.Wishlist, logg))
			r.Post("/toggle", controllers.WishlistToggle(deps.Wishlist, logg))
			r.Delete("/{slug}", controllers.WishlistRemove(deps.Wishlist, logg))
			r.With(idem).Post("/{slug}/move-to-cart", controllers.WishlistMoveToCart(deps.Wishlist, logg))
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.PreferencesFetch(deps.Preferences, logg))
			r.Put("/age-verification", controllers.PreferencesAgeVerification(deps.Preferences, logg))
			r.Put("/cookie-consent", controllers.PreferencesCookieConsent(deps.Preferences, logg))
		})

		r.With(idem).Post("/checkout", controllers.Checkout(deps.Orders, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(idem).Post("/", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderNumber}", controllers.OrderDetail(deps.Orders, logg))
		})

		r.Route("/newsletter", func(r chi.Router) {
			r.With(idem).Post("/", controllers.NewsletterSubscribe(deps.Newsletter, logg))
			r.Delete("/", controllers.NewsletterUnsubscribe(deps.Newsletter, logg))
		})
	})

	return r
}
