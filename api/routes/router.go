package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entradago/entradago-backend/api/controllers"
	cartcontrollers "github.com/entradago/entradago-backend/api/controllers/cart"
	checkoutcontrollers "github.com/entradago/entradago-backend/api/controllers/checkout"
	wishlistcontrollers "github.com/entradago/entradago-backend/api/controllers/wishlist"
	"github.com/entradago/entradago-backend/api/middleware"
	"github.com/entradago/entradago-backend/internal/cart"
	"github.com/entradago/entradago-backend/internal/payment"
	"github.com/entradago/entradago-backend/internal/selection"
	"github.com/entradago/entradago-backend/internal/wishlist"
	"github.com/entradago/entradago-backend/pkg/config"
	"github.com/entradago/entradago-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	cartManager *cart.Manager,
	selectionService selection.Service,
	checkoutService payment.Service,
	wishlistService wishlist.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartManager, logg))
			r.Delete("/", cartcontrollers.CartClear(cartManager, logg))
			r.Get("/summary", cartcontrollers.CartSummary(cartManager, logg))
			r.Get("/validate", cartcontrollers.CartValidate(cartManager, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartManager, selectionService, logg))
			r.Route("/items/{ticketID}", func(r chi.Router) {
				r.Delete("/", cartcontrollers.CartRemoveItem(cartManager, logg))
				r.Post("/increase", cartcontrollers.CartIncrease(cartManager, logg))
				r.Post("/decrease", cartcontrollers.CartDecrease(cartManager, logg))
				r.Post("/wishlist", wishlistcontrollers.MoveFromCart(wishlistService, logg))
			})
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistcontrollers.List(wishlistService, logg))
			r.Delete("/{ticketID}", wishlistcontrollers.Remove(wishlistService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutcontrollers.Start(checkoutService, selectionService, logg))
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", checkoutcontrollers.Fetch(checkoutService, logg))
				r.Delete("/", checkoutcontrollers.Close(checkoutService, logg))
				r.Post("/verify", checkoutcontrollers.Verify(checkoutService, logg))
				r.Post("/retry", checkoutcontrollers.Retry(checkoutService, logg))
			})
		})
	})

	return r
}
