package wishlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entradago/entradago-backend/api/middleware"
	"github.com/entradago/entradago-backend/api/responses"
	wishlistsvc "github.com/entradago/entradago-backend/internal/wishlist"
	"github.com/entradago/entradago-backend/pkg/logger"
)

// MoveFromCart pulls a ticket out of the cart and saves it for later.
func MoveFromCart(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.MoveFromCart(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "ticketID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// List returns the caller's saved tickets.
func List(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// Remove deletes one saved ticket.
func Remove(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Remove(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "ticketID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
