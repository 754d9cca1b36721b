package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entradago/entradago-backend/api/middleware"
	"github.com/entradago/entradago-backend/api/responses"
	"github.com/entradago/entradago-backend/api/validators"
	cartsvc "github.com/entradago/entradago-backend/internal/cart"
	"github.com/entradago/entradago-backend/internal/selection"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/types"
)

type cartManager interface {
	ForUser(ctx context.Context, userID string) (*cartsvc.Store, error)
}

type selectionResolver interface {
	ResolveLineItem(ctx context.Context, buyer selection.Buyer, input selection.Input) (cartsvc.LineItemInput, error)
}

// cartResponse is what every cart read and mutation renders: the listing,
// the sticky cart error, and the totals.
type cartResponse struct {
	Items     []cartsvc.LineItem `json:"items"`
	CartError string             `json:"cart_error,omitempty"`
	Summary   cartsvc.Summary    `json:"summary"`
}

func newCartResponse(store *cartsvc.Store, order cartsvc.SortOrder) cartResponse {
	return cartResponse{
		Items:     store.Items(order),
		CartError: store.Error(),
		Summary:   store.Summary(),
	}
}

func sortOrderFromQuery(r *http.Request) cartsvc.SortOrder {
	switch r.URL.Query().Get("order") {
	case string(cartsvc.SortByName):
		return cartsvc.SortByName
	case string(cartsvc.SortByPrice):
		return cartsvc.SortByPrice
	default:
		return cartsvc.SortByDate
	}
}

// CartFetch renders the caller's cart, sorted per the order query param.
func CartFetch(manager cartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := manager.ForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store, sortOrderFromQuery(r)))
	}
}

// CartClear empties the caller's cart.
func CartClear(manager cartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := manager.ForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Clear()
		responses.WriteSuccess(w, newCartResponse(store, cartsvc.SortByDate))
	}
}

// CartSummary returns the aggregate totals alone.
func CartSummary(manager cartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := manager.ForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.Summary())
	}
}

// CartValidate runs the pre-checkout rules and reports every violation.
func CartValidate(manager cartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := manager.ForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.Validate())
	}
}

type addItemRequest struct {
	Event        types.EventRef `json:"event"`
	ScheduleID   string         `json:"schedule_id" validate:"required"`
	TicketTypeID string         `json:"ticket_type_id" validate:"required"`
	Quantity     int            `json:"quantity" validate:"omitempty,min=1"`
	SeatIDs      []string       `json:"seat_ids" validate:"omitempty,dive,required"`
	FullName     string         `json:"full_name"`
	Email        string         `json:"email" validate:"omitempty,email"`
}

// CartAddItem resolves a selection against the catalog and adds the line
// item to the caller's cart.
func CartAddItem(manager cartManager, resolver selectionResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Event.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id is required"))
			return
		}

		ctx := r.Context()
		buyer := selection.Buyer{
			UserID: middleware.UserIDFromContext(ctx),
			Name:   middleware.UserNameFromContext(ctx),
			Email:  middleware.UserEmailFromContext(ctx),
		}
		input, err := resolver.ResolveLineItem(ctx, buyer, selection.Input{
			Event:        payload.Event,
			ScheduleID:   payload.ScheduleID,
			TicketTypeID: payload.TicketTypeID,
			Quantity:     payload.Quantity,
			SeatIDs:      payload.SeatIDs,
			FullName:     payload.FullName,
			Email:        payload.Email,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		store, err := manager.ForUser(ctx, buyer.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		store.Add(input)
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(store, cartsvc.SortByDate))
	}
}

// CartRemoveItem drops every entry with the ticket id, whatever its date.
func CartRemoveItem(manager cartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := manager.ForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Remove(chi.URLParam(r, "ticketID"))
		responses.WriteSuccess(w, newCartResponse(store, cartsvc.SortByDate))
	}
}

// CartIncrease bumps the quantity of an unrestricted entry.
func CartIncrease(manager cartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := manager.ForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.IncreaseQuantity(chi.URLParam(r, "ticketID"))
		responses.WriteSuccess(w, newCartResponse(store, cartsvc.SortByDate))
	}
}

// CartDecrease lowers the quantity of an unrestricted entry, removing it at one.
func CartDecrease(manager cartManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := manager.ForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.DecreaseQuantity(chi.URLParam(r, "ticketID"))
		responses.WriteSuccess(w, newCartResponse(store, cartsvc.SortByDate))
	}
}
