package checkout

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/entradago/entradago-backend/api/middleware"
	"github.com/entradago/entradago-backend/api/responses"
	"github.com/entradago/entradago-backend/api/validators"
	"github.com/entradago/entradago-backend/internal/payment"
	"github.com/entradago/entradago-backend/internal/selection"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/types"
)

type intentResolver interface {
	ResolveIntent(ctx context.Context, buyer selection.Buyer, input selection.Input) (payment.Intent, error)
}

const (
	sourceCart      = "cart"
	sourceSelection = "selection"
)

type selectionPayload struct {
	Event        types.EventRef `json:"event"`
	ScheduleID   string         `json:"schedule_id" validate:"required"`
	TicketTypeID string         `json:"ticket_type_id" validate:"required"`
	Quantity     int            `json:"quantity" validate:"omitempty,min=1"`
	SeatIDs      []string       `json:"seat_ids" validate:"omitempty,dive,required"`
	FullName     string         `json:"full_name"`
	Email        string         `json:"email" validate:"omitempty,email"`
}

type startRequest struct {
	Method    string            `json:"method" validate:"required,oneof=qr card"`
	Source    string            `json:"source" validate:"required,oneof=cart selection"`
	Selection *selectionPayload `json:"selection,omitempty"`
}

// Start opens a checkout session for the cart or for one direct selection
// and runs the generate step.
func Start(svc payment.Service, resolver intentResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload startRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)
		buyerName := middleware.UserNameFromContext(ctx)
		buyerEmail := middleware.UserEmailFromContext(ctx)
		method := payment.Method(payload.Method)

		var view payment.View
		var err error
		switch payload.Source {
		case sourceCart:
			view, err = svc.StartFromCart(ctx, userID, buyerName, buyerEmail, method)
		case sourceSelection:
			if payload.Selection == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "selection is required"))
				return
			}
			if payload.Selection.Event.ID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id is required"))
				return
			}
			buyer := selection.Buyer{UserID: userID, Name: buyerName, Email: buyerEmail}
			var intent payment.Intent
			intent, err = resolver.ResolveIntent(ctx, buyer, selection.Input{
				Event:        payload.Selection.Event,
				ScheduleID:   payload.Selection.ScheduleID,
				TicketTypeID: payload.Selection.TicketTypeID,
				Quantity:     payload.Selection.Quantity,
				SeatIDs:      payload.Selection.SeatIDs,
				FullName:     payload.Selection.FullName,
				Email:        payload.Selection.Email,
			})
			if err == nil {
				view, err = svc.StartFromIntent(ctx, userID, method, intent)
			}
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// Fetch returns the current session state.
func Fetch(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Session(r.Context(), middleware.UserIDFromContext(r.Context()), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Verify checks the external payment after the user acted on the artifact.
func Verify(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Verify(r.Context(), middleware.UserIDFromContext(r.Context()), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Retry re-enters the stage the session failed in.
func Retry(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Retry(r.Context(), middleware.UserIDFromContext(r.Context()), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Close abandons the session.
func Close(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Close(r.Context(), middleware.UserIDFromContext(r.Context()), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "closed"})
	}
}

func sessionIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id")
	}
	return id, nil
}
