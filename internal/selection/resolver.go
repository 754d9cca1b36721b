package selection

import (
	"context"
	"errors"
	"strings"

	"github.com/entradago/entradago-backend/internal/cart"
	"github.com/entradago/entradago-backend/internal/catalog"
	"github.com/entradago/entradago-backend/internal/payment"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Typed selection failures. Handlers map them through pkg/errors, tests
// match them with errors.Is.
var (
	ErrMissingSelection    = errors.New("date or ticket type not selected")
	ErrMissingPersonalInfo = errors.New("buyer name and email are required")
	ErrMissingSeats        = errors.New("at least one seat must be selected")
	ErrUnknownSchedule     = errors.New("schedule not found for event")
	ErrUnknownTicketType   = errors.New("ticket type not found for selected date")
	ErrUnknownSeat         = errors.New("seat not available for ticket type")
)

type seatLoader interface {
	NumberedTickets(ctx context.Context, ticketTypeID string) ([]types.SeatAssignment, error)
}

// Buyer is the authenticated identity used to default personal fields.
type Buyer struct {
	UserID string
	Name   string
	Email  string
}

// Resolver walks the date → ticket type → seats/personal-info funnel for one
// event and produces either a cart line item or a payment intent.
type Resolver struct {
	event       types.EventRef
	schedules   []catalog.Schedule
	ticketTypes []catalog.TicketType
	buyer       Buyer
	seats       seatLoader

	selectedSchedule *catalog.Schedule
	selectedType     *catalog.TicketType
	availableSeats   []types.SeatAssignment
	selectedSeats    []types.SeatAssignment
	quantity         int
	buyerName        string
	buyerEmail       string
}

// NewResolver builds a resolver over externally fetched catalog data.
func NewResolver(event types.EventRef, schedules []catalog.Schedule, ticketTypes []catalog.TicketType, buyer Buyer, seats seatLoader) *Resolver {
	return &Resolver{
		event:       event,
		schedules:   schedules,
		ticketTypes: ticketTypes,
		buyer:       buyer,
		seats:       seats,
		quantity:    1,
	}
}

// FilterTicketTypes returns the ticket types sold for one schedule. Pure
// function of its inputs; an empty schedule id yields nothing.
func FilterTicketTypes(all []catalog.TicketType, scheduleID string) []catalog.TicketType {
	if scheduleID == "" {
		return nil
	}
	var out []catalog.TicketType
	for _, tt := range all {
		if tt.ScheduleID == scheduleID {
			out = append(out, tt)
		}
	}
	return out
}

// SelectDate picks a schedule and resets any ticket-type selection made for
// a different date.
func (r *Resolver) SelectDate(scheduleID string) error {
	for i := range r.schedules {
		if r.schedules[i].ID == scheduleID {
			r.selectedSchedule = &r.schedules[i]
			if r.selectedType != nil && r.selectedType.ScheduleID != scheduleID {
				r.selectedType = nil
				r.availableSeats = nil
				r.selectedSeats = nil
				r.quantity = 1
			}
			return nil
		}
	}
	return ErrUnknownSchedule
}

// SelectTicketType picks a ticket type from the selected date's catalog and,
// for numbered types, loads the available seat records.
func (r *Resolver) SelectTicketType(ctx context.Context, ticketTypeID string) error {
	if r.selectedSchedule == nil {
		return ErrMissingSelection
	}
	for _, tt := range FilterTicketTypes(r.ticketTypes, r.selectedSchedule.ID) {
		if tt.ID != ticketTypeID {
			continue
		}
		ttCopy := tt
		r.selectedType = &ttCopy
		r.selectedSeats = nil
		r.availableSeats = nil
		r.quantity = 1
		if tt.IsNumbered {
			seats, err := r.seats.NumberedTickets(ctx, tt.ID)
			if err != nil {
				r.selectedType = nil
				return err
			}
			r.availableSeats = seats
		}
		return nil
	}
	return ErrUnknownTicketType
}

// AvailableSeats exposes the seat records loaded for a numbered ticket type.
func (r *Resolver) AvailableSeats() []types.SeatAssignment {
	return append([]types.SeatAssignment(nil), r.availableSeats...)
}

// SelectSeats binds seat records by id. Only seats loaded as available can
// be chosen; quantity becomes the seat count.
func (r *Resolver) SelectSeats(seatIDs []string) error {
	if r.selectedType == nil || !r.selectedType.IsNumbered {
		return ErrMissingSelection
	}
	var chosen []types.SeatAssignment
	for _, id := range seatIDs {
		found := false
		for _, seat := range r.availableSeats {
			if seat.ID == id {
				chosen = append(chosen, seat)
				found = true
				break
			}
		}
		if !found {
			return ErrUnknownSeat
		}
	}
	r.selectedSeats = chosen
	return nil
}

// SetPersonalInfo captures the buyer fields required by personal ticket types.
func (r *Resolver) SetPersonalInfo(fullName, email string) {
	r.buyerName = strings.TrimSpace(fullName)
	r.buyerEmail = strings.TrimSpace(email)
}

// IncrementQuantity bumps the free quantity, clamped at availability.
// Numbered types derive quantity from seats, so this is a no-op for them.
func (r *Resolver) IncrementQuantity() {
	if r.selectedType == nil || r.selectedType.IsNumbered {
		return
	}
	if r.quantity < r.selectedType.Available {
		r.quantity++
	}
}

// DecrementQuantity lowers the free quantity, clamped at one.
func (r *Resolver) DecrementQuantity() {
	if r.selectedType == nil || r.selectedType.IsNumbered {
		return
	}
	if r.quantity > 1 {
		r.quantity--
	}
}

// Quantity reports the effective quantity: seat count for numbered types,
// the clamped free integer otherwise.
func (r *Resolver) Quantity() int {
	if r.selectedType != nil && r.selectedType.IsNumbered {
		return len(r.selectedSeats)
	}
	return r.quantity
}

// ToLineItem validates the funnel and produces the cart input bound to the
// selected schedule date.
func (r *Resolver) ToLineItem() (cart.LineItemInput, error) {
	if err := r.complete(); err != nil {
		return cart.LineItemInput{}, err
	}

	var personal *types.PersonalInfo
	if r.selectedType.IsPersonal {
		name, email := r.buyerIdentity()
		personal = &types.PersonalInfo{FullName: name, Email: email}
	}

	return cart.LineItemInput{
		TicketID:     r.selectedType.ID,
		TicketName:   r.selectedType.Name,
		Event:        r.event,
		ScheduleDate: r.selectedSchedule.Date,
		Quantity:     r.Quantity(),
		UnitPrice:    r.selectedType.Price,
		CurrencyCode: r.selectedType.CurrencyCode,
		IsNumbered:   r.selectedType.IsNumbered,
		PersonalInfo: personal,
		Seats:        append([]types.SeatAssignment(nil), r.selectedSeats...),
		OwnerUserID:  r.buyer.UserID,
	}, nil
}

// ToPaymentIntent validates the funnel and produces the ephemeral intent for
// a checkout that skips the cart.
func (r *Resolver) ToPaymentIntent() (payment.Intent, error) {
	if err := r.complete(); err != nil {
		return payment.Intent{}, err
	}

	price, err := decimal.NewFromString(r.selectedType.Price)
	if err != nil {
		price = decimal.Zero
	}
	quantity := r.Quantity()

	name, email := r.buyerIdentity()
	return payment.Intent{
		Event:        r.event,
		TicketTypeID: r.selectedType.ID,
		Quantity:     quantity,
		TotalAmount:  price.Mul(decimal.NewFromInt(int64(quantity))),
		CurrencyCode: r.selectedType.CurrencyCode,
		BuyerName:    name,
		BuyerEmail:   email,
		BuyerUserID:  r.buyer.UserID,
		IsNumbered:   r.selectedType.IsNumbered,
		Seats:        append([]types.SeatAssignment(nil), r.selectedSeats...),
	}, nil
}

func (r *Resolver) complete() error {
	if r.selectedSchedule == nil || r.selectedType == nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMissingSelection, "incomplete selection")
	}
	if r.selectedType.IsPersonal {
		if name, email := r.buyerIdentity(); name == "" || email == "" {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMissingPersonalInfo, "incomplete selection")
		}
	}
	if r.selectedType.IsNumbered && len(r.selectedSeats) == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMissingSeats, "incomplete selection")
	}
	return nil
}

func (r *Resolver) buyerIdentity() (string, string) {
	name := r.buyerName
	if name == "" {
		name = r.buyer.Name
	}
	email := r.buyerEmail
	if email == "" {
		email = r.buyer.Email
	}
	return name, email
}
