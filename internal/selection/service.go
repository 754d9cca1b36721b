package selection

import (
	"context"
	"fmt"

	"github.com/entradago/entradago-backend/internal/cart"
	"github.com/entradago/entradago-backend/internal/catalog"
	"github.com/entradago/entradago-backend/internal/payment"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/types"
)

type catalogSource interface {
	Schedules(ctx context.Context, eventID string) ([]catalog.Schedule, error)
	TicketTypes(ctx context.Context, eventID string) ([]catalog.TicketType, error)
	NumberedTickets(ctx context.Context, ticketTypeID string) ([]types.SeatAssignment, error)
}

// Input is one complete selection as submitted by a client. The funnel
// steps are replayed against live catalog data, so a stale client cannot
// put an unsellable ticket in the cart.
type Input struct {
	Event        types.EventRef
	ScheduleID   string
	TicketTypeID string
	Quantity     int
	SeatIDs      []string
	FullName     string
	Email        string
}

// Service resolves selection payloads against the catalog.
type Service interface {
	ResolveLineItem(ctx context.Context, buyer Buyer, input Input) (cart.LineItemInput, error)
	ResolveIntent(ctx context.Context, buyer Buyer, input Input) (payment.Intent, error)
}

type service struct {
	catalog catalogSource
	logg    *logger.Logger
}

// NewService wires the selection resolver over the catalog client.
func NewService(source catalogSource, logg *logger.Logger) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	return &service{catalog: source, logg: logg}, nil
}

func (s *service) ResolveLineItem(ctx context.Context, buyer Buyer, input Input) (cart.LineItemInput, error) {
	resolver, err := s.resolve(ctx, buyer, input)
	if err != nil {
		return cart.LineItemInput{}, err
	}
	return resolver.ToLineItem()
}

func (s *service) ResolveIntent(ctx context.Context, buyer Buyer, input Input) (payment.Intent, error) {
	resolver, err := s.resolve(ctx, buyer, input)
	if err != nil {
		return payment.Intent{}, err
	}
	return resolver.ToPaymentIntent()
}

func (s *service) resolve(ctx context.Context, buyer Buyer, input Input) (*Resolver, error) {
	if s.logg != nil {
		ctx = s.logg.WithEventID(ctx, input.Event.ID)
	}

	schedules, err := s.catalog.Schedules(ctx, input.Event.ID)
	if err != nil {
		return nil, err
	}
	ticketTypes, err := s.catalog.TicketTypes(ctx, input.Event.ID)
	if err != nil {
		return nil, err
	}

	resolver := NewResolver(input.Event, schedules, ticketTypes, buyer, s.catalog)
	if err := resolver.SelectDate(input.ScheduleID); err != nil {
		return nil, err
	}
	if err := resolver.SelectTicketType(ctx, input.TicketTypeID); err != nil {
		return nil, err
	}
	if len(input.SeatIDs) > 0 {
		if err := resolver.SelectSeats(input.SeatIDs); err != nil {
			return nil, err
		}
	}
	if input.FullName != "" || input.Email != "" {
		resolver.SetPersonalInfo(input.FullName, input.Email)
	}
	for i := 1; i < input.Quantity; i++ {
		resolver.IncrementQuantity()
	}
	return resolver, nil
}
