package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/entradago/entradago-backend/internal/cart"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/metrics"
	"github.com/google/uuid"
)

type cartAccess interface {
	ForUser(ctx context.Context, userID string) (*cart.Store, error)
}

// Service owns the live checkout sessions and runs them against the
// payment gateway and the settlement backend.
type Service interface {
	StartFromCart(ctx context.Context, userID, buyerName, buyerEmail string, method Method) (View, error)
	StartFromIntent(ctx context.Context, userID string, method Method, intent Intent) (View, error)
	Session(ctx context.Context, userID string, sessionID uuid.UUID) (View, error)
	Verify(ctx context.Context, userID string, sessionID uuid.UUID) (View, error)
	Retry(ctx context.Context, userID string, sessionID uuid.UUID) (View, error)
	Close(ctx context.Context, userID string, sessionID uuid.UUID) error
}

type service struct {
	provider gateway
	backend  settler
	carts    cartAccess
	registry *Registry
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
}

// ServiceParams groups the checkout service dependencies.
type ServiceParams struct {
	Provider gateway
	Backend  settler
	Carts    cartAccess
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
}

// NewService wires a checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("settlement client required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart access required")
	}
	return &service{
		provider: params.Provider,
		backend:  params.Backend,
		carts:    params.Carts,
		registry: NewRegistry(),
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// StartFromCart opens a session for the caller's whole cart: identity from
// the head line item, amount across every item. Success empties the cart.
func (s *service) StartFromCart(ctx context.Context, userID, buyerName, buyerEmail string, method Method) (View, error) {
	store, err := s.carts.ForUser(ctx, userID)
	if err != nil {
		return View{}, err
	}

	validation := store.Validate()
	if !validation.IsValid {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, validation.Errors[0])
	}

	intent, ok := IntentFromCart(store.Items(cart.SortByDate), store.TotalAmount(), buyerName, buyerEmail)
	if !ok {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if intent.BuyerUserID == "" {
		intent.BuyerUserID = userID
	}
	return s.open(ctx, userID, true, intent, method)
}

// StartFromIntent opens a session for one resolved selection, leaving the
// rest of the cart untouched on success.
func (s *service) StartFromIntent(ctx context.Context, userID string, method Method, intent Intent) (View, error) {
	if intent.BuyerUserID == "" {
		intent.BuyerUserID = userID
	}
	return s.open(ctx, userID, false, intent, method)
}

func (s *service) open(ctx context.Context, userID string, cartWide bool, intent Intent, method Method) (View, error) {
	session, err := NewSession(SessionParams{
		UserID:   userID,
		CartWide: cartWide,
		Intent:   intent,
		Provider: s.provider,
		Backend:  s.backend,
		Carts:    &releaser{carts: s.carts, logg: s.logg},
		Logger:   s.logg,
		Metrics:  s.metrics,
	})
	if err != nil {
		return View{}, err
	}
	s.registry.Put(session)

	if err := session.Start(ctx, method); err != nil {
		s.registry.Delete(session.ID())
		return View{}, err
	}
	return session.Snapshot(), nil
}

func (s *service) Session(ctx context.Context, userID string, sessionID uuid.UUID) (View, error) {
	session, err := s.registry.Get(userID, sessionID)
	if err != nil {
		return View{}, err
	}
	return session.Snapshot(), nil
}

func (s *service) Verify(ctx context.Context, userID string, sessionID uuid.UUID) (View, error) {
	session, err := s.registry.Get(userID, sessionID)
	if err != nil {
		return View{}, err
	}
	if err := session.Verify(ctx); err != nil {
		return View{}, err
	}
	return session.Snapshot(), nil
}

func (s *service) Retry(ctx context.Context, userID string, sessionID uuid.UUID) (View, error) {
	session, err := s.registry.Get(userID, sessionID)
	if err != nil {
		return View{}, err
	}
	if err := session.Retry(ctx); err != nil {
		return View{}, err
	}
	return session.Snapshot(), nil
}

func (s *service) Close(ctx context.Context, userID string, sessionID uuid.UUID) error {
	session, err := s.registry.Get(userID, sessionID)
	if err != nil {
		return err
	}
	if err := session.Close(); err != nil {
		return err
	}
	s.registry.Delete(sessionID)
	return nil
}

// releaser clears the settled goods out of the cart once a session reaches
// success. Failures here never fail the checkout; the payment already went
// through.
type releaser struct {
	carts cartAccess
	logg  *logger.Logger
}

func (r *releaser) ReleaseSettled(ctx context.Context, userID string, cartWide bool, ticketID string) {
	store, err := r.carts.ForUser(ctx, userID)
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "could not release settled cart items", err)
		}
		return
	}
	if cartWide {
		store.Clear()
		return
	}
	store.Remove(ticketID)
}

// Registry tracks live checkout sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Put registers a session under its id.
func (r *Registry) Put(session *Session) {
	r.mu.Lock()
	r.sessions[session.ID()] = session
	r.mu.Unlock()
}

// Get returns the caller's session. Another user's session id reads as not
// found rather than forbidden, so ids cannot be probed.
func (r *Registry) Get(userID string, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || session.UserID() != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return session, nil
}

// Delete drops a session from the registry.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
