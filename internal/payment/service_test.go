package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/entradago/entradago-backend/internal/cart"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/types"
)

type stubCarts struct {
	store *cart.Store
	err   error
}

func (s *stubCarts) ForUser(ctx context.Context, userID string) (*cart.Store, error) {
	return s.store, s.err
}

func validCartStore() *cart.Store {
	store := cart.NewStore(cart.StoreParams{
		UserID: "user-1",
		Now:    func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) },
	})
	store.Add(cart.LineItemInput{
		TicketID:     "tt-general",
		TicketName:   "General",
		Event:        types.EventRef{ID: "ev-1", Name: "Concierto"},
		ScheduleDate: time.Date(2026, 10, 10, 20, 0, 0, 0, time.UTC),
		Quantity:     2,
		UnitPrice:    "50.00",
		CurrencyCode: "BOB",
		OwnerUserID:  "user-1",
	})
	return store
}

func newTestService(t *testing.T, gw *stubGateway, st *stubSettler, store *cart.Store) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Provider: gw,
		Backend:  st,
		Carts:    &stubCarts{store: store},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestStartFromCartOpensSession(t *testing.T) {
	gw := &stubGateway{generateResult: qrResult()}
	store := validCartStore()
	svc := newTestService(t, gw, &stubSettler{}, store)

	view, err := svc.StartFromCart(context.Background(), "user-1", "Ana Rojas", "ana@example.com", MethodQR)
	if err != nil {
		t.Fatalf("start from cart: %v", err)
	}
	if view.Step != StepAwaitingUserAction {
		t.Fatalf("expected awaiting, got %s", view.Step)
	}
	if gw.generateCalls != 1 {
		t.Fatalf("expected one generate call, got %d", gw.generateCalls)
	}

	fetched, err := svc.Session(context.Background(), "user-1", view.ID)
	if err != nil {
		t.Fatalf("session fetch: %v", err)
	}
	if fetched.ID != view.ID {
		t.Fatalf("expected session %s, got %s", view.ID, fetched.ID)
	}
}

func TestStartFromCartRejectsInvalidCart(t *testing.T) {
	store := cart.NewStore(cart.StoreParams{UserID: "user-1"})
	svc := newTestService(t, &stubGateway{generateResult: qrResult()}, &stubSettler{}, store)

	_, err := svc.StartFromCart(context.Background(), "user-1", "Ana Rojas", "ana@example.com", MethodQR)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "cart is empty" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestStartFromCartUnregistersOnInvalidMethod(t *testing.T) {
	svc := newTestService(t, &stubGateway{generateResult: qrResult()}, &stubSettler{}, validCartStore())

	_, err := svc.StartFromCart(context.Background(), "user-1", "Ana Rojas", "ana@example.com", Method("cash"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFullCartCheckoutClearsCart(t *testing.T) {
	gw := &stubGateway{
		generateResult: qrResult(),
		verifyOutcomes: []VerifyOutcome{VerifyCompleted},
	}
	store := validCartStore()
	svc := newTestService(t, gw, &stubSettler{}, store)

	view, err := svc.StartFromCart(context.Background(), "user-1", "Ana Rojas", "ana@example.com", MethodQR)
	if err != nil {
		t.Fatalf("start from cart: %v", err)
	}

	view, err = svc.Verify(context.Background(), "user-1", view.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if view.Step != StepSuccess {
		t.Fatalf("expected success, got %s", view.Step)
	}
	if !store.IsEmpty() {
		t.Fatal("expected cart cleared after cart-wide settlement")
	}
}

func TestStartFromIntentLeavesCartAlone(t *testing.T) {
	gw := &stubGateway{
		generateResult: qrResult(),
		verifyOutcomes: []VerifyOutcome{VerifyCompleted},
	}
	store := validCartStore()
	svc := newTestService(t, gw, &stubSettler{}, store)

	intent := testIntent()
	intent.TicketTypeID = "tt-other"
	view, err := svc.StartFromIntent(context.Background(), "user-1", MethodQR, intent)
	if err != nil {
		t.Fatalf("start from intent: %v", err)
	}
	if _, err := svc.Verify(context.Background(), "user-1", view.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if store.ItemCount() != 2 {
		t.Fatalf("expected untouched cart, got %d items", store.ItemCount())
	}
}

func TestSessionLookupIsScopedToOwner(t *testing.T) {
	svc := newTestService(t, &stubGateway{generateResult: qrResult()}, &stubSettler{}, validCartStore())

	view, err := svc.StartFromCart(context.Background(), "user-1", "Ana Rojas", "ana@example.com", MethodQR)
	if err != nil {
		t.Fatalf("start from cart: %v", err)
	}

	_, err = svc.Session(context.Background(), "user-2", view.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}

	_, err = svc.Session(context.Background(), "user-1", uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestCloseForgetsSession(t *testing.T) {
	svc := newTestService(t, &stubGateway{generateResult: qrResult()}, &stubSettler{}, validCartStore())

	view, err := svc.StartFromCart(context.Background(), "user-1", "Ana Rojas", "ana@example.com", MethodQR)
	if err != nil {
		t.Fatalf("start from cart: %v", err)
	}
	if err := svc.Close(context.Background(), "user-1", view.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.Session(context.Background(), "user-1", view.ID); err == nil {
		t.Fatal("expected closed session to be forgotten")
	}
}

func TestIntentFromCartHeadIdentityCartTotal(t *testing.T) {
	store := validCartStore()
	store.Add(cart.LineItemInput{
		TicketID:     "tt-vip",
		TicketName:   "VIP",
		Event:        types.EventRef{ID: "ev-1", Name: "Concierto"},
		ScheduleDate: time.Date(2026, 10, 11, 20, 0, 0, 0, time.UTC),
		Quantity:     1,
		UnitPrice:    "200.00",
		CurrencyCode: "BOB",
	})

	intent, ok := IntentFromCart(store.Items(cart.SortByDate), store.TotalAmount(), "Ana Rojas", "ana@example.com")
	if !ok {
		t.Fatal("expected intent from populated cart")
	}
	if intent.TicketTypeID != "tt-general" {
		t.Fatalf("expected head-item identity, got %s", intent.TicketTypeID)
	}
	if got := intent.TotalAmount.StringFixed(2); got != "300.00" {
		t.Fatalf("expected cart-wide total 300.00, got %s", got)
	}
	if intent.BuyerName != "Ana Rojas" {
		t.Fatalf("expected fallback buyer name, got %s", intent.BuyerName)
	}
}

func TestIntentFromCartPersonalInfoOverridesBuyer(t *testing.T) {
	items := []cart.LineItem{{
		TicketID:     "tt-palco",
		Event:        types.EventRef{ID: "ev-1", Name: "Concierto"},
		Quantity:     1,
		UnitPrice:    "500.00",
		CurrencyCode: "BOB",
		PersonalInfo: &types.PersonalInfo{FullName: "Carlos Mamani", Email: "carlos@example.com"},
	}}

	intent, ok := IntentFromCart(items, decimal.RequireFromString("500.00"), "Ana Rojas", "ana@example.com")
	if !ok {
		t.Fatal("expected intent")
	}
	if intent.BuyerName != "Carlos Mamani" || intent.BuyerEmail != "carlos@example.com" {
		t.Fatalf("expected personal info to win, got %s %s", intent.BuyerName, intent.BuyerEmail)
	}
}

func TestIntentFromCartEmpty(t *testing.T) {
	if _, ok := IntentFromCart(nil, decimal.Zero, "", ""); ok {
		t.Fatal("expected no intent from empty cart")
	}
}
