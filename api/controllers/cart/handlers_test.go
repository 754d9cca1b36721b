package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/entradago/entradago-backend/api/middleware"
	cartsvc "github.com/entradago/entradago-backend/internal/cart"
	"github.com/entradago/entradago-backend/internal/selection"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/types"
)

type stubManager struct {
	store *cartsvc.Store
	err   error
}

func (s stubManager) ForUser(ctx context.Context, userID string) (*cartsvc.Store, error) {
	return s.store, s.err
}

type stubResolver struct {
	input cartsvc.LineItemInput
	err   error
	buyer selection.Buyer
}

func (s *stubResolver) ResolveLineItem(ctx context.Context, buyer selection.Buyer, input selection.Input) (cartsvc.LineItemInput, error) {
	s.buyer = buyer
	return s.input, s.err
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUser(req.Context(), "user-1", "Ana Rojas", "ana@example.com"))
}

func withTicketParam(req *http.Request, ticketID string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("ticketID", ticketID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func seededStore() *cartsvc.Store {
	store := cartsvc.NewStore(cartsvc.StoreParams{UserID: "user-1"})
	store.Add(cartsvc.LineItemInput{
		TicketID:     "tt-general",
		TicketName:   "General",
		Event:        types.EventRef{ID: "ev-1", Name: "Concierto"},
		ScheduleDate: time.Date(2026, 10, 10, 20, 0, 0, 0, time.UTC),
		Quantity:     2,
		UnitPrice:    "50.00",
		CurrencyCode: "BOB",
	})
	return store
}

func decodeCart(t *testing.T, resp *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCartFetchSuccess(t *testing.T) {
	handler := CartFetch(stubManager{store: seededStore()}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	data := decodeCart(t, resp)
	if len(data.Items) != 1 || data.Items[0].TicketID != "tt-general" {
		t.Fatalf("unexpected items %+v", data.Items)
	}
	if got := data.Summary.TotalAmount.StringFixed(2); got != "100.00" {
		t.Fatalf("expected total 100.00, got %s", got)
	}
}

func TestCartFetchManagerError(t *testing.T) {
	handler := CartFetch(stubManager{err: pkgerrors.New(pkgerrors.CodeValidation, "user id is required")}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartClearEmptiesCart(t *testing.T) {
	store := seededStore()
	handler := CartClear(stubManager{store: store}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodDelete, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !store.IsEmpty() {
		t.Fatal("expected cart emptied")
	}
}

func TestCartAddItemResolvesSelection(t *testing.T) {
	store := cartsvc.NewStore(cartsvc.StoreParams{UserID: "user-1"})
	resolver := &stubResolver{input: cartsvc.LineItemInput{
		TicketID:     "tt-general",
		TicketName:   "General",
		Event:        types.EventRef{ID: "ev-1", Name: "Concierto"},
		ScheduleDate: time.Date(2026, 10, 10, 20, 0, 0, 0, time.UTC),
		Quantity:     1,
		UnitPrice:    "50.00",
		CurrencyCode: "BOB",
	}}
	handler := CartAddItem(stubManager{store: store}, resolver, nil)

	body := `{"event":{"id":"ev-1","name":"Concierto"},"schedule_id":"sch-1","ticket_type_id":"tt-general"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if store.ItemCount() != 1 {
		t.Fatalf("expected one item in cart, got %d", store.ItemCount())
	}
	if resolver.buyer.UserID != "user-1" || resolver.buyer.Name != "Ana Rojas" {
		t.Fatalf("expected buyer seeded from context, got %+v", resolver.buyer)
	}
}

func TestCartAddItemMissingEvent(t *testing.T) {
	handler := CartAddItem(stubManager{store: seededStore()}, &stubResolver{}, nil)

	body := `{"schedule_id":"sch-1","ticket_type_id":"tt-general"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemResolverError(t *testing.T) {
	resolver := &stubResolver{err: pkgerrors.New(pkgerrors.CodeNotFound, "unknown ticket type")}
	handler := CartAddItem(stubManager{store: seededStore()}, resolver, nil)

	body := `{"event":{"id":"ev-1"},"schedule_id":"sch-1","ticket_type_id":"tt-missing"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartRemoveItemDropsAllDates(t *testing.T) {
	store := seededStore()
	store.Add(cartsvc.LineItemInput{
		TicketID:     "tt-general",
		TicketName:   "General",
		Event:        types.EventRef{ID: "ev-1", Name: "Concierto"},
		ScheduleDate: time.Date(2026, 10, 11, 20, 0, 0, 0, time.UTC),
		Quantity:     1,
		UnitPrice:    "50.00",
		CurrencyCode: "BOB",
	})
	handler := CartRemoveItem(stubManager{store: store}, nil)

	req := withTicketParam(authedRequest(http.MethodDelete, "/api/v1/cart/items/tt-general", ""), "tt-general")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !store.IsEmpty() {
		t.Fatal("expected both dates removed")
	}
}

func TestCartIncreaseAndDecrease(t *testing.T) {
	store := seededStore()

	req := withTicketParam(authedRequest(http.MethodPost, "/api/v1/cart/items/tt-general/increase", ""), "tt-general")
	resp := httptest.NewRecorder()
	CartIncrease(stubManager{store: store}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("increase: expected 200 got %d", resp.Code)
	}
	if data := decodeCart(t, resp); data.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", data.Items[0].Quantity)
	}

	req = withTicketParam(authedRequest(http.MethodPost, "/api/v1/cart/items/tt-general/decrease", ""), "tt-general")
	resp = httptest.NewRecorder()
	CartDecrease(stubManager{store: store}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("decrease: expected 200 got %d", resp.Code)
	}
	if data := decodeCart(t, resp); data.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", data.Items[0].Quantity)
	}
}

func TestCartValidateReportsErrors(t *testing.T) {
	store := cartsvc.NewStore(cartsvc.StoreParams{UserID: "user-1"})
	handler := CartValidate(stubManager{store: store}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart/validate", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartsvc.Validation `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.IsValid || len(envelope.Data.Errors) != 1 {
		t.Fatalf("expected single empty-cart error, got %+v", envelope.Data)
	}
}

func TestCartSortOrderFromQuery(t *testing.T) {
	store := seededStore()
	store.Add(cartsvc.LineItemInput{
		TicketID:     "tt-vip",
		TicketName:   "VIP",
		Event:        types.EventRef{ID: "ev-2", Name: "Alfa Fest"},
		ScheduleDate: time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC),
		Quantity:     1,
		UnitPrice:    "200.00",
		CurrencyCode: "BOB",
	})
	handler := CartFetch(stubManager{store: store}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart?order=name", ""))

	data := decodeCart(t, resp)
	if data.Items[0].Event.Name != "Alfa Fest" {
		t.Fatalf("expected name ordering, got %s first", data.Items[0].Event.Name)
	}
}
