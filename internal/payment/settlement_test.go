package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/entradago/entradago-backend/pkg/config"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

func newTestSettlement(t *testing.T, baseURL string) *Settlement {
	t.Helper()
	settlement, err := NewSettlement(config.SettlementConfig{
		BaseURL:         baseURL,
		PaymentMethodID: "pm-qr",
		CurrencyID:      "cur-bob",
		Timeout:         5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("new settlement: %v", err)
	}
	return settlement
}

func TestCreateInvoice(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoice-event" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]string{"id": "inv-1"})
	}))
	defer server.Close()

	settlement := newTestSettlement(t, server.URL)
	id, err := settlement.CreateInvoice(context.Background(), testIntent())
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if id != "inv-1" {
		t.Fatalf("expected inv-1, got %q", id)
	}
	if captured["event_invoice_id"] != "ev-1" || captured["email"] != "ana@example.com" {
		t.Fatalf("unexpected invoice payload %v", captured)
	}
}

func TestCreatePaymentCarriesSuccessStatus(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ticket-payment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]string{"id": "pay-1"})
	}))
	defer server.Close()

	settlement := newTestSettlement(t, server.URL)
	id, err := settlement.CreatePayment(context.Background(), "inv-1", "tx-1", decimal.RequireFromString("100.00"))
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if id != "pay-1" {
		t.Fatalf("expected pay-1, got %q", id)
	}

	if captured["status_id"] != float64(2) {
		t.Fatalf("expected success status 2, got %v", captured["status_id"])
	}
	if captured["invoice_id"] != "inv-1" || captured["external_code"] != "tx-1" {
		t.Fatalf("expected invoice and transaction references, got %v", captured)
	}
	if captured["payment_method_id"] != "pm-qr" || captured["currency_id"] != "cur-bob" {
		t.Fatalf("expected configured method and currency ids, got %v", captured)
	}
}

func TestCreatePaymentRequiresReferences(t *testing.T) {
	t.Parallel()

	settlement := newTestSettlement(t, "https://backend.example.com")
	_, err := settlement.CreatePayment(context.Background(), "", "tx-1", decimal.Zero)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateTicketSeatBinding(t *testing.T) {
	t.Parallel()

	var payloads []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ticket" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var captured map[string]any
		json.NewDecoder(r.Body).Decode(&captured)
		payloads = append(payloads, captured)
		json.NewEncoder(w).Encode(map[string]string{"id": "tk-1"})
	}))
	defer server.Close()

	settlement := newTestSettlement(t, server.URL)
	params := TicketParams{
		EventID:       "ev-1",
		TicketTypeID:  "tt-vip",
		PaymentID:     "pay-1",
		TransactionID: "tx-1",
		UserID:        "user-1",
		Number:        1,
		Price:         decimal.RequireFromString("120.00"),
		SeatID:        "s1",
	}
	record, err := settlement.CreateTicket(context.Background(), params)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if record.ID != "tk-1" || record.SeatID != "s1" {
		t.Fatalf("unexpected record %+v", record)
	}

	params.SeatID = ""
	params.Number = 3
	if _, err := settlement.CreateTicket(context.Background(), params); err != nil {
		t.Fatalf("create unnumbered ticket: %v", err)
	}

	if payloads[0]["numbered_ticket_id"] != "s1" {
		t.Fatalf("expected seat bound on numbered ticket, got %v", payloads[0])
	}
	if _, ok := payloads[1]["numbered_ticket_id"]; ok {
		t.Fatal("unnumbered ticket must not carry a seat id")
	}
	if payloads[1]["number"] != float64(3) {
		t.Fatalf("expected quantity on unnumbered ticket, got %v", payloads[1]["number"])
	}
	if payloads[0]["status_id"] != float64(1) || payloads[0]["is_payment"] != true {
		t.Fatalf("expected issued paid ticket, got %v", payloads[0])
	}
}

func TestSettlementRejectionIsDependencyError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	settlement := newTestSettlement(t, server.URL)
	_, err := settlement.CreateInvoice(context.Background(), testIntent())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
