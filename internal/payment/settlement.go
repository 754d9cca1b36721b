package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/entradago/entradago-backend/pkg/config"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	invoicePath       = "/invoice-event"
	ticketPaymentPath = "/ticket-payment"
	ticketPath        = "/ticket"

	paymentStatusSuccess = 2
	ticketStatusIssued   = 1
)

// TicketRecord is a backend ticket created during settlement.
type TicketRecord struct {
	ID     string `json:"id"`
	SeatID string `json:"seat_id,omitempty"`
}

// Settlement talks to the backend ticket API after a confirmed external
// payment: invoice, then payment record, then ticket records.
type Settlement struct {
	baseURL         string
	paymentMethodID string
	currencyID      string
	http            *http.Client
	logg            *logger.Logger
	now             func() time.Time
}

// NewSettlement validates configuration and builds the backend client.
func NewSettlement(cfg config.SettlementConfig, logg *logger.Logger) (*Settlement, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("settlement base url is required")
	}
	if cfg.PaymentMethodID == "" || cfg.CurrencyID == "" {
		return nil, fmt.Errorf("settlement payment method and currency ids are required")
	}
	return &Settlement{
		baseURL:         base,
		paymentMethodID: cfg.PaymentMethodID,
		currencyID:      cfg.CurrencyID,
		http:            &http.Client{Timeout: cfg.Timeout},
		logg:            logg,
		now:             time.Now,
	}, nil
}

// CreateInvoice records the invoice for the purchase and returns its id.
func (s *Settlement) CreateInvoice(ctx context.Context, intent Intent) (string, error) {
	payload := map[string]any{
		"date":             s.now().UTC().Format(time.RFC3339),
		"event_invoice_id": intent.Event.ID,
		"name":             intent.BuyerName,
		"email":            intent.BuyerEmail,
		"total":            intent.TotalAmount,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.post(ctx, invoicePath, payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "invoice response missing id")
	}
	return resp.ID, nil
}

// CreatePayment records the successful external payment against the invoice.
func (s *Settlement) CreatePayment(ctx context.Context, invoiceID, externalTransactionID string, amount decimal.Decimal) (string, error) {
	if invoiceID == "" || externalTransactionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invoice and transaction ids are required")
	}

	stamp := s.now().UTC().Format(time.RFC3339)
	payload := map[string]any{
		"execute_date":      stamp,
		"date":              stamp,
		"amount":            amount,
		"payment_method_id": s.paymentMethodID,
		"currency_id":       s.currencyID,
		"external_code":     externalTransactionID,
		"invoice_id":        invoiceID,
		"status_id":         paymentStatusSuccess,
		"commission_amount": 0,
		"total":             amount,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.post(ctx, ticketPaymentPath, payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment response missing id")
	}
	return resp.ID, nil
}

// TicketParams describes one backend ticket creation call.
type TicketParams struct {
	EventID       string
	TicketTypeID  string
	PaymentID     string
	TransactionID string
	UserID        string
	Number        int
	Price         decimal.Decimal
	SeatID        string
}

// CreateTicket issues one backend ticket record. Numbered settlements call
// this once per seat, everything else once with the full quantity.
func (s *Settlement) CreateTicket(ctx context.Context, params TicketParams) (TicketRecord, error) {
	payload := map[string]any{
		"date":           s.now().UTC().Format(time.RFC3339),
		"event_id":       params.EventID,
		"ticket_type_id": params.TicketTypeID,
		"number":         params.Number,
		"user_id":        params.UserID,
		"payment_id":     params.PaymentID,
		"pay_method":     s.paymentMethodID,
		"status_id":      ticketStatusIssued,
		"price":          params.Price,
		"is_payment":     true,
		"transaction_id": params.TransactionID,
	}
	if params.SeatID != "" {
		payload["numbered_ticket_id"] = params.SeatID
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.post(ctx, ticketPath, payload, &resp); err != nil {
		return TicketRecord{}, err
	}
	return TicketRecord{ID: resp.ID, SeatID: params.SeatID}, nil
}

func (s *Settlement) post(ctx context.Context, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settlement request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build settlement request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logError(ctx, path, err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("settlement returned status %d", resp.StatusCode)
		s.logError(ctx, path, statusErr)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, statusErr, "settlement request rejected")
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode settlement response")
	}
	return nil
}

func (s *Settlement) logError(ctx context.Context, path string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"operation": path})
	s.logg.Error(ctx, "settlement call failed", err)
}
