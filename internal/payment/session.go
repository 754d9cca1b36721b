package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Step is the checkout state machine position.
type Step string

const (
	StepChoosingMethod     Step = "choosing_method"
	StepGenerating         Step = "generating"
	StepAwaitingUserAction Step = "awaiting_user_action"
	StepVerifying          Step = "verifying"
	StepSettling           Step = "settling"
	StepSuccess            Step = "success"
	StepError              Step = "error"
	StepClosed             Step = "closed"
)

// Stage names the phase an error occurred in; it decides what Retry re-runs.
type Stage string

const (
	StageGenerate Stage = "generate"
	StageVerify   Stage = "verify"
	StageSettle   Stage = "settle"
)

type gateway interface {
	Generate(ctx context.Context, method Method, intent Intent) (GenerateResult, error)
	Verify(ctx context.Context, method Method, transactionID string) (VerifyOutcome, error)
}

type settler interface {
	CreateInvoice(ctx context.Context, intent Intent) (string, error)
	CreatePayment(ctx context.Context, invoiceID, externalTransactionID string, amount decimal.Decimal) (string, error)
	CreateTicket(ctx context.Context, params TicketParams) (TicketRecord, error)
}

// cartRelease removes the settled item(s) from the buyer's cart once the
// session reaches success. It is the orchestrator's only write access to
// the cart.
type cartRelease interface {
	ReleaseSettled(ctx context.Context, userID string, cartWide bool, ticketID string)
}

// Result is the terminal payload of a successful checkout.
type Result struct {
	TransactionID    string         `json:"transaction_id"`
	BackendPaymentID string         `json:"backend_payment_id"`
	Tickets          []TicketRecord `json:"tickets"`
}

// SessionError is the blocking error state surfaced to the user.
type SessionError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Session drives one checkout attempt through generation, user-driven
// verification, and backend settlement. One session, one intent, one
// external transaction at a time; overlapping transitions are refused.
type Session struct {
	mu       sync.Mutex
	inFlight bool

	id       uuid.UUID
	userID   string
	cartWide bool
	intent   Intent
	method   Method

	step          Step
	artifact      Artifact
	transactionID string
	pendingChecks int
	sessionErr    *SessionError
	result        *Result

	provider gateway
	backend  settler
	carts    cartRelease
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
}

// SessionParams groups the collaborators of one checkout attempt.
type SessionParams struct {
	UserID   string
	CartWide bool
	Intent   Intent
	Provider gateway
	Backend  settler
	Carts    cartRelease
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
}

// NewSession opens a checkout attempt in the method-selection step.
func NewSession(params SessionParams) (*Session, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("settlement client required")
	}
	if params.Intent.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent quantity must be positive")
	}
	return &Session{
		id:       uuid.New(),
		userID:   params.UserID,
		cartWide: params.CartWide,
		intent:   params.Intent,
		step:     StepChoosingMethod,
		provider: params.Provider,
		backend:  params.Backend,
		carts:    params.Carts,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// ID identifies the session for the duration of the checkout attempt.
func (s *Session) ID() uuid.UUID { return s.id }

// UserID reports the session owner.
func (s *Session) UserID() string { return s.userID }

// Start picks the payment rail and runs the generate step.
func (s *Session) Start(ctx context.Context, method Method) error {
	if !method.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	release, err := s.begin(StepChoosingMethod)
	if err != nil {
		return err
	}
	defer release()

	s.setMethod(method)
	return s.generate(ctx)
}

// Verify runs the verification step after the user acted on the artifact.
// A pending gateway answer returns the session to awaiting; completion
// proceeds straight into settlement.
func (s *Session) Verify(ctx context.Context) error {
	release, err := s.begin(StepAwaitingUserAction)
	if err != nil {
		return err
	}
	defer release()

	return s.verify(ctx)
}

// Retry re-enters the stage that failed: generation restarts from scratch,
// verification reuses the obtained transaction id, settlement re-runs only
// the settlement calls.
func (s *Session) Retry(ctx context.Context) error {
	release, err := s.begin(StepError)
	if err != nil {
		return err
	}
	defer release()

	stage := s.errorStage()
	s.clearError()
	switch stage {
	case StageGenerate:
		return s.generate(ctx)
	case StageVerify:
		return s.verify(ctx)
	case StageSettle:
		return s.settle(ctx)
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "nothing to retry")
	}
}

// Close tears the session down. Closing a non-terminal session abandons the
// external payment without touching the cart or the backend; a close while a
// transition holds the in-flight guard is refused, otherwise a verification
// already inside the gateway could settle a session the user gave up on.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return pkgerrors.New(pkgerrors.CodeConflict, "operation already in progress")
	}
	if s.step != StepSuccess {
		s.step = StepClosed
	}
	return nil
}

// View is the read model handed to the API layer.
type View struct {
	ID            uuid.UUID     `json:"id"`
	Step          Step          `json:"step"`
	Method        Method        `json:"method,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Artifact      *Artifact     `json:"artifact,omitempty"`
	PendingChecks int           `json:"pending_checks,omitempty"`
	Error         *SessionError `json:"error,omitempty"`
	Result        *Result       `json:"result,omitempty"`
}

// Snapshot returns the session's current read model.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		ID:            s.id,
		Step:          s.step,
		Method:        s.method,
		TransactionID: s.transactionID,
		PendingChecks: s.pendingChecks,
	}
	if s.artifact.Kind != "" {
		artifact := s.artifact
		view.Artifact = &artifact
	}
	if s.sessionErr != nil {
		errCopy := *s.sessionErr
		view.Error = &errCopy
	}
	if s.result != nil {
		resCopy := *s.result
		view.Result = &resCopy
	}
	return view
}

// begin takes the in-flight guard and checks the current step. The returned
// release function must run when the transition finishes.
func (s *Session) begin(expected Step) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "operation already in progress")
	}
	if s.step != expected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot proceed from step %q", s.step))
	}
	s.inFlight = true
	return func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}, nil
}

func (s *Session) setMethod(method Method) {
	s.mu.Lock()
	s.method = method
	s.mu.Unlock()
}

func (s *Session) setStep(step Step) {
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
}

func (s *Session) errorStage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionErr == nil {
		return ""
	}
	return s.sessionErr.Stage
}

func (s *Session) clearError() {
	s.mu.Lock()
	s.sessionErr = nil
	s.mu.Unlock()
}

func (s *Session) fail(stage Stage, message string, cause error) error {
	s.mu.Lock()
	s.step = StepError
	s.sessionErr = &SessionError{Stage: stage, Message: message}
	s.mu.Unlock()

	if s.logg != nil {
		ctx := s.logg.WithFields(context.Background(), map[string]any{
			"checkout_session_id": s.id.String(),
			"stage":               string(stage),
		})
		s.logg.Error(ctx, "checkout stage failed", cause)
	}
	return nil
}

func (s *Session) generate(ctx context.Context) error {
	s.setStep(StepGenerating)

	start := time.Now()
	result, err := s.provider.Generate(ctx, s.methodLocked(), s.intent)
	s.metrics.ObserveStage(string(StageGenerate), time.Since(start), err == nil)
	if err != nil {
		return s.fail(StageGenerate, "could not generate the external payment", err)
	}

	s.mu.Lock()
	s.transactionID = result.TransactionID
	s.artifact = result.Artifact
	s.step = StepAwaitingUserAction
	s.mu.Unlock()
	return nil
}

func (s *Session) verify(ctx context.Context) error {
	s.setStep(StepVerifying)

	start := time.Now()
	outcome, err := s.provider.Verify(ctx, s.methodLocked(), s.transactionIDLocked())
	s.metrics.ObserveStage(string(StageVerify), time.Since(start), err == nil && outcome != VerifyRejected)
	if err != nil {
		return s.fail(StageVerify, "could not verify the payment", err)
	}

	switch outcome {
	case VerifyCompleted:
		return s.settle(ctx)
	case VerifyRejected:
		return s.fail(StageVerify, "the payment was rejected", nil)
	default:
		s.mu.Lock()
		s.pendingChecks++
		s.step = StepAwaitingUserAction
		s.mu.Unlock()
		return nil
	}
}

// settle runs invoice, payment record, and ticket creation in order. Any
// failure is fatal to the whole step and already-created records stay in
// place: there is no compensating transaction, and a retry re-runs the step
// from the invoice on.
func (s *Session) settle(ctx context.Context) error {
	s.setStep(StepSettling)

	start := time.Now()
	settled := false
	defer func() {
		s.metrics.ObserveStage(string(StageSettle), time.Since(start), settled)
	}()

	txID := s.transactionIDLocked()

	invoiceID, err := s.backend.CreateInvoice(ctx, s.intent)
	if err != nil {
		return s.fail(StageSettle, s.settleMessage(txID), err)
	}

	paymentID, err := s.backend.CreatePayment(ctx, invoiceID, txID, s.intent.TotalAmount)
	if err != nil {
		return s.fail(StageSettle, s.settleMessage(txID), err)
	}

	tickets, err := s.createTickets(ctx, paymentID, txID)
	if err != nil {
		return s.fail(StageSettle, s.settleMessage(txID), err)
	}

	s.mu.Lock()
	s.step = StepSuccess
	s.result = &Result{
		TransactionID:    txID,
		BackendPaymentID: paymentID,
		Tickets:          tickets,
	}
	s.mu.Unlock()
	settled = true

	if s.carts != nil {
		s.carts.ReleaseSettled(ctx, s.userID, s.cartWide, s.intent.TicketTypeID)
	}
	return nil
}

func (s *Session) createTickets(ctx context.Context, paymentID, txID string) ([]TicketRecord, error) {
	if s.intent.IsNumbered && len(s.intent.Seats) > 0 {
		prices := splitAmount(s.intent.TotalAmount, len(s.intent.Seats))

		tickets := make([]TicketRecord, 0, len(s.intent.Seats))
		for i, seat := range s.intent.Seats {
			record, err := s.backend.CreateTicket(ctx, TicketParams{
				EventID:       s.intent.Event.ID,
				TicketTypeID:  s.intent.TicketTypeID,
				PaymentID:     paymentID,
				TransactionID: txID,
				UserID:        s.intent.BuyerUserID,
				Number:        1,
				Price:         prices[i],
				SeatID:        seat.ID,
			})
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, record)
		}
		return tickets, nil
	}

	record, err := s.backend.CreateTicket(ctx, TicketParams{
		EventID:       s.intent.Event.ID,
		TicketTypeID:  s.intent.TicketTypeID,
		PaymentID:     paymentID,
		TransactionID: txID,
		UserID:        s.intent.BuyerUserID,
		Number:        s.intent.Quantity,
		Price:         s.intent.TotalAmount,
	})
	if err != nil {
		return nil, err
	}
	return []TicketRecord{record}, nil
}

// splitAmount divides the total into count two-decimal shares that sum back
// to the total exactly. The rounding remainder lands on the first share.
func splitAmount(total decimal.Decimal, count int) []decimal.Decimal {
	n := decimal.NewFromInt(int64(count))
	base := total.Div(n).RoundDown(2)
	shares := make([]decimal.Decimal, count)
	for i := range shares {
		shares[i] = base
	}
	shares[0] = shares[0].Add(total.Sub(base.Mul(n)))
	return shares
}

func (s *Session) settleMessage(txID string) string {
	return fmt.Sprintf("settlement failed; contact support with transaction id %s", txID)
}

func (s *Session) methodLocked() Method {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

func (s *Session) transactionIDLocked() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactionID
}
