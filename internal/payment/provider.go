package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/entradago/entradago-backend/pkg/config"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
)

const (
	qrGeneratePath   = "/pay/qr/generateQr"
	qrVerifyPath     = "/pay/qr/verifyQr"
	cardGeneratePath = "/pay/api/generateUrl"
	cardVerifyPath   = "/pay/api/verifyTransfer"

	providerStatusOK    = 0
	providerQRCompleted = 2
	providerQRRejected  = 3
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ArtifactKind tells the caller how to present the generated payment.
type ArtifactKind string

const (
	ArtifactQRImage     ArtifactKind = "qr_image"
	ArtifactRedirectURL ArtifactKind = "redirect_url"
)

// Artifact is what the user is shown to complete the external payment: a
// base64 QR image payload or a redirect URL.
type Artifact struct {
	Kind ArtifactKind `json:"kind"`
	QR   string       `json:"qr,omitempty"`
	URL  string       `json:"url,omitempty"`
}

// GenerateResult is the provider's answer to a generate call.
type GenerateResult struct {
	TransactionID string
	Artifact      Artifact
}

// VerifyOutcome is the tri-state answer of a verification call.
type VerifyOutcome int

const (
	VerifyPending VerifyOutcome = iota
	VerifyCompleted
	VerifyRejected
)

// Provider is the external QR/card gateway client.
type Provider struct {
	baseURL     string
	companyCode string
	successURL  string
	failureURL  string
	http        *http.Client
	logg        *logger.Logger
	now         func() time.Time
}

// NewProvider validates configuration and builds the gateway client.
func NewProvider(cfg config.PaymentConfig, logg *logger.Logger) (*Provider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("payment base url is required")
	}
	if strings.TrimSpace(cfg.CompanyCode) == "" {
		return nil, fmt.Errorf("payment company code is required")
	}
	return &Provider{
		baseURL:     base,
		companyCode: cfg.CompanyCode,
		successURL:  cfg.SuccessURL,
		failureURL:  cfg.FailureURL,
		http:        &http.Client{Timeout: cfg.Timeout},
		logg:        logg,
		now:         time.Now,
	}, nil
}

// TransactionCode derives the per-attempt code the gateway requires:
// the event name stripped to alphanumerics plus a millisecond timestamp.
func (p *Provider) TransactionCode(eventName string) string {
	clean := nonAlnum.ReplaceAllString(eventName, "")
	return fmt.Sprintf("%s-%d", clean, p.now().UnixMilli())
}

type generateWire struct {
	CompanyCode     string `json:"companyCode"`
	CodeTransaction string `json:"codeTransaction"`
	URLSuccess      string `json:"urlSuccess"`
	URLFailed       string `json:"urlFailed"`
	BillName        string `json:"billName"`
	BillNit         string `json:"billNit"`
	Email           string `json:"email"`
	GenerateBill    string `json:"generateBill"`
	Concept         string `json:"concept"`
	Currency        string `json:"currency"`
	Amount          string `json:"amount"`
	MessagePayment  string `json:"messagePayment"`
	CodeExternal    string `json:"codeExternal"`
}

type generateResponseWire struct {
	Status        *int   `json:"status"`
	TransactionID string `json:"transactionId"`
	QRID          string `json:"qrId"`
	QR            string `json:"qr"`
	URL           string `json:"url"`
}

type verifyResponseWire struct {
	Status   *int   `json:"status"`
	StatusQR *int   `json:"statusQr"`
	Message  string `json:"message"`
	MsgQR    string `json:"msgQr"`
}

// Generate asks the gateway for a new payment and returns the transaction id
// plus the artifact the user must act on.
func (p *Provider) Generate(ctx context.Context, method Method, intent Intent) (GenerateResult, error) {
	if !method.Valid() {
		return GenerateResult{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	payload := generateWire{
		CompanyCode:     p.companyCode,
		CodeTransaction: p.TransactionCode(intent.Event.Name),
		URLSuccess:      p.successURL,
		URLFailed:       p.failureURL,
		BillName:        intent.BuyerName,
		BillNit:         "123456789",
		Email:           intent.BuyerEmail,
		GenerateBill:    "1",
		Concept:         fmt.Sprintf("Pago para evento %s", intent.Event.Name),
		Currency:        intent.CurrencyCode,
		Amount:          intent.TotalAmount.StringFixed(2),
		MessagePayment:  "Gracias por tu compra!",
		CodeExternal:    "",
	}

	path := qrGeneratePath
	if method == MethodCard {
		path = cardGeneratePath
	}

	var wire generateResponseWire
	if err := p.post(ctx, path, payload, &wire); err != nil {
		return GenerateResult{}, err
	}

	transactionID := wire.TransactionID
	if transactionID == "" {
		transactionID = wire.QRID
	}
	if transactionID == "" {
		return GenerateResult{}, pkgerrors.New(pkgerrors.CodeDependency, "gateway response missing transaction id")
	}

	result := GenerateResult{TransactionID: transactionID}
	if method == MethodQR {
		if wire.QR == "" {
			return GenerateResult{}, pkgerrors.New(pkgerrors.CodeDependency, "gateway response missing qr payload")
		}
		result.Artifact = Artifact{Kind: ArtifactQRImage, QR: wire.QR}
	} else {
		if wire.URL == "" {
			return GenerateResult{}, pkgerrors.New(pkgerrors.CodeDependency, "gateway response missing redirect url")
		}
		result.Artifact = Artifact{Kind: ArtifactRedirectURL, URL: wire.URL}
	}
	return result, nil
}

// Verify asks the gateway whether the transaction completed. A well-formed
// not-yet-completed answer is pending, not an error.
func (p *Provider) Verify(ctx context.Context, method Method, transactionID string) (VerifyOutcome, error) {
	if transactionID == "" {
		return VerifyPending, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	path := qrVerifyPath
	payload := map[string]string{
		"companyCode":   p.companyCode,
		"transactionId": transactionID,
		"qrId":          transactionID,
	}
	if method == MethodCard {
		path = cardVerifyPath
		payload = map[string]string{
			"companyCode":   p.companyCode,
			"transactionId": transactionID,
		}
	}

	var wire verifyResponseWire
	if err := p.post(ctx, path, payload, &wire); err != nil {
		return VerifyPending, err
	}

	if wire.Status == nil || wire.StatusQR == nil {
		return VerifyPending, pkgerrors.New(pkgerrors.CodeDependency, "gateway verification response malformed")
	}

	switch {
	case *wire.Status == providerStatusOK && *wire.StatusQR == providerQRCompleted:
		return VerifyCompleted, nil
	case *wire.StatusQR == providerQRRejected:
		return VerifyRejected, nil
	default:
		return VerifyPending, nil
	}
}

func (p *Provider) post(ctx context.Context, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")

	p.log(ctx, "request", path, nil)

	resp, err := p.http.Do(req)
	if err != nil {
		p.log(ctx, "error", path, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log(ctx, "error", path, map[string]any{"status": resp.StatusCode})
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}

	p.log(ctx, "response", path, nil)
	return nil
}

func (p *Provider) log(ctx context.Context, phase, path string, fields map[string]any) {
	if p.logg == nil {
		return
	}
	logFields := map[string]any{"operation": path, "phase": phase}
	for k, v := range fields {
		logFields[k] = p.redact(k, v)
	}
	ctx = p.logg.WithFields(ctx, logFields)
	switch phase {
	case "error":
		p.logg.Warn(ctx, "gateway request failed")
	default:
		p.logg.Info(ctx, fmt.Sprintf("gateway %s", phase))
	}
}

func (p *Provider) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"email", "name", "nit"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
