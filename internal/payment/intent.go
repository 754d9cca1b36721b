package payment

import (
	"github.com/entradago/entradago-backend/internal/cart"
	"github.com/entradago/entradago-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Method selects the external payment rail.
type Method string

const (
	MethodQR   Method = "qr"
	MethodCard Method = "card"
)

// Valid reports whether the method is one of the supported rails.
func (m Method) Valid() bool {
	return m == MethodQR || m == MethodCard
}

// Intent is the ephemeral description of one purchase, built at buy time and
// discarded when the checkout attempt ends. It is never persisted.
type Intent struct {
	Event        types.EventRef         `json:"event"`
	TicketTypeID string                 `json:"ticket_type_id"`
	Quantity     int                    `json:"quantity"`
	TotalAmount  decimal.Decimal        `json:"total_amount"`
	CurrencyCode string                 `json:"currency_code"`
	BuyerName    string                 `json:"buyer_name"`
	BuyerEmail   string                 `json:"buyer_email"`
	BuyerUserID  string                 `json:"buyer_user_id,omitempty"`
	IsNumbered   bool                   `json:"is_numbered"`
	Seats        []types.SeatAssignment `json:"seats,omitempty"`
}

// IntentFromCart builds the checkout intent for a cart-wide purchase: item
// identity from the head entry, amount from the whole cart.
func IntentFromCart(items []cart.LineItem, cartTotal decimal.Decimal, fallbackName, fallbackEmail string) (Intent, bool) {
	if len(items) == 0 {
		return Intent{}, false
	}

	head := items[0]
	name, email := fallbackName, fallbackEmail
	if head.PersonalInfo != nil {
		if head.PersonalInfo.FullName != "" {
			name = head.PersonalInfo.FullName
		}
		if head.PersonalInfo.Email != "" {
			email = head.PersonalInfo.Email
		}
	}

	return Intent{
		Event:        head.Event,
		TicketTypeID: head.TicketID,
		Quantity:     head.Quantity,
		TotalAmount:  cartTotal,
		CurrencyCode: head.CurrencyCode,
		BuyerName:    name,
		BuyerEmail:   email,
		BuyerUserID:  head.OwnerUserID,
		IsNumbered:   head.IsNumbered,
		Seats:        append([]types.SeatAssignment(nil), head.Seats...),
	}, true
}
