package cart

import (
	"time"

	"github.com/entradago/entradago-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// LineItem is one cart entry, keyed by ticket type and schedule date.
type LineItem struct {
	TicketID     string                 `json:"ticket_id"`
	TicketName   string                 `json:"ticket_name"`
	Event        types.EventRef         `json:"event"`
	ScheduleDate time.Time              `json:"schedule_date"`
	Quantity     int                    `json:"quantity"`
	UnitPrice    string                 `json:"unit_price"`
	CurrencyCode string                 `json:"currency_code"`
	IsNumbered   bool                   `json:"is_numbered"`
	PersonalInfo *types.PersonalInfo    `json:"personal_info,omitempty"`
	Seats        []types.SeatAssignment `json:"seats,omitempty"`
	OwnerUserID  string                 `json:"owner_user_id,omitempty"`
	AddedAt      time.Time              `json:"added_at"`
}

// LineItemInput is the payload accepted by Store.Add. Quantity of a numbered
// item is derived from its seats, whatever the caller passed.
type LineItemInput struct {
	TicketID     string
	TicketName   string
	Event        types.EventRef
	ScheduleDate time.Time
	Quantity     int
	UnitPrice    string
	CurrencyCode string
	IsNumbered   bool
	PersonalInfo *types.PersonalInfo
	Seats        []types.SeatAssignment
	OwnerUserID  string
}

// Restricted reports whether quantity mutations are locked for this item.
func (li LineItem) Restricted() bool {
	return li.IsNumbered || li.PersonalInfo != nil
}

func (li LineItem) sameEntry(ticketID string, scheduleDate time.Time) bool {
	return li.TicketID == ticketID && li.ScheduleDate.Equal(scheduleDate)
}

// UnitPriceDecimal parses the price string; anything unparsable counts as zero.
func (li LineItem) UnitPriceDecimal() decimal.Decimal {
	price, err := decimal.NewFromString(li.UnitPrice)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// LineTotal is unit price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPriceDecimal().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Summary is the aggregate view rendered above the checkout button.
type Summary struct {
	TotalItems   int             `json:"total_items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	CurrencyCode string          `json:"currency_code"`
	EventCount   int             `json:"event_count"`
}

// Validation is the result of the pre-checkout rule set.
type Validation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// SortOrder selects a cart listing order.
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByName  SortOrder = "name"
	SortByPrice SortOrder = "price"
)
