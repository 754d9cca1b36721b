package catalog

import "time"

// Schedule is one occurrence of an event.
type Schedule struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

// TicketType is one purchasable ticket kind for an event occurrence.
type TicketType struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Available    int    `json:"available"`
	CurrencyCode string `json:"currency_code"`
	ScheduleID   string `json:"schedule_id"`
	Image        string `json:"image,omitempty"`
	IsPersonal   bool   `json:"is_personal"`
	IsNumbered   bool   `json:"is_numbered"`
}

// wire shapes, as the catalog API actually returns them.

type ticketTypeWire struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available int    `json:"available"`
	Currency  struct {
		Code string `json:"code"`
	} `json:"currency"`
	Schedure struct {
		ID   string    `json:"id"`
		Date time.Time `json:"date"`
	} `json:"schedure"`
	Image      string `json:"image"`
	IsPersonal bool   `json:"is_personal"`
	IsNumbered bool   `json:"is_numbered"`
}

func (w ticketTypeWire) toTicketType() TicketType {
	return TicketType{
		ID:           w.ID,
		Name:         w.Name,
		Price:        w.Price,
		Available:    w.Available,
		CurrencyCode: w.Currency.Code,
		ScheduleID:   w.Schedure.ID,
		Image:        w.Image,
		IsPersonal:   w.IsPersonal,
		IsNumbered:   w.IsNumbered,
	}
}
