package types

import "strconv"

// EventRef is the event snapshot carried on cart line items and payment
// intents. It mirrors what the catalog API returns for an event, not a
// database row owned by this service.
type EventRef struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	FrontPageImage string  `json:"front_page_image,omitempty"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
	IsPayment      bool    `json:"is_payment"`
	IsVirtual      bool    `json:"is_virtual"`
}

// SeatAssignment is one bound seat on a numbered ticket.
type SeatAssignment struct {
	ID     string `json:"id"`
	Prefix string `json:"prefix"`
	Number int    `json:"number"`
	Status int    `json:"status"`
}

// Label renders the seat the way the catalog displays it.
func (s SeatAssignment) Label() string {
	if s.Prefix == "" {
		return strconv.Itoa(s.Number)
	}
	return s.Prefix + "-" + strconv.Itoa(s.Number)
}

// PersonalInfo holds the buyer identity captured for personal ticket types.
type PersonalInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Complete reports whether both required fields are present.
func (p PersonalInfo) Complete() bool {
	return p.FullName != "" && p.Email != ""
}
