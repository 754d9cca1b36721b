package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/entradago/entradago-backend/pkg/config"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/types"
)

const seatStatusAvailable = 1

// Client is the read-only event/catalog API collaborator.
type Client struct {
	baseURL string
	http    *http.Client
	logg    *logger.Logger
}

// NewClient validates the configuration and builds the catalog client.
func NewClient(cfg config.CatalogConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		logg:    logg,
	}, nil
}

// Schedules lists the occurrences of an event.
func (c *Client) Schedules(ctx context.Context, eventID string) ([]Schedule, error) {
	if eventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}

	var schedules []Schedule
	query := url.Values{"event_id": {eventID}}
	if err := c.get(ctx, "/schedure", query, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// TicketTypes lists the ticket catalog for an event.
func (c *Client) TicketTypes(ctx context.Context, eventID string) ([]TicketType, error) {
	if eventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}

	var wires []ticketTypeWire
	query := url.Values{"event_id": {eventID}}
	if err := c.get(ctx, "/ticket-type", query, &wires); err != nil {
		return nil, err
	}

	out := make([]TicketType, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toTicketType())
	}
	return out, nil
}

// NumberedTickets lists the still-available seat records of a ticket type.
func (c *Client) NumberedTickets(ctx context.Context, ticketTypeID string) ([]types.SeatAssignment, error) {
	if ticketTypeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket type id is required")
	}

	var seats []types.SeatAssignment
	query := url.Values{
		"ticket_type_id": {ticketTypeID},
		"status_id":      {fmt.Sprint(seatStatusAvailable)},
	}
	if err := c.get(ctx, "/numbered-ticket", query, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build catalog request")
	}

	c.log(ctx, "request", path, nil)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log(ctx, "error", path, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log(ctx, "error", path, map[string]any{"status": resp.StatusCode})
		if resp.StatusCode == http.StatusNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "catalog resource not found")
		}
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("catalog returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}

	c.log(ctx, "response", path, nil)
	return nil
}

func (c *Client) log(ctx context.Context, phase, path string, fields map[string]any) {
	if c.logg == nil {
		return
	}
	logFields := map[string]any{"operation": path, "phase": phase}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logg.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logg.Warn(ctx, "catalog request failed")
	default:
		c.logg.Info(ctx, fmt.Sprintf("catalog %s", phase))
	}
}
