package cart

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/types"
	"github.com/shopspring/decimal"
)

const errCannotAddRestricted = "cannot add more of this ticket type"

// snapshotWriter is the slice of the persistence bridge the store needs.
type snapshotWriter interface {
	Save(ctx context.Context, userID string, payload []byte) error
}

// Store owns the line-item list for one user and is its single mutation
// surface. Mutations are serialized by the internal mutex; every mutation
// schedules a best-effort snapshot write that never fails the caller.
type Store struct {
	mu      sync.Mutex
	items   []LineItem
	cartErr string

	// Snapshot writer state: one goroutine drains pending at a time, and
	// pending only ever holds the newest copy, so the durable snapshot is
	// always the last mutation.
	writeMu    sync.Mutex
	pending    []LineItem
	pendingSet bool
	writing    bool

	userID           string
	fallbackCurrency string
	snapshots        snapshotWriter
	logg             *logger.Logger
	now              func() time.Time
}

// StoreParams groups Store dependencies.
type StoreParams struct {
	UserID           string
	FallbackCurrency string
	Snapshots        snapshotWriter
	Logger           *logger.Logger
	Now              func() time.Time
	Items            []LineItem
}

// NewStore builds a cart store seeded with the given items (nil for empty).
func NewStore(params StoreParams) *Store {
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.FallbackCurrency == "" {
		params.FallbackCurrency = "BOB"
	}
	return &Store{
		items:            append([]LineItem(nil), params.Items...),
		userID:           params.UserID,
		fallbackCurrency: params.FallbackCurrency,
		snapshots:        params.Snapshots,
		logg:             params.Logger,
		now:              params.Now,
	}
}

// Add merges the input into the cart. A matching unrestricted entry absorbs
// the quantity; a matching numbered or personal entry refuses the merge and
// records the cart error without touching the list.
func (s *Store) Add(input LineItemInput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quantity := input.Quantity
	if input.IsNumbered {
		quantity = len(input.Seats)
	}
	if quantity <= 0 {
		quantity = 1
	}

	for i := range s.items {
		if !s.items[i].sameEntry(input.TicketID, input.ScheduleDate) {
			continue
		}
		if s.items[i].Restricted() {
			s.cartErr = errCannotAddRestricted
			return
		}
		s.items[i].Quantity += quantity
		s.cartErr = ""
		s.scheduleSnapshot()
		return
	}

	s.items = append(s.items, LineItem{
		TicketID:     input.TicketID,
		TicketName:   input.TicketName,
		Event:        input.Event,
		ScheduleDate: input.ScheduleDate,
		Quantity:     quantity,
		UnitPrice:    input.UnitPrice,
		CurrencyCode: input.CurrencyCode,
		IsNumbered:   input.IsNumbered,
		PersonalInfo: input.PersonalInfo,
		Seats:        append([]types.SeatAssignment(nil), input.Seats...),
		OwnerUserID:  input.OwnerUserID,
		AddedAt:      s.now(),
	})
	s.cartErr = ""
	s.scheduleSnapshot()
}

// Remove drops every entry with the ticket id, regardless of schedule date.
// Removal is keyed on the ticket id alone; TestRemoveSpansDates pins it.
func (s *Store) Remove(ticketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, item := range s.items {
		if item.TicketID != ticketID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.cartErr = ""
	s.scheduleSnapshot()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.cartErr = ""
	s.scheduleSnapshot()
}

// IncreaseQuantity bumps an unrestricted item by one. Restricted items are a
// silent no-op. The cart error is cleared either way.
func (s *Store) IncreaseQuantity(ticketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cartErr = ""
	for i := range s.items {
		if s.items[i].TicketID != ticketID {
			continue
		}
		if s.items[i].Restricted() {
			return
		}
		s.items[i].Quantity++
		s.scheduleSnapshot()
		return
	}
}

// DecreaseQuantity lowers an unrestricted item by one, removing it when the
// quantity would reach zero. Restricted items are a silent no-op. The cart
// error is cleared either way.
func (s *Store) DecreaseQuantity(ticketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cartErr = ""
	for i := range s.items {
		if s.items[i].TicketID != ticketID {
			continue
		}
		if s.items[i].Restricted() {
			return
		}
		if s.items[i].Quantity <= 1 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		} else {
			s.items[i].Quantity--
		}
		s.scheduleSnapshot()
		return
	}
}

// TotalAmount sums unit price times quantity across the cart. Prices that do
// not parse count as zero.
func (s *Store) TotalAmount() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount is the sum of quantities, not the number of entries.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no entries.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Error returns the transient cart-level diagnostic from the last mutation.
func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartErr
}

// Items returns a copy of the cart sorted by the given order. Added-at order
// breaks ties.
func (s *Store) Items(order SortOrder) []LineItem {
	s.mu.Lock()
	items := append([]LineItem(nil), s.items...)
	s.mu.Unlock()

	switch order {
	case SortByName:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Event.Name < items[j].Event.Name
		})
	case SortByPrice:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].UnitPriceDecimal().LessThan(items[j].UnitPriceDecimal())
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].ScheduleDate.Equal(items[j].ScheduleDate) {
				return items[i].AddedAt.Before(items[j].AddedAt)
			}
			return items[i].ScheduleDate.Before(items[j].ScheduleDate)
		})
	}
	return items
}

// ByEvent returns the entries belonging to one event.
func (s *Store) ByEvent(eventID string) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []LineItem
	for _, item := range s.items {
		if item.Event.ID == eventID {
			out = append(out, item)
		}
	}
	return out
}

// Summary aggregates the cart for display. The currency falls back when the
// cart is empty or the first item carries none.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := Summary{
		TotalAmount:  decimal.Zero,
		CurrencyCode: s.fallbackCurrency,
	}
	events := map[string]struct{}{}
	for _, item := range s.items {
		summary.TotalItems += item.Quantity
		summary.TotalAmount = summary.TotalAmount.Add(item.LineTotal())
		events[item.Event.ID] = struct{}{}
	}
	summary.EventCount = len(events)
	if len(s.items) > 0 && s.items[0].CurrencyCode != "" {
		summary.CurrencyCode = s.items[0].CurrencyCode
	}
	return summary
}

// Validate runs the pre-checkout rule set against the current items.
func (s *Store) Validate() Validation {
	s.mu.Lock()
	items := append([]LineItem(nil), s.items...)
	s.mu.Unlock()
	return ValidateItems(items, s.now())
}

// Take removes and returns every entry with the ticket id. Used when an item
// leaves the cart for the wishlist.
func (s *Store) Take(ticketID string) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var taken []LineItem
	kept := s.items[:0]
	for _, item := range s.items {
		if item.TicketID == ticketID {
			taken = append(taken, item)
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	if len(taken) > 0 {
		s.cartErr = ""
		s.scheduleSnapshot()
	}
	return taken
}

// scheduleSnapshot queues a background snapshot write of the current items.
// Callers must hold the mutex. Writes are serialized through a single drain
// goroutine and rapid mutations coalesce into the newest copy. Failures are
// logged, never surfaced: the mutation already succeeded in memory.
func (s *Store) scheduleSnapshot() {
	if s.snapshots == nil {
		return
	}
	items := append([]LineItem(nil), s.items...)

	s.writeMu.Lock()
	s.pending = items
	s.pendingSet = true
	if s.writing {
		s.writeMu.Unlock()
		return
	}
	s.writing = true
	s.writeMu.Unlock()

	go s.drainSnapshots()
}

func (s *Store) drainSnapshots() {
	for {
		s.writeMu.Lock()
		if !s.pendingSet {
			s.writing = false
			s.writeMu.Unlock()
			return
		}
		items := s.pending
		s.pending = nil
		s.pendingSet = false
		s.writeMu.Unlock()

		s.writeSnapshot(items)
	}
}

func (s *Store) writeSnapshot(items []LineItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(items)
	if err == nil {
		err = s.snapshots.Save(ctx, s.userID, payload)
	}
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithUserID(ctx, s.userID), "cart snapshot write failed", err)
	}
}
