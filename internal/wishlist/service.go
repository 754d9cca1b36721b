package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/entradago/entradago-backend/internal/cart"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one saved-for-later ticket. It captures the cart line item at the
// moment it was moved, so the wishlist survives catalog changes.
type Item struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"size:64;index:idx_wishlist_user_ticket,unique" json:"user_id"`
	TicketID     string    `gorm:"size:64;index:idx_wishlist_user_ticket,unique" json:"ticket_id"`
	TicketName   string    `json:"ticket_name"`
	EventID      string    `gorm:"size:64" json:"event_id"`
	EventName    string    `json:"event_name"`
	ScheduleDate time.Time `json:"schedule_date"`
	UnitPrice    string    `json:"unit_price"`
	CurrencyCode string    `gorm:"size:8" json:"currency_code"`
	IsNumbered   bool      `json:"is_numbered"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps the table name explicit.
func (Item) TableName() string { return "wishlist_items" }

// UnitPriceDecimal parses the stored price, zero when unparseable.
func (i Item) UnitPriceDecimal() decimal.Decimal {
	price, err := decimal.NewFromString(i.UnitPrice)
	if err != nil {
		return decimal.Zero
	}
	return price
}

type cartAccess interface {
	ForUser(ctx context.Context, userID string) (*cart.Store, error)
}

// Service moves cart items into the saved-for-later list and back out.
type Service interface {
	MoveFromCart(ctx context.Context, userID, ticketID string) ([]Item, error)
	List(ctx context.Context, userID string) ([]Item, error)
	Remove(ctx context.Context, userID, ticketID string) error
}

type service struct {
	db    *gorm.DB
	carts cartAccess
	logg  *logger.Logger
	now   func() time.Time
}

// ServiceParams groups the wishlist dependencies.
type ServiceParams struct {
	DB     *gorm.DB
	Carts  cartAccess
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService migrates the wishlist table and wires the service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart access required")
	}
	if err := params.DB.AutoMigrate(&Item{}); err != nil {
		return nil, fmt.Errorf("migrating wishlist items: %w", err)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:    params.DB,
		carts: params.Carts,
		logg:  params.Logger,
		now:   now,
	}, nil
}

// MoveFromCart pulls every cart entry with the ticket id out of the cart and
// records it. A ticket spread over several dates collapses to one row; a
// repeat move refreshes the existing row instead of erroring.
func (s *service) MoveFromCart(ctx context.Context, userID, ticketID string) ([]Item, error) {
	store, err := s.carts.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	taken := store.Take(ticketID)
	if len(taken) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket is not in the cart")
	}

	head := taken[0]
	row := Item{
		ID:           uuid.New(),
		UserID:       userID,
		TicketID:     head.TicketID,
		TicketName:   head.TicketName,
		EventID:      head.Event.ID,
		EventName:    head.Event.Name,
		ScheduleDate: head.ScheduleDate,
		UnitPrice:    head.UnitPrice,
		CurrencyCode: head.CurrencyCode,
		IsNumbered:   head.IsNumbered,
		CreatedAt:    s.now(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "ticket_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"ticket_name", "schedule_date", "unit_price", "created_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving wishlist item")
	}
	return s.listRows(ctx, userID)
}

// List returns the user's saved items, newest first.
func (s *service) List(ctx context.Context, userID string) ([]Item, error) {
	return s.listRows(ctx, userID)
}

// Remove deletes one saved item.
func (s *service) Remove(ctx context.Context, userID, ticketID string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND ticket_id = ?", userID, ticketID).
		Delete(&Item{})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "deleting wishlist item")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ticket is not in the wishlist")
	}
	return nil
}

func (s *service) listRows(ctx context.Context, userID string) ([]Item, error) {
	var rows []Item
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Item{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing wishlist items")
	}
	return rows, nil
}
