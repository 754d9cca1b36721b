package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartSnapshot is the single-row-per-user durable slot backing the gorm bridge.
type CartSnapshot struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Payload   []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName keeps the table name explicit.
func (CartSnapshot) TableName() string { return "cart_snapshots" }

// GormBridge stores cart snapshots in a relational table, upserting by user.
type GormBridge struct {
	db *gorm.DB
}

// NewGormBridge migrates the snapshot table and returns the bridge.
func NewGormBridge(db *gorm.DB) (*GormBridge, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if err := db.AutoMigrate(&CartSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrating cart snapshots: %w", err)
	}
	return &GormBridge{db: db}, nil
}

// Save upserts the user's snapshot.
func (b *GormBridge) Save(ctx context.Context, userID string, payload []byte) error {
	row := CartSnapshot{UserID: userID, Payload: payload}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
}

// Load returns the user's snapshot, or ErrNotFound.
func (b *GormBridge) Load(ctx context.Context, userID string) ([]byte, error) {
	var row CartSnapshot
	err := b.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.Payload, nil
}
