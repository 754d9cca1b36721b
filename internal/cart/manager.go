package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entradago/entradago-backend/internal/persist"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
)

// Manager hands out one Store per user, loading the persisted snapshot on
// first access.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store

	bridge           persist.Bridge
	fallbackCurrency string
	logg             *logger.Logger
	now              func() time.Time
}

// ManagerParams groups Manager dependencies.
type ManagerParams struct {
	Bridge           persist.Bridge
	FallbackCurrency string
	Logger           *logger.Logger
	Now              func() time.Time
}

// NewManager builds the per-user store registry.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Bridge == nil {
		return nil, fmt.Errorf("persistence bridge required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Manager{
		stores:           map[string]*Store{},
		bridge:           params.Bridge,
		fallbackCurrency: params.FallbackCurrency,
		logg:             params.Logger,
		now:              params.Now,
	}, nil
}

// ForUser returns the user's store, restoring the persisted snapshot the
// first time the user shows up. A corrupt or missing snapshot starts the
// cart empty; load problems are logged, never fatal.
func (m *Manager) ForUser(ctx context.Context, userID string) (*Store, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[userID]; ok {
		return store, nil
	}

	items := m.loadSnapshot(ctx, userID)
	store := NewStore(StoreParams{
		UserID:           userID,
		FallbackCurrency: m.fallbackCurrency,
		Snapshots:        m.bridge,
		Logger:           m.logg,
		Now:              m.now,
		Items:            items,
	})
	m.stores[userID] = store
	return store, nil
}

func (m *Manager) loadSnapshot(ctx context.Context, userID string) []LineItem {
	payload, err := m.bridge.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) && m.logg != nil {
			m.logg.Error(m.logg.WithUserID(ctx, userID), "cart snapshot load failed", err)
		}
		return nil
	}

	var items []LineItem
	if err := json.Unmarshal(payload, &items); err != nil {
		if m.logg != nil {
			m.logg.Error(m.logg.WithUserID(ctx, userID), "cart snapshot corrupt, starting empty", err)
		}
		return nil
	}
	return items
}
