package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/entradago/entradago-backend/internal/persist"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/types"
)

type stubBridge struct {
	payload []byte
	loadErr error
	saved   map[string][]byte
}

func (b *stubBridge) Save(ctx context.Context, userID string, payload []byte) error {
	if b.saved == nil {
		b.saved = map[string][]byte{}
	}
	b.saved[userID] = payload
	return nil
}

func (b *stubBridge) Load(ctx context.Context, userID string) ([]byte, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.payload, nil
}

func TestManagerRequiresBridge(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(ManagerParams{}); err == nil {
		t.Fatal("expected error without a bridge")
	}
}

func TestManagerRequiresUserID(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(ManagerParams{Bridge: &stubBridge{loadErr: persist.ErrNotFound}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = manager.ForUser(context.Background(), "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManagerRestoresSnapshotOnFirstAccess(t *testing.T) {
	t.Parallel()

	items := []LineItem{{
		TicketID:     "tt-general",
		TicketName:   "General",
		Event:        types.EventRef{ID: "ev-1", Name: "Concierto"},
		ScheduleDate: time.Date(2026, 10, 10, 20, 0, 0, 0, time.UTC),
		Quantity:     2,
		UnitPrice:    "50.00",
		CurrencyCode: "BOB",
	}}
	payload, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	manager, err := NewManager(ManagerParams{Bridge: &stubBridge{payload: payload}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	store, err := manager.ForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("for user: %v", err)
	}
	if got := store.ItemCount(); got != 2 {
		t.Fatalf("expected restored quantity 2, got %d", got)
	}

	again, err := manager.ForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("for user again: %v", err)
	}
	if again != store {
		t.Fatal("expected the cached store on second access")
	}
}

func TestManagerStartsEmptyOnMissingOrCorruptSnapshot(t *testing.T) {
	t.Parallel()

	cases := map[string]*stubBridge{
		"missing": {loadErr: persist.ErrNotFound},
		"corrupt": {payload: []byte("{not json")},
	}
	for name, bridge := range cases {
		manager, err := NewManager(ManagerParams{Bridge: bridge})
		if err != nil {
			t.Fatalf("%s: new manager: %v", name, err)
		}
		store, err := manager.ForUser(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("%s: for user: %v", name, err)
		}
		if !store.IsEmpty() {
			t.Fatalf("%s: expected empty store", name)
		}
	}
}
