package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgredis "github.com/entradago/entradago-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
)

type fakeRedisStore struct {
	values map[string]string
}

func (f *fakeRedisStore) Ping(ctx context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (f *fakeRedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value.(string)
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) *goredis.StringCmd {
	value, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(value, nil)
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return goredis.NewIntResult(removed, nil)
}

func TestRedisBridgeRoundTrip(t *testing.T) {
	t.Parallel()

	store := &fakeRedisStore{}
	bridge, err := NewRedisBridge(pkgredis.NewWithStore(store))
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}

	if err := bridge.Save(context.Background(), "user-1", []byte(`[{"ticket_id":"tt-1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := store.values["eg:cart:user-1"]; !ok {
		t.Fatalf("expected namespaced key, got %v", store.values)
	}

	payload, err := bridge.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(payload) != `[{"ticket_id":"tt-1"}]` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestRedisBridgeEmptySnapshotDeletesKey(t *testing.T) {
	t.Parallel()

	store := &fakeRedisStore{}
	bridge, err := NewRedisBridge(pkgredis.NewWithStore(store))
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}

	if err := bridge.Save(context.Background(), "user-1", []byte(`[{"ticket_id":"tt-1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	for name, payload := range map[string][]byte{"empty list": []byte(`[]`), "null": []byte(`null`)} {
		if err := bridge.Save(context.Background(), "user-1", payload); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		if _, ok := store.values["eg:cart:user-1"]; ok {
			t.Fatalf("%s: expected key removed, got %v", name, store.values)
		}
	}
	if _, err := bridge.Load(context.Background(), "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clearing, got %v", err)
	}
}

func TestRedisBridgeMissReturnsErrNotFound(t *testing.T) {
	t.Parallel()

	bridge, err := NewRedisBridge(pkgredis.NewWithStore(&fakeRedisStore{}))
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}

	if _, err := bridge.Load(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
