package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-hooks/match"
	sqlstore "github.com/goliatone/go-hooks/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"hook_listeners", "hook_deliveries"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master: %v", err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestListenerStore_RoundTripsMatchPredicates(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.Listeners()

	created, err := store.Create(ctx, core.CreateListenerInput{
		Hook: "user.created",
		URL:  "https://example.com/hook",
		Match: match.Mapping{
			"name":    match.Prefix{Value: "El"},
			"email":   match.MustPattern(`@example\.com$`),
			"profile": match.Mapping{"active": true, "age": 30},
		},
		Config: map[string]any{"secret": "s3"},
	})
	if err != nil {
		t.Fatalf("create listener: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected listener id")
	}

	loaded, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get listener: %v", err)
	}
	if loaded.Config["secret"] != "s3" {
		t.Fatalf("expected config to persist, got %#v", loaded.Config)
	}

	matched, err := match.DeepMatch(loaded.Match, map[string]any{
		"name":    "Elaine",
		"email":   "elaine@example.com",
		"profile": map[string]any{"active": true, "age": 30},
	})
	if err != nil {
		t.Fatalf("deep match: %v", err)
	}
	if !matched {
		t.Fatalf("expected persisted mapping to keep matching, got %#v", loaded.Match)
	}

	matched, err = match.DeepMatch(loaded.Match, map[string]any{
		"name":    "George",
		"email":   "george@example.com",
		"profile": map[string]any{"active": true, "age": 30},
	})
	if err != nil {
		t.Fatalf("deep match: %v", err)
	}
	if matched {
		t.Fatalf("expected prefix predicate to survive persistence")
	}
}

func TestListenerStore_FindByHookOrdersAndSkipsDeleted(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewListenerStore(client.DB())
	if err != nil {
		t.Fatalf("new listener store: %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		listener, createErr := store.Create(ctx, core.CreateListenerInput{
			Hook: "order.paid",
			URL:  fmt.Sprintf("https://example.com/%d", i),
		})
		if createErr != nil {
			t.Fatalf("create listener %d: %v", i, createErr)
		}
		ids = append(ids, listener.ID)
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := store.Create(ctx, core.CreateListenerInput{Hook: "other", URL: "https://example.com/other"}); err != nil {
		t.Fatalf("create other listener: %v", err)
	}

	if err := store.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("delete listener: %v", err)
	}
	if err := store.Delete(ctx, ids[1]); !core.IsListenerNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	listeners, err := store.FindByHook(ctx, "order.paid")
	if err != nil {
		t.Fatalf("find by hook: %v", err)
	}
	if len(listeners) != 2 {
		t.Fatalf("expected 2 live listeners, got %d", len(listeners))
	}
	if listeners[0].ID != ids[0] || listeners[1].ID != ids[2] {
		t.Fatalf("expected creation order without deleted listener, got %s %s", listeners[0].ID, listeners[1].ID)
	}

	if _, err := store.Get(ctx, ids[1]); !core.IsListenerNotFound(err) {
		t.Fatalf("expected deleted listener to be hidden, got %v", err)
	}
}

func TestDeliveryStore_RecordUpsertsByRequestID(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	recorder := factory.DeliveryRecorder()
	store := factory.Deliveries()

	requestID := "3a1c5f7e-0d2b-4c1e-9f6a-1b2c3d4e5f60"
	started := time.Now().UTC().Add(-time.Second)
	if err := recorder.RecordDelivery(ctx, core.DeliveryResult{
		RequestID:  requestID,
		Hook:       "user.created",
		ListenerID: "lst-1",
		URL:        "https://example.com/hook",
		State:      core.DeliveryFailed,
		Attempts:   3,
		StatusCode: 503,
		Err:        errors.New("listener unavailable"),
		History:    []core.DeliveryState{core.DeliveryPending, core.DeliveryInFlight, core.DeliveryFailed},
		StartedAt:  started,
		FinishedAt: started.Add(500 * time.Millisecond),
	}); err != nil {
		t.Fatalf("record failed delivery: %v", err)
	}
	if err := recorder.RecordDelivery(ctx, core.DeliveryResult{
		RequestID:  requestID,
		Hook:       "user.created",
		ListenerID: "lst-1",
		URL:        "https://example.com/hook",
		State:      core.DeliveryDelivered,
		Attempts:   1,
		StatusCode: 200,
		History:    []core.DeliveryState{core.DeliveryPending, core.DeliveryInFlight, core.DeliveryDelivered},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}); err != nil {
		t.Fatalf("record delivered: %v", err)
	}

	results, err := store.ListByListener(ctx, "lst-1", 10)
	if err != nil {
		t.Fatalf("list by listener: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a single row per request, got %d", len(results))
	}
	got := results[0]
	if got.State != core.DeliveryDelivered || got.StatusCode != 200 || got.Attempts != 1 {
		t.Fatalf("expected latest outcome to win, got %+v", got)
	}
	if got.Err != nil {
		t.Fatalf("expected error to be cleared, got %v", got.Err)
	}
	if len(got.History) != 3 || got.History[2] != core.DeliveryDelivered {
		t.Fatalf("unexpected history %v", got.History)
	}

	if err := recorder.RecordDelivery(ctx, core.DeliveryResult{}); err == nil {
		t.Fatalf("expected error for missing request id")
	}
}

func TestOpen_RejectsUnknownDrivers(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), core.DatabaseConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Open(context.Background(), core.DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:hooks-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Open(context.Background(), core.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         dsn,
		PingTimeout: time.Second,
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}
