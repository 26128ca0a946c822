package tasks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/repositories"
	"github.com/desertthunder/ytb/internal/services"
	"github.com/desertthunder/ytb/internal/shared"
)

// mockProvider implements services.PlaylistProvider with scripted failures.
type mockProvider struct {
	insertCalls int
	deleteCalls int
	insertErr   map[string]error // keyed by videoID
	deleteErr   map[string]error // keyed by playlistItemID
}

func (m *mockProvider) List(ctx context.Context, playlistID, pageToken string) (*services.PlaylistPage, error) {
	return &services.PlaylistPage{}, nil
}

func (m *mockProvider) Insert(ctx context.Context, playlistID, videoID string) (string, error) {
	m.insertCalls++
	if err, ok := m.insertErr[videoID]; ok {
		return "", err
	}
	return "item-" + videoID, nil
}

func (m *mockProvider) Delete(ctx context.Context, playlistItemID string) error {
	m.deleteCalls++
	if err, ok := m.deleteErr[playlistItemID]; ok {
		return err
	}
	return nil
}

// mockResolver returns a fixed provider, or an error to simulate missing tokens.
type mockResolver struct {
	provider services.PlaylistProvider
	err      error
}

func (m *mockResolver) Provider(ctx context.Context, userID string) (services.PlaylistProvider, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.provider, nil
}

type engineFixture struct {
	db       *sql.DB
	engine   *BulkEngine
	provider *mockProvider
	actions  *repositories.ActionRepository
	guard    *repositories.IdempotencyRepository
	ledger   *repositories.QuotaLedger
}

func setupEngine(t *testing.T) *engineFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := shared.NewLogger(nil)
	provider := &mockProvider{insertErr: map[string]error{}, deleteErr: map[string]error{}}
	actions := repositories.NewActionRepository(db)
	guard := repositories.NewIdempotencyRepository(db)
	ledger := repositories.NewQuotaLedger(db, shared.QuotaConfig{DailyBudget: 10000}, logger)

	engine := NewBulkEngine(BulkEngineOpts{
		DB:        db,
		Resolver:  &mockResolver{provider: provider},
		Actions:   actions,
		Guard:     guard,
		Ledger:    ledger,
		Logger:    logger,
		RateLimit: 10000, // keep tests fast
	})

	return &engineFixture{
		db:       db,
		engine:   engine,
		provider: provider,
		actions:  actions,
		guard:    guard,
		ledger:   ledger,
	}
}

func forbiddenErr() error {
	return &services.ProviderError{Reason: services.ReasonForbidden, Code: 403, Message: "access forbidden"}
}

func TestBulkEngine_Add(t *testing.T) {
	t.Run("records usage and returns created items", func(t *testing.T) {
		f := setupEngine(t)

		result, err := f.engine.Add(context.Background(), "user-1", models.AddPayload{
			PlaylistID: "PL123",
			VideoIDs:   []string{"a", "b", "c"},
		})
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}

		if len(result.Created) != 3 {
			t.Fatalf("expected 3 created items, got %d", len(result.Created))
		}
		if result.Created[0].PlaylistItemID != "item-a" || result.Created[0].VideoID != "a" {
			t.Errorf("unexpected first created item: %+v", result.Created[0])
		}
		if result.EstimatedQuota != 150 {
			t.Errorf("expected estimated quota 150, got %d", result.EstimatedQuota)
		}
		if result.Action.Action.Status != models.ActionSuccess {
			t.Errorf("expected action success, got %s", result.Action.Action.Status)
		}
		if result.Idempotent {
			t.Error("fresh execution should not be idempotent")
		}

		snapshot, err := f.ledger.TodayQuota("user-1")
		if err != nil {
			t.Fatalf("failed to get quota: %v", err)
		}
		if snapshot.Used != 150 {
			t.Errorf("expected used 150, got %d", snapshot.Used)
		}
		if snapshot.Remain != 9850 {
			t.Errorf("expected remain 9850, got %d", snapshot.Remain)
		}

		globalUsed, _ := f.ledger.Usage(time.Now(), repositories.GlobalScope)
		if globalUsed != 150 {
			t.Errorf("expected global usage 150, got %d", globalUsed)
		}
	})

	t.Run("partial batch continues past failures", func(t *testing.T) {
		f := setupEngine(t)
		f.provider.insertErr["b"] = forbiddenErr()

		result, err := f.engine.Add(context.Background(), "user-1", models.AddPayload{
			PlaylistID: "PL123",
			VideoIDs:   []string{"a", "b", "c"},
		})
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}

		if f.provider.insertCalls != 3 {
			t.Errorf("a failed item must not stop the batch: expected 3 calls, got %d", f.provider.insertCalls)
		}
		if len(result.Created) != 2 {
			t.Errorf("expected 2 created items, got %d", len(result.Created))
		}
		if result.Action.Action.Status != models.ActionPartial {
			t.Errorf("expected partial status, got %s", result.Action.Action.Status)
		}

		var failed *models.ActionItem
		for i := range result.Action.Items {
			if result.Action.Items[i].Status == models.ItemFailed {
				failed = &result.Action.Items[i]
			}
		}
		if failed == nil {
			t.Fatal("expected one failed item")
		}
		if !strings.HasPrefix(failed.ErrorMessage, "forbidden") {
			t.Errorf("expected forbidden classification, got %q", failed.ErrorMessage)
		}
	})

	t.Run("no tokens is terminal", func(t *testing.T) {
		f := setupEngine(t)
		f.engine.resolver = &mockResolver{err: shared.ErrNoTokens}

		_, err := f.engine.Add(context.Background(), "user-1", models.AddPayload{
			PlaylistID: "PL123",
			VideoIDs:   []string{"a"},
		})
		if !errors.Is(err, shared.ErrNoTokens) {
			t.Fatalf("expected ErrNoTokens, got %v", err)
		}

		if f.provider.insertCalls != 0 {
			t.Error("no remote call should be made without tokens")
		}
		actions, _ := f.actions.Recent("user-1", 10)
		if len(actions) != 0 {
			t.Error("no action should persist without tokens")
		}
	})

	t.Run("invalid payload has no side effects", func(t *testing.T) {
		f := setupEngine(t)

		_, err := f.engine.Add(context.Background(), "user-1", models.AddPayload{PlaylistID: "PL123"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if f.provider.insertCalls != 0 {
			t.Error("no remote call should be made for invalid payload")
		}
	})
}

func TestBulkEngine_Remove(t *testing.T) {
	t.Run("second delete forbidden yields partial", func(t *testing.T) {
		f := setupEngine(t)
		f.provider.deleteErr["pi-2"] = forbiddenErr()

		result, err := f.engine.Remove(context.Background(), "user-1", models.RemovePayload{
			Items: []models.ItemRef{
				{PlaylistItemID: "pi-1", VideoID: "a"},
				{PlaylistItemID: "pi-2", VideoID: "b"},
			},
		})
		if err != nil {
			t.Fatalf("remove should report failure per item, not error: %v", err)
		}

		if result.Removed != 1 || result.Failed != 1 {
			t.Errorf("expected 1 removed / 1 failed, got %d / %d", result.Removed, result.Failed)
		}
		if result.Action.Action.Status != models.ActionPartial {
			t.Errorf("expected partial status, got %s", result.Action.Action.Status)
		}
		if !strings.HasPrefix(result.Action.Items[1].ErrorMessage, "forbidden") {
			t.Errorf("expected forbidden tag, got %q", result.Action.Items[1].ErrorMessage)
		}
		if result.EstimatedQuota != 100 {
			t.Errorf("expected estimated quota 100, got %d", result.EstimatedQuota)
		}
	})
}

func TestBulkEngine_Move(t *testing.T) {
	t.Run("both legs succeed", func(t *testing.T) {
		f := setupEngine(t)

		result, err := f.engine.Move(context.Background(), "user-1", models.MovePayload{
			TargetPlaylistID: "PL-dest",
			Items:            []models.ItemRef{{PlaylistItemID: "pi-1", VideoID: "a"}},
		})
		if err != nil {
			t.Fatalf("move failed: %v", err)
		}

		if len(result.Moved) != 1 {
			t.Fatalf("expected 1 moved item, got %d", len(result.Moved))
		}
		moved := result.Moved[0]
		if moved.From.PlaylistItemID != "pi-1" || moved.To.PlaylistItemID != "item-a" || moved.VideoID != "a" {
			t.Errorf("unexpected moved item: %+v", moved)
		}
		if result.EstimatedQuota != 100 {
			t.Errorf("expected estimated quota 100, got %d", result.EstimatedQuota)
		}
	})

	t.Run("delete ok insert failed is not moved", func(t *testing.T) {
		f := setupEngine(t)
		f.provider.insertErr["a"] = forbiddenErr()

		result, err := f.engine.Move(context.Background(), "user-1", models.MovePayload{
			TargetPlaylistID: "PL-dest",
			Items:            []models.ItemRef{{PlaylistItemID: "pi-1", VideoID: "a"}},
		})
		if err != nil {
			t.Fatalf("move failed: %v", err)
		}

		if len(result.Moved) != 0 {
			t.Errorf("expected empty moved list, got %d", len(result.Moved))
		}
		if result.Action.Items[0].Status != models.ItemFailed {
			t.Errorf("expected failed item, got %s", result.Action.Items[0].Status)
		}
		if result.Action.Action.Status != models.ActionFailed {
			t.Errorf("expected failed action, got %s", result.Action.Action.Status)
		}

		// Both legs were attempted, so both are charged.
		globalUsed, _ := f.ledger.Usage(time.Now(), repositories.GlobalScope)
		if globalUsed != 100 {
			t.Errorf("expected 100 units recorded, got %d", globalUsed)
		}
	})

	t.Run("delete failed skips insert leg", func(t *testing.T) {
		f := setupEngine(t)
		f.provider.deleteErr["pi-1"] = forbiddenErr()

		result, err := f.engine.Move(context.Background(), "user-1", models.MovePayload{
			TargetPlaylistID: "PL-dest",
			Items:            []models.ItemRef{{PlaylistItemID: "pi-1", VideoID: "a"}},
		})
		if err != nil {
			t.Fatalf("move failed: %v", err)
		}

		if f.provider.insertCalls != 0 {
			t.Error("insert leg should not run after a failed delete")
		}

		globalUsed, _ := f.ledger.Usage(time.Now(), repositories.GlobalScope)
		if globalUsed != 50 {
			t.Errorf("only the delete should be charged, got %d", globalUsed)
		}

		// The response reports attempted cost, matching the ledger.
		if result.EstimatedQuota != 50 {
			t.Errorf("expected estimated quota 50 for the attempted delete, got %d", result.EstimatedQuota)
		}
	})
}

func TestBulkEngine_Idempotency(t *testing.T) {
	t.Run("replay makes no remote calls", func(t *testing.T) {
		f := setupEngine(t)
		payload := models.AddPayload{
			PlaylistID:     "PL123",
			VideoIDs:       []string{"a", "b"},
			IdempotencyKey: "req-1",
		}

		first, err := f.engine.Add(context.Background(), "user-1", payload)
		if err != nil {
			t.Fatalf("first add failed: %v", err)
		}
		callsAfterFirst := f.provider.insertCalls

		second, err := f.engine.Add(context.Background(), "user-1", payload)
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}

		if f.provider.insertCalls != callsAfterFirst {
			t.Errorf("replay must not issue remote calls: %d -> %d", callsAfterFirst, f.provider.insertCalls)
		}
		if !second.Idempotent {
			t.Error("replay should be flagged idempotent")
		}
		if first.Idempotent {
			t.Error("first execution should not be flagged idempotent")
		}

		if len(second.Created) != len(first.Created) {
			t.Fatalf("replay item list differs: %d vs %d", len(second.Created), len(first.Created))
		}
		for i := range first.Created {
			if second.Created[i] != first.Created[i] {
				t.Errorf("replay item %d differs: %+v vs %+v", i, second.Created[i], first.Created[i])
			}
		}

		// Estimated quota on replay is recomputed from the fixed per-call cost.
		if second.EstimatedQuota != 2*CostInsert {
			t.Errorf("expected estimated quota %d, got %d", 2*CostInsert, second.EstimatedQuota)
		}

		// The ledger is charged once, not per replay.
		globalUsed, _ := f.ledger.Usage(time.Now(), repositories.GlobalScope)
		if globalUsed != 100 {
			t.Errorf("expected 100 units recorded once, got %d", globalUsed)
		}
	})

	t.Run("key owned by another user re-executes", func(t *testing.T) {
		f := setupEngine(t)
		payload := models.AddPayload{
			PlaylistID:     "PL123",
			VideoIDs:       []string{"a"},
			IdempotencyKey: "shared-key",
		}

		if _, err := f.engine.Add(context.Background(), "user-1", payload); err != nil {
			t.Fatalf("first add failed: %v", err)
		}
		callsAfterFirst := f.provider.insertCalls

		result, err := f.engine.Add(context.Background(), "user-2", payload)
		if err != nil {
			t.Fatalf("second user's add failed: %v", err)
		}

		if result.Idempotent {
			t.Error("another user's submission should not replay")
		}
		if f.provider.insertCalls != callsAfterFirst+1 {
			t.Errorf("expected re-execution, calls %d -> %d", callsAfterFirst, f.provider.insertCalls)
		}
	})

	t.Run("storage failure on replay aborts", func(t *testing.T) {
		f := setupEngine(t)
		payload := models.AddPayload{
			PlaylistID:     "PL123",
			VideoIDs:       []string{"a"},
			IdempotencyKey: "req-1",
		}

		if _, err := f.engine.Add(context.Background(), "user-1", payload); err != nil {
			t.Fatalf("first add failed: %v", err)
		}
		callsAfterFirst := f.provider.insertCalls

		// A broken schema makes the summary lookup fail with a storage
		// error rather than a missing record.
		if _, err := f.db.Exec("DROP TABLE action_items"); err != nil {
			t.Fatalf("failed to drop table: %v", err)
		}

		_, err := f.engine.Add(context.Background(), "user-1", payload)
		if err == nil {
			t.Fatal("expected error when the summary lookup fails")
		}
		if errors.Is(err, shared.ErrActionNotFound) {
			t.Fatalf("expected a storage error, got %v", err)
		}

		if f.provider.insertCalls != callsAfterFirst {
			t.Errorf("a storage fault must not re-execute remote calls: %d -> %d", callsAfterFirst, f.provider.insertCalls)
		}
	})

	t.Run("key without summary re-executes", func(t *testing.T) {
		f := setupEngine(t)

		// A registered key whose action row never persisted.
		if err := f.guard.Register("orphan-key", "missing-action"); err != nil {
			t.Fatalf("failed to register key: %v", err)
		}

		result, err := f.engine.Add(context.Background(), "user-1", models.AddPayload{
			PlaylistID:     "PL123",
			VideoIDs:       []string{"a"},
			IdempotencyKey: "orphan-key",
		})
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if result.Idempotent {
			t.Error("orphaned key should be treated as a miss")
		}
		if f.provider.insertCalls != 1 {
			t.Errorf("expected one insert, got %d", f.provider.insertCalls)
		}
	})
}
