package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/cost"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func usage(id, provider, model, trackableID, user string, in, out, micro int64, at time.Time) *cost.UsageRecord {
	return &cost.UsageRecord{
		ID:             id,
		Trackable:      cost.Trackable{Type: "StudentWork", ID: trackableID},
		UserID:         user,
		Provider:       provider,
		Model:          model,
		RequestType:    "student_work_feedback",
		InputTokens:    in,
		OutputTokens:   out,
		TotalTokens:    in + out,
		CostMicroUnits: micro,
		CreatedAt:      at,
	}
}

func TestInsertAndListUsage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	recs := []*cost.UsageRecord{
		usage("u1", "anthropic", "claude-sonnet-4-5", "sw-1", "alice", 100, 50, 1050, base),
		usage("u2", "google", "gemini-2.5-flash", "sw-2", "alice", 10, 10, 28, base.Add(time.Minute)),
		usage("u3", "anthropic", "claude-sonnet-4-5", "sw-1", "bob", 200, 20, 900, base.Add(2*time.Minute)),
	}
	for _, r := range recs {
		if err := store.InsertUsage(ctx, r); err != nil {
			t.Fatalf("InsertUsage() error: %v", err)
		}
	}

	all, err := store.ListUsage(ctx, UsageFilter{})
	if err != nil {
		t.Fatalf("ListUsage() error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "u3" || all[2].ID != "u1" {
		t.Fatalf("ListUsage() order = %+v", all)
	}
	if all[2] != *recs[0] {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", all[2], *recs[0])
	}

	bySubject, err := store.ListUsage(ctx, UsageFilter{TrackableType: "StudentWork", TrackableID: "sw-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bySubject) != 2 {
		t.Errorf("filtered by subject = %d records, want 2", len(bySubject))
	}

	limited, err := store.ListUsage(ctx, UsageFilter{UserID: "alice", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != "u2" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestInsertUsageRejectsDuplicateID(t *testing.T) {
	store := setupTestStore(t)
	rec := usage("dup", "google", "gemini-2.5-flash", "sw", "u", 1, 1, 1, time.Now())
	if err := store.InsertUsage(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertUsage(context.Background(), rec); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestTotals(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, r := range []*cost.UsageRecord{
		usage("a", "anthropic", "claude-sonnet-4-5", "x", "alice", 100, 10, 450, now),
		usage("b", "anthropic", "claude-sonnet-4-5", "y", "alice", 200, 20, 900, now),
		usage("c", "google", "gemini-2.5-flash", "z", "bob", 1000, 100, 550, now),
	} {
		if err := store.InsertUsage(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	totals, err := store.Totals(ctx, UsageFilter{})
	if err != nil {
		t.Fatalf("Totals() error: %v", err)
	}
	want := []Total{
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Requests: 2, InputTokens: 300, OutputTokens: 30, CostMicroUnits: 1350},
		{Provider: "google", Model: "gemini-2.5-flash", Requests: 1, InputTokens: 1000, OutputTokens: 100, CostMicroUnits: 550},
	}
	if len(totals) != len(want) {
		t.Fatalf("Totals() = %+v", totals)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("Totals()[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}

	bob, err := store.Totals(ctx, UsageFilter{UserID: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bob) != 1 || bob[0].Provider != "google" {
		t.Errorf("Totals(bob) = %+v", bob)
	}
}

func TestSaveAndLoadResult(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	payload := map[string]any{"criteria": []any{map[string]any{"title": "Thesis"}}}
	err := store.SaveResult(ctx, Result{
		ID:          "ctx-1",
		UseCase:     "rubric_generation",
		SubjectType: "Assignment",
		SubjectID:   "as-1",
		UserID:      "teacher-1",
		Model:       "claude-sonnet-4-5",
		Payload:     payload,
	})
	if err != nil {
		t.Fatalf("SaveResult() error: %v", err)
	}

	raw, err := store.LatestResult(ctx, "rubric_generation", "Assignment", "as-1")
	if err != nil {
		t.Fatalf("LatestResult() error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["criteria"]; !ok {
		t.Errorf("decoded = %v", decoded)
	}

	if _, err := store.LatestResult(ctx, "rubric_generation", "Assignment", "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}
