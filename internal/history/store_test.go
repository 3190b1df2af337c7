package history

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"keybot/internal/bot"
	"keybot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"), testLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := bot.DispatchRecord{
		Msg: domain.Message{
			Kind:    domain.KindTeam,
			Body:    ".ping",
			Sender:  "alice",
			Team:    "crew",
			Channel: "bots",
		},
		Trigger: ".ping",
		Output:  `{"ok":true}`,
	}
	if err := s.Record(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Kind != "team" || e.Team != "crew" || e.Channel != "bots" {
		t.Fatalf("surface fields lost: %+v", e)
	}
	if e.Sender != "alice" || e.Trigger != ".ping" || e.Body != ".ping" {
		t.Fatalf("dispatch fields lost: %+v", e)
	}
	if e.Result != `{"ok":true}` || e.Error != "" {
		t.Fatalf("result fields lost: %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Fatal("created_at not populated")
	}
}

func TestStore_RecentNewestFirstAndLimited(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := bot.DispatchRecord{
			Msg:     domain.Message{Kind: domain.KindIndividual, Sender: "alice", Body: fmt.Sprintf("msg-%d", i)},
			Trigger: ".ping",
		}
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	entries, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("limit not honored, got %d entries", len(entries))
	}
	if entries[0].Body != "msg-4" {
		t.Fatalf("expected newest first, got %q", entries[0].Body)
	}
}

func TestStore_RecordedErrorRoundTrips(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := bot.DispatchRecord{
		Msg:     domain.Message{Kind: domain.KindIndividual, Sender: "bob", Body: ".roll"},
		Trigger: ".roll <dice> <sides>",
		Err:     "send to bob: rate limited",
	}
	if err := s.Record(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if entries[0].Error != "send to bob: rate limited" {
		t.Fatalf("error text lost: %+v", entries[0])
	}
}
