package bot

import (
	"context"
	"testing"

	"keybot/internal/domain"
)

func noopHandler(ctx context.Context, msg domain.Message) (string, error) {
	return "", nil
}

func TestRegistry_RegistrationOrderIsMatchOrder(t *testing.T) {
	r := NewRegistry(testLogger())
	for _, p := range []string{"zebra", "apple", "mango"} {
		if err := r.Register(Command{Pattern: p, Handler: noopHandler}); err != nil {
			t.Fatalf("register %q: %v", p, err)
		}
	}

	cmds := r.All()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	for i, want := range []string{"zebra", "apple", "mango"} {
		if cmds[i].Pattern != want {
			t.Fatalf("position %d: got %q, want %q", i, cmds[i].Pattern, want)
		}
	}
}

func TestRegistry_InvalidPatternRejected(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(Command{Pattern: "(unclosed", Handler: noopHandler}); err == nil {
		t.Fatal("expected error for invalid regex")
	}
	if r.Len() != 0 {
		t.Fatalf("failed registration must not grow the registry, len=%d", r.Len())
	}
}

func TestRegistry_EmptyPatternRejected(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(Command{Handler: noopHandler}); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestRegistry_NilHandlerRejected(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(Command{Pattern: "x"}); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestRegistry_DuplicatePatternOverwritesInPlace(t *testing.T) {
	r := NewRegistry(testLogger())
	must := func(cmd Command) {
		t.Helper()
		if err := r.Register(cmd); err != nil {
			t.Fatalf("register %q: %v", cmd.Pattern, err)
		}
	}
	must(Command{Pattern: "first", Handler: noopHandler, Help: "one"})
	must(Command{Pattern: "second", Handler: noopHandler})
	must(Command{Pattern: "first", Handler: noopHandler, Help: "replaced"})

	if r.Len() != 2 {
		t.Fatalf("overwrite must not grow the registry, len=%d", r.Len())
	}
	cmds := r.All()
	if cmds[0].Pattern != "first" || cmds[0].Help != "replaced" {
		t.Fatalf("overwritten command must keep its position: %+v", cmds[0])
	}
	if cmds[1].Pattern != "second" {
		t.Fatalf("unrelated command moved: %+v", cmds[1])
	}
}

func TestRegistry_TriggerDefaultsToPattern(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(Command{Pattern: `^\.ping`, Handler: noopHandler}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cmd, ok := r.Lookup(`^\.ping`)
	if !ok {
		t.Fatal("expected command to be found by its literal pattern")
	}
	if cmd.Trigger != `^\.ping` {
		t.Fatalf("trigger should default to the pattern, got %q", cmd.Trigger)
	}
}

func TestRegistry_MatchIsUnanchored(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(Command{Pattern: "ping", Handler: noopHandler}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := r.match("pingback later"); !ok {
		t.Fatal("bare pattern must match anywhere in the body")
	}
	if _, ok := r.match("no trigger here"); ok {
		t.Fatal("unexpected match")
	}
}
