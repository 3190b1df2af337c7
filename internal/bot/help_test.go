package bot

import (
	"context"
	"strings"
	"testing"

	"keybot/internal/domain"
)

func TestRenderHelp_OrderAndVisibility(t *testing.T) {
	r := NewRegistry(testLogger())
	must := func(cmd Command) {
		t.Helper()
		if err := r.Register(cmd); err != nil {
			t.Fatalf("register %q: %v", cmd.Pattern, err)
		}
	}
	must(Command{Pattern: `^\.ping`, Trigger: ".ping", Help: "Replies with pong!", Handler: noopHandler})
	must(Command{Pattern: `\bbadword\b`, Trigger: "badword", Help: "never shown", Hidden: true, Handler: noopHandler})
	must(Command{Pattern: `^\.roll`, Trigger: ".roll", Help: "Rolls dice", Handler: noopHandler})

	out := renderHelp(r)
	if strings.Contains(out, "badword") {
		t.Fatalf("hidden command leaked into help:\n%s", out)
	}
	ping := strings.Index(out, "`.ping`")
	roll := strings.Index(out, "`.roll`")
	if ping < 0 || roll < 0 {
		t.Fatalf("visible commands missing from help:\n%s", out)
	}
	if ping > roll {
		t.Fatalf("help must list commands in registration order:\n%s", out)
	}
	if !strings.Contains(out, "```    Replies with pong!```") {
		t.Fatalf("help text must appear verbatim:\n%s", out)
	}
}

func TestRenderHelp_EmptyHelpStillListed(t *testing.T) {
	r := NewRegistry(testLogger())
	if err := r.Register(Command{Pattern: `^\.mystery`, Trigger: ".mystery", Handler: noopHandler}); err != nil {
		t.Fatalf("register: %v", err)
	}
	out := renderHelp(r)
	if !strings.Contains(out, "`.mystery`") {
		t.Fatalf("command with no help text must still be listed:\n%s", out)
	}
}

func TestHelpCommand_RepliesOnAskingSurface(t *testing.T) {
	fb := newFakeBackend()
	fb.setUserUnread("alice", true)
	fb.directMsgs["alice"] = []domain.ChatMessage{{ID: "1", Sender: "alice", Body: ".help"}}

	b := newTestBot(t, fb, nil)
	echo(t, b, `^\.ping`, "pong!", true)

	if err := b.RunCycle(context.Background(), true); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(fb.sends) != 1 {
		t.Fatalf("expected the help reply, got %v", fb.sends)
	}
	got := fb.sends[0]
	if got.Kind != domain.KindIndividual || got.User != "alice" {
		t.Fatalf("help must reply where it was asked: %+v", got)
	}
	if !strings.Contains(got.Body, "`"+DefaultHelpTrigger+"`") {
		t.Fatalf("help must describe itself:\n%s", got.Body)
	}
	if !strings.Contains(got.Body, "`^\\.ping`") {
		t.Fatalf("registered command missing from help:\n%s", got.Body)
	}
}

func TestHelpCommand_RegisteredFirstWinsOverLaterPatterns(t *testing.T) {
	fb := newFakeBackend()
	fb.setTeamUnread("crew", "bots", true)
	fb.teamMsgs["crew#bots"] = []domain.ChatMessage{{ID: "1", Sender: "alice", Body: ".help"}}

	b := newTestBot(t, fb, map[string][]string{"crew": {"bots"}})
	// A later registration whose pattern also matches ".help" must lose.
	echo(t, b, `help`, "greedy", true)

	if err := b.RunCycle(context.Background(), true); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(fb.sends) != 1 {
		t.Fatalf("expected 1 reply, got %v", fb.sends)
	}
	if fb.sends[0].Body == "@alice, greedy" {
		t.Fatal("the implicitly registered help command must match first")
	}
}
