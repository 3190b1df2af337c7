// Package bot implements the message dispatch engine: an ordered command
// registry, the unread-conversation poll cycle, first-match routing, and
// reply addressing. The engine is single-threaded by design: one poll cycle
// runs to completion before the next begins, so handlers see a serialized,
// deterministic view of each cycle's messages.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"keybot/internal/domain"
)

const (
	DefaultHelpPattern = `^\.help`
	DefaultHelpTrigger = ".help"
	DefaultInterval    = time.Second
)

// DispatchRecord is the advisory log entry written for every dispatched
// command. The engine only writes these; it never reads them back.
type DispatchRecord struct {
	Msg     domain.Message
	Trigger string
	Output  string
	Err     string
}

// DispatchRecorder persists dispatch records. Optional.
type DispatchRecorder interface {
	Record(ctx context.Context, rec DispatchRecord) error
}

// Options configures a Bot.
type Options struct {
	Backend     domain.Backend
	Teams       map[string][]string // team name -> channels to monitor
	HelpPattern string              // defaults to DefaultHelpPattern
	HelpTrigger string              // defaults to DefaultHelpTrigger
	Interval    time.Duration       // poll interval, defaults to DefaultInterval
	Recorder    DispatchRecorder    // optional dispatch history
	Logger      *slog.Logger
}

// Bot wires the registry, router, responder and poll cycle together around
// one backend.
type Bot struct {
	registry  *Registry
	router    *Router
	responder *Responder
	backend   domain.Backend
	teams     map[string][]string
	interval  time.Duration
	recorder  DispatchRecorder
	logger    *slog.Logger

	// firstCycleDone flips to true after the initial drain cycle and is
	// never reset. Written exactly once, from Run.
	firstCycleDone bool
}

func New(opts Options) (*Bot, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("bot: nil backend")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HelpPattern == "" {
		opts.HelpPattern = DefaultHelpPattern
	}
	if opts.HelpTrigger == "" {
		opts.HelpTrigger = DefaultHelpTrigger
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	registry := NewRegistry(opts.Logger)
	responder := NewResponder(opts.Backend, opts.Logger)

	b := &Bot{
		registry:  registry,
		router:    NewRouter(registry, opts.Logger),
		responder: responder,
		backend:   opts.Backend,
		teams:     opts.Teams,
		interval:  opts.Interval,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
	}

	if err := registry.Register(helpCommand(opts.HelpPattern, opts.HelpTrigger, registry, responder)); err != nil {
		return nil, fmt.Errorf("bot: help command: %w", err)
	}
	return b, nil
}

// Register adds a command. All registration must happen before Run; the
// registry is lock-free shared state afterwards.
func (b *Bot) Register(cmd Command) error {
	return b.registry.Register(cmd)
}

// Registry exposes the command table, read-only once polling starts.
func (b *Bot) Registry() *Registry { return b.registry }

// Responder returns the reply-addressing component for handlers to use.
func (b *Bot) Responder() *Responder { return b.responder }
