package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"keybot/internal/domain"
)

// Handler is a command handler. It receives the normalized message context
// and returns the serialized backend acknowledgment of whatever reply it
// chose to send. An empty result with a nil error means the handler decided
// not to reply.
type Handler func(ctx context.Context, msg domain.Message) (string, error)

// Command describes a single registration: a regex trigger pattern, the
// handler bound to it, and the metadata shown by the help command.
//
// Patterns are matched unanchored against the whole message body, so a
// bare pattern like "ping" also matches "pingback". Commands that want
// prefix or word anchoring must express it in the pattern itself
// (`^\.ping`, `\bping\b`).
type Command struct {
	Pattern string  // regex trigger, also the registry key
	Handler Handler //
	Trigger string  // display trigger for help output; defaults to Pattern
	Help    string  // help text; may be empty
	Hidden  bool    // excluded from help output when true
}

type entry struct {
	re  *regexp.Regexp
	cmd Command
}

// Registry is the ordered trigger-pattern table. Registration order is
// first-class: it is the router's match priority and the help listing
// order. All registration happens before polling starts; the registry is
// read-only afterwards, so it carries no lock.
type Registry struct {
	entries []entry
	index   map[string]int // literal pattern -> position in entries
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		index:  make(map[string]int),
		logger: logger,
	}
}

// Register adds cmd to the registry. Registering the same literal pattern
// again overwrites the earlier entry in place, keeping its position so match
// priority and help order stay stable.
func (r *Registry) Register(cmd Command) error {
	if cmd.Pattern == "" {
		return fmt.Errorf("register: empty trigger pattern")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("register %q: nil handler", cmd.Pattern)
	}
	re, err := regexp.Compile(cmd.Pattern)
	if err != nil {
		return fmt.Errorf("register %q: %w", cmd.Pattern, err)
	}
	if cmd.Trigger == "" {
		cmd.Trigger = cmd.Pattern
	}

	if i, ok := r.index[cmd.Pattern]; ok {
		r.entries[i] = entry{re: re, cmd: cmd}
		r.logger.Debug("command overwritten", "pattern", cmd.Pattern, "trigger", cmd.Trigger)
		return nil
	}
	r.index[cmd.Pattern] = len(r.entries)
	r.entries = append(r.entries, entry{re: re, cmd: cmd})
	r.logger.Debug("command registered", "pattern", cmd.Pattern, "trigger", cmd.Trigger)
	return nil
}

// Lookup returns the command registered under the literal pattern.
func (r *Registry) Lookup(pattern string) (Command, bool) {
	i, ok := r.index[pattern]
	if !ok {
		return Command{}, false
	}
	return r.entries[i].cmd, true
}

// All returns every registered command in registration order.
func (r *Registry) All() []Command {
	cmds := make([]Command, len(r.entries))
	for i, e := range r.entries {
		cmds[i] = e.cmd
	}
	return cmds
}

// Len returns the number of registered commands.
func (r *Registry) Len() int { return len(r.entries) }

// match returns the first entry, by registration order, whose pattern
// matches anywhere in body.
func (r *Registry) match(body string) (entry, bool) {
	for _, e := range r.entries {
		if e.re.MatchString(body) {
			return e, true
		}
	}
	return entry{}, false
}
