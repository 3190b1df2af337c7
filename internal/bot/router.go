package bot

import (
	"context"
	"fmt"
	"log/slog"

	"keybot/internal/domain"
)

// Result describes one handler invocation.
type Result struct {
	Pattern string // literal pattern that matched
	Trigger string // display trigger of the matched command
	Output  string // serialized backend ack returned by the handler
	Err     error  // handler error, already logged by the router
}

// Router dispatches message bodies to the first matching registered
// command. Registration order is match priority: when several patterns
// match the same body, only the earliest-registered handler runs.
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	return &Router{registry: registry, logger: logger}
}

// Dispatch routes msg to the first matching command. The second return is
// false when no pattern matched; that is silence by design, not an error.
// Handler faults (errors and panics) are absorbed here so one bad message
// never stops the rest of the cycle; they come back inside Result.Err.
func (r *Router) Dispatch(ctx context.Context, msg domain.Message) (Result, bool) {
	e, ok := r.registry.match(msg.Body)
	if !ok {
		return Result{}, false
	}

	res := Result{Pattern: e.cmd.Pattern, Trigger: e.cmd.Trigger}
	res.Output, res.Err = r.invoke(ctx, e.cmd.Handler, msg)
	if res.Err != nil {
		r.logger.Error("handler failed",
			"trigger", res.Trigger,
			"sender", msg.Sender,
			"err", res.Err,
		)
	}
	return res, true
}

// invoke runs the handler with panic recovery. The router guarantees
// at-most-one invocation per message.
func (r *Router) invoke(ctx context.Context, h Handler, msg domain.Message) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, msg)
}
