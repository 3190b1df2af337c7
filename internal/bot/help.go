package bot

import (
	"context"
	"fmt"
	"strings"

	"keybot/internal/domain"
)

// helpCommand builds the self-describing help command. It is registered
// implicitly when the engine is constructed, under the configured pattern,
// and replies through the responder to whatever surface asked.
func helpCommand(pattern, trigger string, registry *Registry, responder *Responder) Command {
	return Command{
		Pattern: pattern,
		Trigger: trigger,
		Help:    "Show available commands",
		Handler: func(ctx context.Context, msg domain.Message) (string, error) {
			return responder.Respond(ctx, renderHelp(registry), msg, false)
		},
	}
}

// renderHelp lists every visible command in registration order as its
// display trigger followed by its help text. Commands with no help text
// still appear, with an empty body.
func renderHelp(registry *Registry) string {
	var sb strings.Builder
	for _, cmd := range registry.All() {
		if cmd.Hidden {
			continue
		}
		fmt.Fprintf(&sb, "`%s`\n", cmd.Trigger)
		fmt.Fprintf(&sb, "```    %s```\n\n", cmd.Help)
	}
	return sb.String()
}
