package command

import (
	"context"
	"fmt"
	"time"

	"keybot/internal/bot"
	"keybot/internal/domain"
)

// startTime records when the process started for the .uptime command.
var startTime = time.Now()

// Uptime answers ".uptime" with how long the bot has been running.
func Uptime(responder *bot.Responder) bot.Command {
	return bot.Command{
		Pattern: `^\.uptime`,
		Trigger: ".uptime",
		Help:    "Respond with bot uptime",
		Handler: func(ctx context.Context, msg domain.Message) (string, error) {
			uptime := time.Since(startTime).Round(time.Second)
			return responder.Respond(ctx, fmt.Sprintf("Uptime: %s", uptime), msg, false)
		},
	}
}
