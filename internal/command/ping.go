// Package command holds the bot's built-in commands. Each constructor
// returns a bot.Command ready to be registered; handlers reply through the
// responder they were built with.
package command

import (
	"context"

	"keybot/internal/bot"
	"keybot/internal/domain"
)

// DefaultPong is the reply text used when none is configured.
const DefaultPong = "pong!"

// Ping answers ".ping" with the configured pong text, @-mentioning the
// sender on team channels.
func Ping(responder *bot.Responder, pong string) bot.Command {
	if pong == "" {
		pong = DefaultPong
	}
	return bot.Command{
		Pattern: `^\.ping`,
		Trigger: ".ping",
		Help:    "Respond with '" + pong + "'",
		Handler: func(ctx context.Context, msg domain.Message) (string, error) {
			return responder.Respond(ctx, pong, msg, true)
		},
	}
}
