package command

import (
	"context"

	"keybot/internal/bot"
	"keybot/internal/domain"
)

const profanityReply = "Please dont use that kind of language in here."

// ProfanityFilter scolds senders of messages containing swear words. It is
// hidden from help output.
func ProfanityFilter(responder *bot.Responder) bot.Command {
	return bot.Command{
		Pattern: `\b(fuck|shit|ass|pussy|bitch)\b`,
		Trigger: "(profanity filter)",
		Hidden:  true,
		Handler: func(ctx context.Context, msg domain.Message) (string, error) {
			return responder.Respond(ctx, profanityReply, msg, true)
		},
	}
}
