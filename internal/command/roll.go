package command

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"keybot/internal/bot"
	"keybot/internal/domain"
)

const (
	minDice  = 1
	maxDice  = 10
	minSides = 2
	maxSides = 100

	defaultDice  = 2
	defaultSides = 6
)

const rollBoundsReply = "`<dice>` must be a number from 1 to 10, and " +
	"`<sides>` must be a number from 2 to 100"

// Roll rolls dice: ".roll <dice> <sides>". With no arguments it rolls 2
// six-sided dice; out-of-range or malformed arguments get a bounds reply
// rather than dice results.
func Roll(responder *bot.Responder, logger *slog.Logger) bot.Command {
	return bot.Command{
		Pattern: `^\.roll`,
		Trigger: ".roll <dice> <sides>",
		Help: "Roll <dice> amount of <sides>-sided dice. If <dice> and <sides> are not " +
			"provided, default is to roll 2 6-sided dice. If provided, <dice> must be " +
			"between 1 and 10, and <sides> must be between 2 and 100.",
		Handler: func(ctx context.Context, msg domain.Message) (string, error) {
			tokens, err := shlex.Split(msg.Body)
			if err != nil {
				// Unbalanced quotes and the like. Not a recognized
				// command; never aborts the cycle.
				logger.Warn("cannot tokenize message body", "body", msg.Body, "err", err)
				return "", nil
			}

			dice, sides := defaultDice, defaultSides
			switch {
			case len(tokens) >= 3:
				d, errD := strconv.Atoi(tokens[1])
				s, errS := strconv.Atoi(tokens[2])
				if errD != nil || errS != nil ||
					d < minDice || d > maxDice || s < minSides || s > maxSides {
					return responder.Respond(ctx, rollBoundsReply, msg, true)
				}
				dice, sides = d, s
			case len(tokens) == 2:
				if _, err := strconv.Atoi(tokens[1]); err != nil {
					return responder.Respond(ctx, rollBoundsReply, msg, true)
				}
				// A single numeric argument rolls the defaults.
			}

			rolls := make([]int, dice)
			total := 0
			for i := range rolls {
				rolls[i] = rand.Intn(sides) + 1
				total += rolls[i]
			}

			var sb strings.Builder
			sb.WriteString("You rolled a ")
			for _, n := range rolls[:len(rolls)-1] {
				fmt.Fprintf(&sb, "`%d`, ", n)
			}
			fmt.Fprintf(&sb, "and `%d`, for a total of `%d`.", rolls[len(rolls)-1], total)

			return responder.Respond(ctx, sb.String(), msg, true)
		},
	}
}
