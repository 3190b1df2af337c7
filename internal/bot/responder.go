package bot

import (
	"context"
	"fmt"
	"log/slog"

	"keybot/internal/domain"
	"keybot/internal/metrics"
)

// Responder addresses handler output back to the surface a message came
// from: the same team channel for team messages, the sender's direct
// conversation otherwise.
type Responder struct {
	backend domain.Backend
	logger  *slog.Logger
}

func NewResponder(backend domain.Backend, logger *slog.Logger) *Responder {
	return &Responder{backend: backend, logger: logger}
}

// Respond sends text back to the surface msg arrived on and returns the
// backend acknowledgment. For team messages mention=true prefixes the text
// with "@<sender>, "; the flag has no effect on direct replies. Send
// failures are returned to the caller without retry.
func (r *Responder) Respond(ctx context.Context, text string, msg domain.Message, mention bool) (string, error) {
	switch msg.Kind {
	case domain.KindTeam:
		if mention {
			text = fmt.Sprintf("@%s, %s", msg.Sender, text)
		}
		ack, err := r.backend.SendTeamMessage(ctx, msg.Team, msg.Channel, text)
		if err != nil {
			metrics.SendErrors.Inc()
			return "", fmt.Errorf("send to %s#%s: %w", msg.Team, msg.Channel, err)
		}
		return ack, nil

	case domain.KindIndividual:
		ack, err := r.backend.SendDirectMessage(ctx, msg.Sender, text)
		if err != nil {
			metrics.SendErrors.Inc()
			return "", fmt.Errorf("send to %s: %w", msg.Sender, err)
		}
		return ack, nil

	default:
		return "", fmt.Errorf("respond: unknown conversation kind %q", msg.Kind)
	}
}
