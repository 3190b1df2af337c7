package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"keybot/internal/domain"
	"keybot/internal/metrics"
)

// Run drains the unread backlog once without dispatching, then polls on a
// fixed interval until ctx is cancelled. The drain keeps the bot from
// flooding channels with replies to messages that piled up while it was
// offline. ctx is only checked between cycles: a cycle in progress always
// completes, so every message fetched (and thereby marked read) has been
// offered to the router.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("draining unread backlog")
	if err := b.RunCycle(ctx, false); err != nil {
		b.logger.Warn("drain cycle failed", "err", err)
	}
	b.firstCycleDone = true

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	b.logger.Info("polling started", "interval", b.interval)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("polling stopped")
			return nil
		case <-ticker.C:
			if err := b.RunCycle(ctx, true); err != nil {
				b.logger.Warn("poll cycle failed", "err", err)
			}
		}
	}
}

// RunCycle executes one poll cycle: fetch a fresh conversation snapshot,
// read the new messages of every monitored unread surface, and feed each
// one to the router when dispatchEnabled is true. Teams are processed
// before individuals; messages stay in backend order. A fetch failure
// skips that surface for this cycle only.
func (b *Bot) RunCycle(ctx context.Context, dispatchEnabled bool) error {
	start := time.Now()
	metrics.CyclesTotal.Inc()

	snap, err := b.backend.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	metrics.UnreadConversations.Set(int64(countUnread(snap)))

	for _, team := range sortedKeys(b.teams) {
		snapChannels, ok := snap.Teams[team]
		if !ok {
			continue
		}
		for _, channel := range b.teams[team] {
			state, ok := snapChannels[channel]
			if !ok || !state.Unread {
				continue
			}
			msgs, err := b.backend.FetchTeamMessages(ctx, team, channel)
			if err != nil {
				b.logger.Warn("skipping team channel this cycle",
					"team", team, "channel", channel, "err", err)
				continue
			}
			for _, m := range msgs {
				b.handleMessage(ctx, domain.Message{
					Kind:    domain.KindTeam,
					Body:    m.Body,
					Sender:  m.Sender,
					Team:    team,
					Channel: channel,
				}, dispatchEnabled)
			}
		}
	}

	for _, user := range sortedKeys(snap.Individuals) {
		if !snap.Individuals[user].Unread {
			continue
		}
		msgs, err := b.backend.FetchDirectMessages(ctx, user)
		if err != nil {
			b.logger.Warn("skipping direct conversation this cycle",
				"user", user, "err", err)
			continue
		}
		for _, m := range msgs {
			b.handleMessage(ctx, domain.Message{
				Kind:   domain.KindIndividual,
				Body:   m.Body,
				Sender: m.Sender,
			}, dispatchEnabled)
		}
	}

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg domain.Message, dispatchEnabled bool) {
	metrics.MessagesTotal.Inc()
	if !dispatchEnabled {
		return
	}

	res, ok := b.router.Dispatch(ctx, msg)
	if !ok {
		// Not a command. Silence is the designed behavior.
		return
	}
	metrics.DispatchesTotal.Inc()

	attrs := []any{
		"trigger", res.Trigger,
		"kind", msg.Kind,
		"sender", msg.Sender,
		"message", msg.Body,
		"result", res.Output,
	}
	if msg.Kind == domain.KindTeam {
		attrs = append(attrs, "team", msg.Team, "channel", msg.Channel)
	}
	if res.Err != nil {
		attrs = append(attrs, "err", res.Err)
	}
	b.logger.Info("command dispatched", attrs...)

	if b.recorder != nil {
		rec := DispatchRecord{Msg: msg, Trigger: res.Trigger, Output: res.Output}
		if res.Err != nil {
			rec.Err = res.Err.Error()
		}
		if err := b.recorder.Record(ctx, rec); err != nil {
			b.logger.Warn("cannot record dispatch", "err", err)
		}
	}
}

func countUnread(snap *domain.Snapshot) int {
	n := 0
	for _, channels := range snap.Teams {
		for _, st := range channels {
			if st.Unread {
				n++
			}
		}
	}
	for _, st := range snap.Individuals {
		if st.Unread {
			n++
		}
	}
	return n
}

// sortedKeys keeps team and user iteration deterministic across cycles.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
