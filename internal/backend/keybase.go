// Package backend provides implementations of domain.Backend: the Keybase
// chat API CLI and a Telegram adapter.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"keybot/internal/domain"
)

// runnerFunc executes an external command and returns its stdout. Injected
// so tests can stub the keybase CLI.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Keybase implements domain.Backend on top of the `keybase chat api` CLI.
// All requests are JSON documents passed via -m; reading a conversation
// marks its messages read on the server, which is exactly the implicit-ack
// contract the poll cycle relies on.
type Keybase struct {
	runner   runnerFunc
	logger   *slog.Logger
	username string // cached after the first CurrentUsername call
}

var _ domain.Backend = (*Keybase)(nil)

func NewKeybase(logger *slog.Logger) *Keybase {
	return &Keybase{runner: runCommand, logger: logger}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// --- chat api wire types ---

type apiRequest struct {
	Method string     `json:"method"`
	Params *apiParams `json:"params,omitempty"`
}

type apiParams struct {
	Options apiOptions `json:"options"`
}

type apiOptions struct {
	TopicType string      `json:"topic_type,omitempty"`
	Channel   *apiChannel `json:"channel,omitempty"`
	Message   *apiMessage `json:"message,omitempty"`
}

type apiChannel struct {
	Name        string `json:"name"`
	MembersType string `json:"members_type,omitempty"`
	TopicName   string `json:"topic_name,omitempty"`
}

type apiMessage struct {
	Body string `json:"body"`
}

type listResponse struct {
	Result struct {
		Conversations []struct {
			Unread  bool `json:"unread"`
			Channel struct {
				Name        string `json:"name"`
				MembersType string `json:"members_type"`
				TopicName   string `json:"topic_name"`
			} `json:"channel"`
		} `json:"conversations"`
	} `json:"result"`
}

type readResponse struct {
	Result struct {
		Messages []struct {
			Msg struct {
				ID     int64 `json:"id"`
				Unread bool  `json:"unread"`
				Sender struct {
					Username string `json:"username"`
				} `json:"sender"`
				Content struct {
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"content"`
			} `json:"msg"`
		} `json:"messages"`
	} `json:"result"`
}

// chatAPI sends one request to `keybase chat api -m` and returns the raw
// JSON response.
func (k *Keybase) chatAPI(ctx context.Context, req apiRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat api request: %w", err)
	}
	out, err := k.runner(ctx, "keybase", "chat", "api", "-m", string(payload))
	if err != nil {
		return nil, fmt.Errorf("chat api %s: %w", req.Method, err)
	}
	return out, nil
}

// CurrentUsername returns the logged-in username from `keybase status -j`,
// cached after the first call.
func (k *Keybase) CurrentUsername(ctx context.Context) (string, error) {
	if k.username != "" {
		return k.username, nil
	}
	out, err := k.runner(ctx, "keybase", "status", "-j")
	if err != nil {
		return "", fmt.Errorf("keybase status: %w", err)
	}
	var status struct {
		Username string `json:"Username"`
	}
	if err := json.Unmarshal(out, &status); err != nil {
		return "", fmt.Errorf("parse keybase status: %w", err)
	}
	if status.Username == "" {
		return "", fmt.Errorf("keybase status: no username (not logged in?)")
	}
	k.username = status.Username
	return k.username, nil
}

// ListConversations maps the chat api "list" method onto a Snapshot. Team
// conversations are keyed by team and topic name; non-team conversations by
// the counterpart's name, with the bot's own username stripped out.
func (k *Keybase) ListConversations(ctx context.Context) (*domain.Snapshot, error) {
	username, err := k.CurrentUsername(ctx)
	if err != nil {
		return nil, err
	}

	out, err := k.chatAPI(ctx, apiRequest{
		Method: "list",
		Params: &apiParams{Options: apiOptions{TopicType: "CHAT"}},
	})
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("parse conversation list: %w", err)
	}

	snap := &domain.Snapshot{
		Teams:       make(map[string]map[string]domain.ChannelState),
		Individuals: make(map[string]domain.ChannelState),
	}
	for _, conv := range resp.Result.Conversations {
		if conv.Channel.MembersType == "team" {
			team := conv.Channel.Name
			if snap.Teams[team] == nil {
				snap.Teams[team] = make(map[string]domain.ChannelState)
			}
			snap.Teams[team][conv.Channel.TopicName] = domain.ChannelState{Unread: conv.Unread}
		} else {
			name := strings.ReplaceAll(conv.Channel.Name, username, "")
			name = strings.ReplaceAll(name, ",", "")
			snap.Individuals[name] = domain.ChannelState{Unread: conv.Unread}
		}
	}
	return snap, nil
}

// FetchTeamMessages reads the unread text messages of a team channel.
// Reading implicitly marks them read server-side.
func (k *Keybase) FetchTeamMessages(ctx context.Context, team, channel string) ([]domain.ChatMessage, error) {
	return k.readChannel(ctx, &apiChannel{
		Name:        team,
		MembersType: "team",
		TopicName:   channel,
	})
}

// FetchDirectMessages reads the unread text messages of a direct
// conversation.
func (k *Keybase) FetchDirectMessages(ctx context.Context, user string) ([]domain.ChatMessage, error) {
	username, err := k.CurrentUsername(ctx)
	if err != nil {
		return nil, err
	}
	return k.readChannel(ctx, &apiChannel{
		Name: fmt.Sprintf("%s,%s", username, user),
	})
}

func (k *Keybase) readChannel(ctx context.Context, ch *apiChannel) ([]domain.ChatMessage, error) {
	out, err := k.chatAPI(ctx, apiRequest{
		Method: "read",
		Params: &apiParams{Options: apiOptions{Channel: ch}},
	})
	if err != nil {
		return nil, err
	}

	var resp readResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}

	var msgs []domain.ChatMessage
	for _, m := range resp.Result.Messages {
		if !m.Msg.Unread || m.Msg.Content.Type != "text" {
			continue
		}
		msgs = append(msgs, domain.ChatMessage{
			ID:     strconv.FormatInt(m.Msg.ID, 10),
			Sender: m.Msg.Sender.Username,
			Body:   m.Msg.Content.Text.Body,
		})
	}
	return msgs, nil
}

// SendTeamMessage posts body to a team channel and returns the raw API
// response as the acknowledgment.
func (k *Keybase) SendTeamMessage(ctx context.Context, team, channel, body string) (string, error) {
	out, err := k.chatAPI(ctx, apiRequest{
		Method: "send",
		Params: &apiParams{Options: apiOptions{
			Channel: &apiChannel{
				Name:        team,
				MembersType: "team",
				TopicName:   channel,
			},
			Message: &apiMessage{Body: body},
		}},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SendDirectMessage posts body to a user and returns the raw API response
// as the acknowledgment.
func (k *Keybase) SendDirectMessage(ctx context.Context, user, body string) (string, error) {
	username, err := k.CurrentUsername(ctx)
	if err != nil {
		return "", err
	}
	out, err := k.chatAPI(ctx, apiRequest{
		Method: "send",
		Params: &apiParams{Options: apiOptions{
			Channel: &apiChannel{
				Name: fmt.Sprintf("%s,%s", username, user),
			},
			Message: &apiMessage{Body: body},
		}},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
