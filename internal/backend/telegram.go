package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"keybot/internal/domain"
)

// telegramGeneralChannel is the single channel name Telegram group chats
// are exposed under; Telegram has no sub-channels inside a group.
const telegramGeneralChannel = "general"

// Telegram adapts the Telegram Bot API to the domain.Backend poll contract.
// Updates are pulled synchronously with getUpdates (offset-tracked) during
// ListConversations and buffered per conversation; the matching Fetch call
// drains the buffer, which is this adapter's version of "fetching marks
// read". Group chats appear as teams (title -> "general"), private chats as
// individuals. Like the rest of the engine it is single-threaded: one poll
// cycle at a time, so no locking.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger

	offset   int
	groupIDs map[string]int64 // group title -> chat ID
	userIDs  map[string]int64 // username -> chat ID

	pendingTeams  map[string][]domain.ChatMessage // group title -> buffered messages
	pendingDirect map[string][]domain.ChatMessage // username -> buffered messages
}

var _ domain.Backend = (*Telegram)(nil)

type TelegramConfig struct {
	Token  string
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	return &Telegram{
		bot:           bot,
		logger:        cfg.Logger,
		groupIDs:      make(map[string]int64),
		userIDs:       make(map[string]int64),
		pendingTeams:  make(map[string][]domain.ChatMessage),
		pendingDirect: make(map[string][]domain.ChatMessage),
	}, nil
}

func (t *Telegram) CurrentUsername(ctx context.Context) (string, error) {
	return t.bot.Self.UserName, nil
}

// ListConversations drains pending Telegram updates into per-conversation
// buffers and reports every known conversation, unread when its buffer is
// non-empty.
func (t *Telegram) ListConversations(ctx context.Context) (*domain.Snapshot, error) {
	u := tgbotapi.NewUpdate(t.offset)
	u.Timeout = 0
	updates, err := t.bot.GetUpdates(u)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}

	for _, update := range updates {
		if update.UpdateID >= t.offset {
			t.offset = update.UpdateID + 1
		}
		t.bucket(update)
	}

	snap := &domain.Snapshot{
		Teams:       make(map[string]map[string]domain.ChannelState),
		Individuals: make(map[string]domain.ChannelState),
	}
	for title := range t.groupIDs {
		snap.Teams[title] = map[string]domain.ChannelState{
			telegramGeneralChannel: {Unread: len(t.pendingTeams[title]) > 0},
		}
	}
	for user := range t.userIDs {
		snap.Individuals[user] = domain.ChannelState{Unread: len(t.pendingDirect[user]) > 0}
	}
	return snap, nil
}

func (t *Telegram) bucket(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}

	sender := msg.From.UserName
	if sender == "" {
		sender = msg.From.FirstName
	}
	chat := domain.ChatMessage{
		ID:     strconv.Itoa(msg.MessageID),
		Sender: sender,
		Body:   msg.Text,
	}

	switch {
	case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup():
		title := msg.Chat.Title
		t.groupIDs[title] = msg.Chat.ID
		t.pendingTeams[title] = append(t.pendingTeams[title], chat)
	case msg.Chat.IsPrivate():
		t.userIDs[sender] = msg.Chat.ID
		t.pendingDirect[sender] = append(t.pendingDirect[sender], chat)
	}
}

// FetchTeamMessages returns and clears the buffered messages of a group.
func (t *Telegram) FetchTeamMessages(ctx context.Context, team, channel string) ([]domain.ChatMessage, error) {
	if channel != telegramGeneralChannel {
		return nil, fmt.Errorf("telegram: unknown channel %q in %q", channel, team)
	}
	msgs := t.pendingTeams[team]
	delete(t.pendingTeams, team)
	return msgs, nil
}

// FetchDirectMessages returns and clears the buffered messages of a user.
func (t *Telegram) FetchDirectMessages(ctx context.Context, user string) ([]domain.ChatMessage, error) {
	msgs := t.pendingDirect[user]
	delete(t.pendingDirect, user)
	return msgs, nil
}

func (t *Telegram) SendTeamMessage(ctx context.Context, team, channel, body string) (string, error) {
	if channel != telegramGeneralChannel {
		return "", fmt.Errorf("telegram: unknown channel %q in %q", channel, team)
	}
	chatID, ok := t.groupIDs[team]
	if !ok {
		return "", fmt.Errorf("telegram: unknown group %q", team)
	}
	return t.send(chatID, body)
}

func (t *Telegram) SendDirectMessage(ctx context.Context, user, body string) (string, error) {
	chatID, ok := t.userIDs[user]
	if !ok {
		return "", fmt.Errorf("telegram: unknown user %q", user)
	}
	return t.send(chatID, body)
}

func (t *Telegram) send(chatID int64, body string) (string, error) {
	sent, err := t.bot.Send(tgbotapi.NewMessage(chatID, body))
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	ack, _ := json.Marshal(map[string]any{"message_id": sent.MessageID, "chat_id": chatID})
	return string(ack), nil
}
