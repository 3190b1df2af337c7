package domain

import "context"

// ChannelState is the unread flag for one conversation in a Snapshot.
type ChannelState struct {
	Unread bool
}

// Snapshot is the full conversation state for a single poll tick. It is
// rebuilt from scratch on every tick and never merged with a prior one.
type Snapshot struct {
	// Teams maps team name -> channel name -> state.
	Teams map[string]map[string]ChannelState
	// Individuals maps the counterpart's username -> state.
	Individuals map[string]ChannelState
}

// Backend is the narrow contract the dispatch engine consumes from a chat
// backend. Fetching messages implicitly marks them read on the backend side;
// the engine performs no separate acknowledgment.
type Backend interface {
	// ListConversations returns a fresh snapshot of all conversations.
	ListConversations(ctx context.Context) (*Snapshot, error)

	// FetchTeamMessages returns the new messages in a team channel,
	// in backend order.
	FetchTeamMessages(ctx context.Context, team, channel string) ([]ChatMessage, error)

	// FetchDirectMessages returns the new messages in the direct
	// conversation with user, in backend order.
	FetchDirectMessages(ctx context.Context, user string) ([]ChatMessage, error)

	// SendTeamMessage posts body to a team channel and returns the
	// backend acknowledgment serialized for logging.
	SendTeamMessage(ctx context.Context, team, channel, body string) (string, error)

	// SendDirectMessage posts body to a user and returns the backend
	// acknowledgment serialized for logging.
	SendDirectMessage(ctx context.Context, user, body string) (string, error)

	// CurrentUsername returns the bot's own username on this backend.
	CurrentUsername(ctx context.Context) (string, error)
}
