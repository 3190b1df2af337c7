package domain

// ConversationKind says which kind of surface a message arrived on.
type ConversationKind string

const (
	KindTeam       ConversationKind = "team"
	KindIndividual ConversationKind = "individual"
)

// Message is the normalized context handed to command handlers. It is
// constructed fresh for every inbound message and passed by value; handlers
// must not retain it.
type Message struct {
	Kind    ConversationKind
	Body    string
	Sender  string
	Team    string // team messages only
	Channel string // team messages only
}

// ChatMessage is a single message as returned by a backend fetch,
// in backend order.
type ChatMessage struct {
	ID     string
	Sender string
	Body   string
}
