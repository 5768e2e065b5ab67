package types

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents one inbound chat message or one outbound reply.
type Message struct {
	ID        string
	Content   string
	Role      string // "user", "assistant", "system"
	ChannelID string // transport identifier (e.g. "mattermost", "cli")
	ChatID    string // chat room inside the transport
	UserID    string
	RequestID string
	Mention   bool // true when the bot was @-mentioned
	Meta      map[string]interface{}
}

// Bot consumes one inbound message and produces at most one reply.
// An empty reply content means nothing is sent back.
type Bot interface {
	Process(ctx context.Context, msg Message) (Message, error)
	Name() string
}

// Channel is an input/output transport (Mattermost, CLI).
type Channel interface {
	Start(ctx context.Context, handler func(Message)) error
	Send(ctx context.Context, msg Message) error
	ID() string
}

// Gateway orchestrates channels and the bot.
type Gateway interface {
	RegisterChannel(c Channel)
	Start(ctx context.Context) error
}
