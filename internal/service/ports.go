package service

import (
	"context"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/model"
)

// The store interfaces below are satisfied by the pgx repositories and by
// the in-memory memrepo package.

type UserStore interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error)
	UpdatePreferences(ctx context.Context, id string, req *model.PreferencesRequest) (*model.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	SetAvatar(ctx context.Context, id string, avatar *string) (*model.User, error)
	TouchLastActive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type ChannelStore interface {
	Create(ctx context.Context, c *model.Channel) (*model.Channel, error)
	GetByID(ctx context.Context, id string) (*model.Channel, error)
	List(ctx context.Context) ([]*model.Channel, error)
	Update(ctx context.Context, id string, req *model.ChannelRequest) (*model.Channel, error)
	Delete(ctx context.Context, id string) error
}

type ConversationStore interface {
	Create(ctx context.Context, nc *model.NewConversation) (*model.Conversation, error)
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, error)
	Update(ctx context.Context, id string, req *model.UpdateConversationRequest) (*model.Conversation, error)
	UpdateLocation(ctx context.Context, id string, req *model.LocationRequest) (*model.Conversation, error)
}

type MessageStore interface {
	Create(ctx context.Context, nm *model.NewMessage, preview string) (*model.Message, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Message, error)
	ListByConversation(ctx context.Context, conversationID string, includePrivate bool) ([]*model.Message, error)
	AdvanceStatus(ctx context.Context, id string, status model.DeliveryStatus) (*model.Message, bool, error)
	MarkConversationRead(ctx context.Context, conversationID string, reader model.SenderType) ([]string, error)
}

type ReactionStore interface {
	Toggle(ctx context.Context, messageID, userID, userName, emoji string) (*model.ReactionResult, error)
	ListForMessages(ctx context.Context, messageIDs []string) (map[string][]model.Reaction, error)
}

type SessionStore interface {
	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Publisher fans realtime events out to connected websocket clients.
type Publisher interface {
	Publish(env *model.Envelope)
}

// Notifier alerts agents outside the console about new activity.
type Notifier interface {
	ConversationCreated(conv *model.Conversation)
	ClientMessage(conv *model.Conversation, msg *model.Message)
}

type nopPublisher struct{}

func (nopPublisher) Publish(*model.Envelope) {}

type nopNotifier struct{}

func (nopNotifier) ConversationCreated(*model.Conversation)           {}
func (nopNotifier) ClientMessage(*model.Conversation, *model.Message) {}
