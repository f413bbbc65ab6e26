package service

import (
	"context"
	"sync"
	"testing"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository/memrepo"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []*model.Envelope
}

func (r *recorder) Publish(env *model.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, env)
}

func (r *recorder) ofType(eventType string) []*model.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Envelope
	for _, e := range r.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type notified struct {
	mu            sync.Mutex
	conversations int
	messages      int
}

func (n *notified) ConversationCreated(*model.Conversation) {
	n.mu.Lock()
	n.conversations++
	n.mu.Unlock()
}

func (n *notified) ClientMessage(*model.Conversation, *model.Message) {
	n.mu.Lock()
	n.messages++
	n.mu.Unlock()
}

type fixture struct {
	ctx    context.Context
	store  *memrepo.Store
	pub    *recorder
	notify *notified

	convs *ConversationService
	msgs  *MessageService
	users *UserService

	admin, client, other    *model.User
	adminP, clientP, otherP *model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memrepo.New()
	f := &fixture{
		ctx:    context.Background(),
		store:  store,
		pub:    &recorder{},
		notify: &notified{},
	}
	f.convs = NewConversationService(store.Conversations(), store.Messages(), store.Users(), f.pub, f.notify)
	f.msgs = NewMessageService(store.Conversations(), store.Messages(), store.Reactions(), f.pub, f.notify)
	f.users = NewUserService(store.Users(), store.Sessions(), nil)

	f.admin, f.adminP = f.user(t, "agent@example.com", "Agent Smith", model.RoleAdmin)
	f.client, f.clientP = f.user(t, "ana@example.com", "Ana", model.RoleClient)
	f.other, f.otherP = f.user(t, "bruno@example.com", "Bruno", model.RoleClient)
	return f
}

func (f *fixture) user(t *testing.T, email, name string, role model.Role) (*model.User, *model.Principal) {
	t.Helper()
	u, err := f.store.Users().Create(f.ctx, &model.User{Email: email, Name: name, Role: role, PasswordHash: "x"})
	require.NoError(t, err)
	return u, &model.Principal{UserID: u.ID, Name: u.Name, Role: u.Role}
}

func (f *fixture) conversation(t *testing.T, clientID string) *model.Conversation {
	t.Helper()
	conv, err := f.convs.Create(f.ctx, f.adminP, &model.CreateConversationRequest{ClientID: clientID})
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, p *model.Principal, convID, content string) *model.Message {
	t.Helper()
	msg, err := f.msgs.Send(f.ctx, p, &model.SendMessageRequest{ConversationID: convID, Content: content})
	require.NoError(t, err)
	return msg
}

func strp(s string) *string { return &s }
