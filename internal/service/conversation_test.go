package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var protocolPattern = regexp.MustCompile(`^ATD-\d{4}-\d{6}$`)

func TestGenerateProtocol(t *testing.T) {
	now := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		p, err := GenerateProtocol(now)
		require.NoError(t, err)
		assert.Regexp(t, protocolPattern, p)
		assert.Equal(t, "ATD-2025-", p[:9])
	}
}

func TestCreateConversationByClient(t *testing.T) {
	f := newFixture(t)

	conv, err := f.convs.Create(f.ctx, f.clientP, &model.CreateConversationRequest{})
	require.NoError(t, err)

	assert.Regexp(t, protocolPattern, conv.Protocol)
	assert.Equal(t, f.client.ID, conv.ClientID)
	assert.Equal(t, model.ConversationPending, conv.Status)
	assert.Equal(t, model.PriorityNormal, conv.Priority)
	require.NotNil(t, conv.Subject)
	assert.Equal(t, "New conversation", *conv.Subject)
	assert.Nil(t, conv.AttendantID)
	require.NotNil(t, conv.ClientName)
	assert.Equal(t, "Ana", *conv.ClientName)

	events := f.pub.ofType(model.EventConversationNew)
	require.Len(t, events, 1)
	assert.Equal(t, f.client.ID, events[0].ClientID)
	assert.Equal(t, 1, f.notify.conversations)
}

func TestCreateConversationByAdmin(t *testing.T) {
	f := newFixture(t)

	conv, err := f.convs.Create(f.ctx, f.adminP, &model.CreateConversationRequest{
		ClientID: f.other.ID,
		Subject:  strp("  Billing question "),
		Priority: model.PriorityUrgent,
	})
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, conv.ClientID)
	require.NotNil(t, conv.AttendantID)
	assert.Equal(t, f.admin.ID, *conv.AttendantID)
	assert.Equal(t, "Billing question", *conv.Subject)
	assert.Equal(t, model.PriorityUrgent, conv.Priority)
}

func TestCreateConversationErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		p      *model.Principal
		req    model.CreateConversationRequest
		status int
	}{
		{"admin without client", f.adminP, model.CreateConversationRequest{}, http.StatusBadRequest},
		{"admin unknown client", f.adminP, model.CreateConversationRequest{ClientID: uuid.NewString()}, http.StatusBadRequest},
		{"admin malformed client", f.adminP, model.CreateConversationRequest{ClientID: "42"}, http.StatusBadRequest},
		{"admin as client", f.adminP, model.CreateConversationRequest{ClientID: f.admin.ID}, http.StatusBadRequest},
		{"client for someone else", f.clientP, model.CreateConversationRequest{ClientID: f.other.ID}, http.StatusForbidden},
		{"bad priority", f.clientP, model.CreateConversationRequest{Priority: "asap"}, http.StatusBadRequest},
		{"unknown channel", f.clientP, model.CreateConversationRequest{ChannelID: strp(uuid.NewString())}, http.StatusNotFound},
		{"unauthenticated", nil, model.CreateConversationRequest{}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.convs.Create(f.ctx, tt.p, &req)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

// collidingStore fails the first n inserts with a protocol conflict.
type collidingStore struct {
	ConversationStore
	n      int
	seen   []string
	failed error
}

func (s *collidingStore) Create(ctx context.Context, nc *model.NewConversation) (*model.Conversation, error) {
	s.seen = append(s.seen, nc.Protocol)
	if len(s.seen) <= s.n {
		return nil, &repository.ConflictError{Constraint: "conversations_protocol_key"}
	}
	if s.failed != nil {
		return nil, s.failed
	}
	return s.ConversationStore.Create(ctx, nc)
}

func TestCreateConversationRetriesProtocolCollision(t *testing.T) {
	f := newFixture(t)
	store := &collidingStore{ConversationStore: f.store.Conversations(), n: 2}
	svc := NewConversationService(store, f.store.Messages(), f.store.Users(), nil, nil)

	conv, err := svc.Create(f.ctx, f.clientP, &model.CreateConversationRequest{})
	require.NoError(t, err)
	assert.Len(t, store.seen, 3)
	assert.Equal(t, store.seen[2], conv.Protocol)
}

func TestCreateConversationGivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	store := &collidingStore{ConversationStore: f.store.Conversations(), n: 100}
	svc := NewConversationService(store, f.store.Messages(), f.store.Users(), nil, nil)

	_, err := svc.Create(f.ctx, f.clientP, &model.CreateConversationRequest{})
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Len(t, store.seen, maxProtocolAttempts)
}

func TestCreateConversationOtherConflictNotRetried(t *testing.T) {
	f := newFixture(t)
	store := &collidingStore{
		ConversationStore: f.store.Conversations(),
		failed:            errors.New("connection reset"),
	}
	svc := NewConversationService(store, f.store.Messages(), f.store.Users(), nil, nil)

	_, err := svc.Create(f.ctx, f.clientP, &model.CreateConversationRequest{})
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Len(t, store.seen, 1)
	assert.Equal(t, "internal server error", PublicMessage(err))
}

func TestListConversationsIsScoped(t *testing.T) {
	f := newFixture(t)
	mine1 := f.conversation(t, f.client.ID)
	mine2 := f.conversation(t, f.client.ID)
	theirs := f.conversation(t, f.other.ID)

	got, err := f.convs.List(f.ctx, f.clientP, model.ConversationFilter{ClientID: f.other.ID})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, c := range got {
		assert.Equal(t, f.client.ID, c.ClientID)
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{mine1.ID, mine2.ID}, ids)

	all, err := f.convs.List(f.ctx, f.adminP, model.ConversationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := f.convs.List(f.ctx, f.adminP, model.ConversationFilter{Search: " bruno "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, theirs.ID, found[0].ID)

	_, err = f.convs.List(f.ctx, f.adminP, model.ConversationFilter{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	empty, err := f.convs.List(f.ctx, f.adminP, model.ConversationFilter{Status: model.ConversationClosed})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	now := base
	f.store.Now = func() time.Time { return now }

	older := f.conversation(t, f.client.ID)
	now = base.Add(time.Minute)
	newer := f.conversation(t, f.client.ID)

	now = base.Add(time.Hour)
	f.send(t, f.clientP, older.ID, "bump")

	got, err := f.convs.List(f.ctx, f.clientP, model.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, older.ID, got[0].ID)
	assert.Equal(t, newer.ID, got[1].ID)
}

func TestGetConversationTenancy(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, f.client.ID)

	_, err := f.convs.Get(f.ctx, f.otherP, conv.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.convs.Get(f.ctx, f.clientP, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	got, err := f.convs.Get(f.ctx, f.clientP, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.Protocol, got.Protocol)
}

func TestUpdateConversation(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, f.client.ID)
	closed := model.ConversationClosed
	open := model.ConversationOpen

	_, err := f.convs.Update(f.ctx, f.clientP, conv.ID, &model.UpdateConversationRequest{Status: &closed})
	assert.ErrorIs(t, err, ErrAdminOnly)

	got, err := f.convs.Update(f.ctx, f.adminP, conv.ID, &model.UpdateConversationRequest{Status: &closed})
	require.NoError(t, err)
	assert.Equal(t, model.ConversationClosed, got.Status)
	require.NotNil(t, got.ClosedAt)

	got, err = f.convs.Update(f.ctx, f.adminP, conv.ID, &model.UpdateConversationRequest{Status: &open, AttendantID: strp("")})
	require.NoError(t, err)
	assert.Nil(t, got.ClosedAt)
	assert.Nil(t, got.AttendantID)

	tooWide := 900
	_, err = f.convs.Update(f.ctx, f.adminP, conv.ID, &model.UpdateConversationRequest{SidebarWidth: &tooWide})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	_, err = f.convs.Update(f.ctx, f.adminP, conv.ID, &model.UpdateConversationRequest{AttendantID: strp(uuid.NewString())})
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	assert.Len(t, f.pub.ofType(model.EventConversationUpdated), 2)
}

func TestUpdateLocation(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, f.client.ID)

	got, err := f.convs.UpdateLocation(f.ctx, f.clientP, conv.ID, &model.LocationRequest{
		City:    strp("Recife"),
		Country: strp("BR"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Recife", *got.City)
	assert.Equal(t, "BR", *got.Country)
	assert.Nil(t, got.Latitude)

	_, err = f.convs.UpdateLocation(f.ctx, f.otherP, conv.ID, &model.LocationRequest{City: strp("x")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, f.client.ID)
	f.send(t, f.clientP, conv.ID, "one")
	f.send(t, f.clientP, conv.ID, "two")
	f.send(t, f.adminP, conv.ID, "answer")
	_, err := f.msgs.Send(f.ctx, f.adminP, &model.SendMessageRequest{ConversationID: conv.ID, Content: "note", IsPrivate: true})
	require.NoError(t, err)

	n, err := f.convs.MarkRead(f.ctx, f.adminP, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.convs.Get(f.ctx, f.adminP, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCount)

	n, err = f.convs.MarkRead(f.ctx, f.clientP, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.convs.MarkRead(f.ctx, f.adminP, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	msgs, err := f.msgs.List(f.ctx, f.adminP, conv.ID)
	require.NoError(t, err)
	for _, m := range msgs {
		if m.IsPrivate {
			assert.Equal(t, model.StatusSent, m.Status)
		} else {
			assert.Equal(t, model.StatusRead, m.Status, m.Content)
		}
	}
	assert.Len(t, f.pub.ofType(model.EventMessageStatus), 3)
}
