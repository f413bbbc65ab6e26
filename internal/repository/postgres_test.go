package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/database"
	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.RunMigrations(ctx, pool))
	return pool
}

func createUser(t *testing.T, repo *UserRepository, name string, role model.Role) *model.User {
	t.Helper()
	u, err := repo.Create(context.Background(), &model.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         name,
		Role:         role,
		Status:       model.UserActive,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = repo.pool.Exec(ctx, `DELETE FROM conversations WHERE client_id = $1`, u.ID)
		_ = repo.Delete(ctx, u.ID)
	})
	return u
}

func TestPostgresConversationLifecycle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	convs := NewConversationRepository(pool)
	msgs := NewMessageRepository(pool)

	agent := createUser(t, users, "Agent", model.RoleAdmin)
	client := createUser(t, users, "Ana", model.RoleClient)

	protocol := "IT-" + uuid.NewString()
	conv, err := convs.Create(ctx, &model.NewConversation{
		Protocol:    protocol,
		ClientID:    client.ID,
		AttendantID: &agent.ID,
		Status:      model.ConversationPending,
		Priority:    model.PriorityNormal,
		Subject:     "Billing",
	})
	require.NoError(t, err)
	require.NotNil(t, conv.ClientName)
	assert.Equal(t, "Ana", *conv.ClientName)

	_, err = convs.Create(ctx, &model.NewConversation{
		Protocol: protocol,
		ClientID: client.ID,
		Status:   model.ConversationPending,
		Priority: model.PriorityNormal,
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "conversations_protocol_key", conflict.Constraint)

	m, err := msgs.Create(ctx, &model.NewMessage{
		ConversationID: conv.ID,
		SenderID:       &client.ID,
		SenderType:     model.SenderClient,
		SenderName:     client.Name,
		Content:        "hello",
		ContentType:    model.ContentText,
	}, "hello")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, m.Status)

	note, err := msgs.Create(ctx, &model.NewMessage{
		ConversationID: conv.ID,
		SenderID:       &agent.ID,
		SenderType:     model.SenderAttendant,
		SenderName:     agent.Name,
		Content:        "internal",
		ContentType:    model.ContentText,
		IsPrivate:      true,
	}, "internal")
	require.NoError(t, err)

	got, err := convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadCount)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "hello", *got.LastMessage)

	public, err := msgs.ListByConversation(ctx, conv.ID, false)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, m.ID, public[0].ID)

	all, err := msgs.ListByConversation(ctx, conv.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := msgs.GetByIDs(ctx, []string{note.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, note.ID)

	ids, err := msgs.MarkConversationRead(ctx, conv.ID, model.SenderAttendant)
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, ids)

	got, err = convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UnreadCount)

	err = users.Delete(ctx, client.ID)
	var ref *ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "conversations_client_id_fkey", ref.Constraint)
	all, err = msgs.ListByConversation(ctx, conv.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPostgresAdvanceStatusIsMonotonic(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	convs := NewConversationRepository(pool)
	msgs := NewMessageRepository(pool)

	client := createUser(t, users, "Bruno", model.RoleClient)
	conv, err := convs.Create(ctx, &model.NewConversation{
		Protocol: "IT-" + uuid.NewString(),
		ClientID: client.ID,
		Status:   model.ConversationOpen,
		Priority: model.PriorityNormal,
	})
	require.NoError(t, err)
	m, err := msgs.Create(ctx, &model.NewMessage{
		ConversationID: conv.ID,
		SenderID:       &client.ID,
		SenderType:     model.SenderClient,
		SenderName:     client.Name,
		Content:        "hi",
		ContentType:    model.ContentText,
	}, "hi")
	require.NoError(t, err)

	read, changed, err := msgs.AdvanceStatus(ctx, m.ID, model.StatusRead)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.StatusRead, read.Status)
	assert.NotNil(t, read.DeliveredAt)
	assert.NotNil(t, read.ReadAt)

	back, changed, err := msgs.AdvanceStatus(ctx, m.ID, model.StatusDelivered)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.StatusRead, back.Status)

	_, _, err = msgs.AdvanceStatus(ctx, uuid.NewString(), model.StatusRead)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresReactionToggle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	convs := NewConversationRepository(pool)
	msgs := NewMessageRepository(pool)
	reactions := NewReactionRepository(pool)

	client := createUser(t, users, "Carla", model.RoleClient)
	conv, err := convs.Create(ctx, &model.NewConversation{
		Protocol: "IT-" + uuid.NewString(),
		ClientID: client.ID,
		Status:   model.ConversationOpen,
		Priority: model.PriorityNormal,
	})
	require.NoError(t, err)
	m, err := msgs.Create(ctx, &model.NewMessage{
		ConversationID: conv.ID,
		SenderID:       &client.ID,
		SenderType:     model.SenderClient,
		SenderName:     client.Name,
		Content:        "hi",
		ContentType:    model.ContentText,
	}, "hi")
	require.NoError(t, err)

	res, err := reactions.Toggle(ctx, m.ID, client.ID, client.Name, "👍")
	require.NoError(t, err)
	assert.True(t, res.Added)
	require.Len(t, res.Reactions, 1)
	assert.Equal(t, "👍", res.Reactions[0].Emoji)

	res, err = reactions.Toggle(ctx, m.ID, client.ID, client.Name, "👍")
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Empty(t, res.Reactions)

	_, err = reactions.Toggle(ctx, uuid.NewString(), client.ID, client.Name, "👍")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresConcurrentReactionToggles(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	convs := NewConversationRepository(pool)
	msgs := NewMessageRepository(pool)
	reactions := NewReactionRepository(pool)

	client := createUser(t, users, "Elisa", model.RoleClient)
	conv, err := convs.Create(ctx, &model.NewConversation{
		Protocol: "IT-" + uuid.NewString(),
		ClientID: client.ID,
		Status:   model.ConversationOpen,
		Priority: model.PriorityNormal,
	})
	require.NoError(t, err)
	m, err := msgs.Create(ctx, &model.NewMessage{
		ConversationID: conv.ID,
		SenderID:       &client.ID,
		SenderType:     model.SenderClient,
		SenderName:     client.Name,
		Content:        "vote",
		ContentType:    model.ContentText,
	}, "vote")
	require.NoError(t, err)

	const n = 16
	emojis := []string{"👍", "❤️", "😂", "🎉"}
	toggleAll := func() {
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				userID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s-%d", m.ID, i/len(emojis)))).String()
				_, err := reactions.Toggle(ctx, m.ID, userID, "user", emojis[i%len(emojis)])
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	}

	toggleAll()
	byMessage, err := reactions.ListForMessages(ctx, []string{m.ID})
	require.NoError(t, err)
	assert.Len(t, byMessage[m.ID], n)

	toggleAll()
	byMessage, err = reactions.ListForMessages(ctx, []string{m.ID})
	require.NoError(t, err)
	assert.Empty(t, byMessage[m.ID])
}

func TestPostgresRefreshTokens(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	sessions := NewSessionRepository(pool)

	u := createUser(t, users, "Dora", model.RoleClient)
	hash := uuid.NewString()
	require.NoError(t, sessions.StoreRefreshToken(ctx, u.ID, hash, time.Now().Add(time.Hour)))

	id, err := sessions.ValidateRefreshToken(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	require.NoError(t, sessions.RevokeAllForUser(ctx, u.ID))
	_, err = sessions.ValidateRefreshToken(ctx, hash)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresSearchTreatsWildcardsLiterally(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	convs := NewConversationRepository(pool)

	client := createUser(t, users, "Fabio", model.RoleClient)
	for _, subject := range []string{"50% off coupon", "500 units", "order_id missing", "orderXid"} {
		_, err := convs.Create(ctx, &model.NewConversation{
			Protocol: "IT-" + uuid.NewString(),
			ClientID: client.ID,
			Status:   model.ConversationOpen,
			Priority: model.PriorityNormal,
			Subject:  subject,
		})
		require.NoError(t, err)
	}

	tests := []struct {
		search string
		want   string
	}{
		{"50%", "50% off coupon"},
		{"order_id", "order_id missing"},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			found, err := convs.List(ctx, model.ConversationFilter{ClientID: client.ID, Search: tt.search})
			require.NoError(t, err)
			require.Len(t, found, 1)
			require.NotNil(t, found[0].Subject)
			assert.Equal(t, tt.want, *found[0].Subject)
		})
	}
}
