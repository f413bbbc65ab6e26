package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type removedAvatars struct{ urls []string }

func (r *removedAvatars) RemoveAvatar(url string) error {
	r.urls = append(r.urls, url)
	return nil
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.Create(f.ctx, f.adminP, &model.CreateUserRequest{
		Email:      "Dora@Example.com",
		Password:   "secret1",
		Name:       " Dora ",
		ExternalID: strp("crm-7"),
		RemoteJID:  strp("  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "dora@example.com", u.Email)
	assert.Equal(t, "Dora", u.Name)
	assert.Equal(t, model.RoleClient, u.Role)
	assert.Equal(t, model.UserActive, u.Status)
	assert.Nil(t, u.RemoteJID)

	_, err = f.users.Create(f.ctx, f.clientP, &model.CreateUserRequest{Email: "x@example.com", Password: "secret1", Name: "X"})
	assert.ErrorIs(t, err, ErrAdminOnly)
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Create(f.ctx, f.adminP, &model.CreateUserRequest{
		Email: "taken@example.com", Password: "secret1", Name: "T", ExternalID: strp("ext-1"),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		req   model.CreateUserRequest
		field string
	}{
		{"bad email", model.CreateUserRequest{Email: "nope", Password: "secret1", Name: "N"}, "email"},
		{"missing name", model.CreateUserRequest{Email: "n@example.com", Password: "secret1"}, "name"},
		{"short password", model.CreateUserRequest{Email: "n@example.com", Password: "123", Name: "N"}, "password"},
		{"bad role", model.CreateUserRequest{Email: "n@example.com", Password: "secret1", Name: "N", Role: "owner"}, "role"},
		{"duplicate email", model.CreateUserRequest{Email: "TAKEN@example.com", Password: "secret1", Name: "N"}, "email"},
		{"duplicate external id", model.CreateUserRequest{Email: "n@example.com", Password: "secret1", Name: "N", ExternalID: strp("ext-1")}, "externalId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.users.Create(f.ctx, f.adminP, &req)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestUserAccessRules(t *testing.T) {
	f := newFixture(t)
	admin := model.RoleAdmin

	_, err := f.users.List(f.ctx, f.clientP)
	assert.ErrorIs(t, err, ErrAdminOnly)

	all, err := f.users.List(f.ctx, f.adminP)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.users.Get(f.ctx, f.clientP, f.other.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	self, err := f.users.Get(f.ctx, f.clientP, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, f.client.Email, self.Email)

	_, err = f.users.Update(f.ctx, f.clientP, f.client.ID, &model.UpdateUserRequest{Role: &admin})
	assert.ErrorIs(t, err, ErrAdminOnly)

	renamed, err := f.users.Update(f.ctx, f.clientP, f.client.ID, &model.UpdateUserRequest{Name: strp(" Ana Maria ")})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", renamed.Name)

	_, err = f.users.Update(f.ctx, f.adminP, uuid.NewString(), &model.UpdateUserRequest{Name: strp("x")})
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestDeactivatingUserRevokesSessions(t *testing.T) {
	f := newFixture(t)
	auth := NewAuthService(f.store.Users(), f.store.Sessions(), testSecret, "")
	require.NoError(t, f.users.SetPassword(f.ctx, f.client.Email, "client-pass"))

	res, err := auth.Login(f.ctx, &model.LoginRequest{Email: f.client.Email, Password: "client-pass"})
	require.NoError(t, err)

	inactive := model.UserInactive
	_, err = f.users.Update(f.ctx, f.adminP, f.client.ID, &model.UpdateUserRequest{Status: &inactive})
	require.NoError(t, err)

	_, err = auth.Refresh(f.ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdatePreferences(t *testing.T) {
	f := newFixture(t)
	width, narrow := 420, 100
	collapsed := true

	u, err := f.users.UpdatePreferences(f.ctx, f.clientP, &model.PreferencesRequest{
		ConversationsSidebarWidth: &width,
		MainSidebarCollapsed:      &collapsed,
	})
	require.NoError(t, err)
	assert.Equal(t, 420, u.ConversationsSidebarWidth)
	assert.True(t, u.MainSidebarCollapsed)

	_, err = f.users.UpdatePreferences(f.ctx, f.clientP, &model.PreferencesRequest{ConversationsSidebarWidth: &narrow})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestAvatarLifecycle(t *testing.T) {
	f := newFixture(t)
	removed := &removedAvatars{}
	users := NewUserService(f.store.Users(), f.store.Sessions(), removed)

	u, err := users.SetAvatar(f.ctx, f.clientP, f.client.ID, "/api/avatars/ab/first.png")
	require.NoError(t, err)
	require.NotNil(t, u.Avatar)
	assert.Empty(t, removed.urls)

	_, err = users.SetAvatar(f.ctx, f.clientP, f.client.ID, "/api/avatars/ab/second.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/avatars/ab/first.png"}, removed.urls)

	_, err = users.SetAvatar(f.ctx, f.otherP, f.client.ID, "/api/avatars/zz/x.png")
	assert.ErrorIs(t, err, ErrForbidden)

	cleared, err := users.ClearAvatar(f.ctx, f.clientP, f.client.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.Avatar)
	assert.Equal(t, []string{"/api/avatars/ab/first.png", "/api/avatars/ab/second.png"}, removed.urls)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	removed := &removedAvatars{}
	users := NewUserService(f.store.Users(), f.store.Sessions(), removed)

	_, err := users.SetAvatar(f.ctx, f.adminP, f.other.ID, "/api/avatars/cd/bruno.png")
	require.NoError(t, err)

	err = users.Delete(f.ctx, f.adminP, f.admin.ID)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	err = users.Delete(f.ctx, f.clientP, f.other.ID)
	assert.ErrorIs(t, err, ErrAdminOnly)

	require.NoError(t, users.Delete(f.ctx, f.adminP, f.other.ID))
	assert.Equal(t, []string{"/api/avatars/cd/bruno.png"}, removed.urls)

	err = users.Delete(f.ctx, f.adminP, f.other.ID)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestDeleteUserKeepsConversationHistory(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.store.Users(), f.store.Sessions(), nil)
	conv := f.conversation(t, f.client.ID)
	question := f.send(t, f.clientP, conv.ID, "is my order shipped?")
	answer := f.send(t, f.adminP, conv.ID, "yes, this morning")

	err := users.Delete(f.ctx, f.adminP, f.client.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)
	assert.Contains(t, verr.Message, "deactivate")

	msgs, err := f.msgs.List(f.ctx, f.adminP, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, question.ID, msgs[0].ID)
	assert.Equal(t, answer.ID, msgs[1].ID)

	// deactivation is the supported path
	inactive := model.UserInactive
	updated, err := users.Update(f.ctx, f.adminP, f.client.ID, &model.UpdateUserRequest{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, model.UserInactive, updated.Status)
}
