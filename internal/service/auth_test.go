package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthFixture(t *testing.T) (*fixture, *AuthService, *model.User) {
	t.Helper()
	f := newFixture(t)
	auth := NewAuthService(f.store.Users(), f.store.Sessions(), testSecret, "integration-key")
	u, err := f.users.Provision(f.ctx, &model.CreateUserRequest{
		Email:    " Carla@Example.com ",
		Password: "s3cret!",
		Name:     "Carla",
		Role:     model.RoleAdmin,
	})
	require.NoError(t, err)
	return f, auth, u
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("12345")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	hash, err := HashPassword("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)
}

func TestLoginAndValidate(t *testing.T) {
	f, auth, u := newAuthFixture(t)

	res, err := auth.Login(f.ctx, &model.LoginRequest{Email: "carla@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.NotEmpty(t, res.RefreshToken)

	p, err := auth.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, "Carla", p.Name)
	assert.Equal(t, model.RoleAdmin, p.Role)
	assert.False(t, p.ViaAPIKey)

	me, err := auth.Me(f.ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "carla@example.com", me.Email)
}

func TestLoginFailures(t *testing.T) {
	f, auth, u := newAuthFixture(t)
	inactive := model.UserInactive
	_, err := f.store.Users().Update(f.ctx, f.other.ID, &model.UpdateUserRequest{Status: &inactive})
	require.NoError(t, err)
	require.NoError(t, f.store.Users().SetPassword(f.ctx, f.other.ID, mustHash(t, "bruno-pass")))

	tests := []struct {
		name   string
		req    model.LoginRequest
		status int
	}{
		{"missing fields", model.LoginRequest{Email: u.Email}, http.StatusBadRequest},
		{"unknown email", model.LoginRequest{Email: "nobody@example.com", Password: "whatever"}, http.StatusUnauthorized},
		{"wrong password", model.LoginRequest{Email: u.Email, Password: "nope-nope"}, http.StatusUnauthorized},
		{"inactive", model.LoginRequest{Email: "bruno@example.com", Password: "bruno-pass"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := auth.Login(f.ctx, &req)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := HashPassword(pw)
	require.NoError(t, err)
	return h
}

func TestRefreshRotatesToken(t *testing.T) {
	f, auth, _ := newAuthFixture(t)
	res, err := auth.Login(f.ctx, &model.LoginRequest{Email: "carla@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	pair, err := auth.Refresh(f.ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, pair.RefreshToken)

	_, err = auth.Refresh(f.ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, auth.Logout(f.ctx, pair.RefreshToken))
	_, err = auth.Refresh(f.ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.Refresh(f.ctx, "")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestSetPasswordRevokesSessions(t *testing.T) {
	f, auth, _ := newAuthFixture(t)
	res, err := auth.Login(f.ctx, &model.LoginRequest{Email: "carla@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	require.NoError(t, f.users.SetPassword(f.ctx, "CARLA@example.com", "n3w-password"))

	_, err = auth.Refresh(f.ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.Login(f.ctx, &model.LoginRequest{Email: "carla@example.com", Password: "s3cret!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(f.ctx, &model.LoginRequest{Email: "carla@example.com", Password: "n3w-password"})
	assert.NoError(t, err)
}

func TestValidateAccessTokenRejects(t *testing.T) {
	_, auth, _ := newAuthFixture(t)

	sign := func(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	valid := jwt.MapClaims{"sub": uuid.NewString(), "role": "client", "exp": time.Now().Add(time.Minute).Unix()}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign("other", jwt.SigningMethodHS256, valid)},
		{"expired", sign(testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x", "role": "client", "exp": time.Now().Add(-time.Minute).Unix()})},
		{"unknown role", sign(testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x", "role": "root", "exp": time.Now().Add(time.Minute).Unix()})},
		{"missing subject", sign(testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin", "exp": time.Now().Add(time.Minute).Unix()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	p, err := auth.ValidateAccessToken(sign(testSecret, jwt.SigningMethodHS256, valid))
	require.NoError(t, err)
	assert.Equal(t, model.RoleClient, p.Role)
}

func TestAPIKeyPrincipal(t *testing.T) {
	f, auth, _ := newAuthFixture(t)

	assert.True(t, auth.IsAPIKey("integration-key"))
	assert.False(t, auth.IsAPIKey("integration-key2"))
	assert.False(t, auth.IsAPIKey(""))
	assert.False(t, NewAuthService(nil, nil, testSecret, "").IsAPIKey(""))

	p, err := auth.APIKeyPrincipal(f.ctx, "")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.False(t, p.HasUser())
	assert.True(t, p.ViaAPIKey)

	p, err = auth.APIKeyPrincipal(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, f.client.ID, p.UserID)
	assert.Equal(t, model.RoleClient, p.Role)
	assert.True(t, p.ViaAPIKey)

	_, err = auth.APIKeyPrincipal(f.ctx, uuid.NewString())
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	_, err = auth.APIKeyPrincipal(f.ctx, "x")
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}
