package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenDuration  = 15 * time.Minute
	refreshTokenDuration = 30 * 24 * time.Hour

	minPasswordLength = 6
)

type AuthService struct {
	users     UserStore
	sessions  SessionStore
	jwtSecret []byte
	apiKey    string
}

func NewAuthService(users UserStore, sessions SessionStore, jwtSecret, apiKey string) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		jwtSecret: []byte(jwtSecret),
		apiKey:    apiKey,
	}
}

// HashPassword bcrypt-hashes a plain password after checking its length.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, invalid("email", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("load user", "user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != model.UserActive {
		return nil, ErrInactive
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	_ = s.users.TouchLastActive(ctx, user.ID)

	return &model.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         user,
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	if refreshToken == "" {
		return nil, invalid("refreshToken", "is required")
	}
	tokenHash := hashToken(refreshToken)

	userID, err := s.sessions.ValidateRefreshToken(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, storeErr("validate refresh token", "session", err)
	}

	_ = s.sessions.RevokeRefreshToken(ctx, tokenHash)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, storeErr("load user", "user", err)
	}
	if user.Status != model.UserActive {
		return nil, ErrInactive
	}

	return s.generateTokenPair(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.RevokeRefreshToken(ctx, hashToken(refreshToken)); err != nil {
		return &StorageError{Op: "revoke refresh token", Err: err}
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, p *model.Principal) (*model.User, error) {
	if !p.HasUser() {
		return nil, ErrUserRequired
	}
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("load user", "user", err)
	}
	return user, nil
}

// ValidateAccessToken parses a signed access token into a principal.
func (s *AuthService) ValidateAccessToken(tokenString string) (*model.Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || !model.Role(role).IsValid() {
		return nil, ErrInvalidToken
	}

	return &model.Principal{UserID: userID, Name: name, Role: model.Role(role)}, nil
}

// IsAPIKey reports whether key matches the configured global API key.
func (s *AuthService) IsAPIKey(key string) bool {
	if s.apiKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

// APIKeyPrincipal builds the principal for an integration caller. Without
// onBehalfOf it is an admin with no user binding; with it, the caller acts
// with that user's identity and role.
func (s *AuthService) APIKeyPrincipal(ctx context.Context, onBehalfOf string) (*model.Principal, error) {
	if onBehalfOf == "" {
		return &model.Principal{Name: "API", Role: model.RoleAdmin, ViaAPIKey: true}, nil
	}
	if !validID(onBehalfOf) {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, onBehalfOf)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &AuthorizationError{Status: 401, Message: "X-On-Behalf-Of user does not exist"}
		}
		return nil, storeErr("load user", "user", err)
	}
	if user.Status != model.UserActive {
		return nil, ErrInactive
	}
	return &model.Principal{UserID: user.ID, Name: user.Name, Role: user.Role, ViaAPIKey: true}, nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	now := time.Now()
	accessClaims := jwt.MapClaims{
		"sub":  user.ID,
		"name": user.Name,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenDuration).Unix(),
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessStr, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshBytes := make([]byte, 32)
	if _, err := rand.Read(refreshBytes); err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	refreshStr := hex.EncodeToString(refreshBytes)

	if err := s.sessions.StoreRefreshToken(ctx, user.ID, hashToken(refreshStr), now.Add(refreshTokenDuration)); err != nil {
		return nil, &StorageError{Op: "store refresh token", Err: err}
	}

	return &model.TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
	}, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
