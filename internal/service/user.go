package service

import (
	"context"
	"errors"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"go.uber.org/zap"
)

// AvatarRemover deletes a stored avatar file by its public URL.
type AvatarRemover interface {
	RemoveAvatar(url string) error
}

type UserService struct {
	users    UserStore
	sessions SessionStore
	avatars  AvatarRemover
}

func NewUserService(users UserStore, sessions SessionStore, avatars AvatarRemover) *UserService {
	return &UserService{users: users, sessions: sessions, avatars: avatars}
}

func (s *UserService) List(ctx context.Context, p *model.Principal) ([]*model.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr("list users", "user", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, p *model.Principal, id string) (*model.User, error) {
	if err := s.canManage(p, id); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, notFound("user")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get user", "user", err)
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, p *model.Principal, req *model.CreateUserRequest) (*model.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

// Provision creates a user without a caller check. Used by the maintenance
// CLI when seeding.
func (s *UserService) Provision(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	return s.create(ctx, req)
}

func (s *UserService) create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	role := req.Role
	if role == "" {
		role = model.RoleClient
	}
	if !role.IsValid() {
		return nil, invalid("role", "must be admin or client")
	}
	status := req.Status
	if status == "" {
		status = model.UserActive
	}
	if !status.IsValid() {
		return nil, invalid("status", "must be active or inactive")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		MobilePhone:  blankToNil(req.MobilePhone),
		RemoteJID:    blankToNil(req.RemoteJID),
		ExternalID:   blankToNil(req.ExternalID),
		Role:         role,
		Status:       status,
	})
	if err != nil {
		return nil, userWriteErr("create user", err)
	}
	logger.Log.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update applies a partial update. Users may edit their own profile but only
// admins may change role or status.
func (s *UserService) Update(ctx context.Context, p *model.Principal, id string, req *model.UpdateUserRequest) (*model.User, error) {
	if err := s.canManage(p, id); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, notFound("user")
	}
	if !p.IsAdmin() && (req.Role != nil || req.Status != nil) {
		return nil, ErrAdminOnly
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		req.Email = &email
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", "cannot be empty")
		}
		req.Name = &name
	}
	if req.Role != nil && !req.Role.IsValid() {
		return nil, invalid("role", "must be admin or client")
	}
	if req.Status != nil && !req.Status.IsValid() {
		return nil, invalid("status", "must be active or inactive")
	}

	user, err := s.users.Update(ctx, id, req)
	if err != nil {
		return nil, userWriteErr("update user", err)
	}
	if user.Status == model.UserInactive {
		s.revokeSessions(ctx, user.ID)
	}
	return user, nil
}

func (s *UserService) UpdatePreferences(ctx context.Context, p *model.Principal, req *model.PreferencesRequest) (*model.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if w := req.ConversationsSidebarWidth; w != nil && (*w < 200 || *w > 800) {
		return nil, invalid("conversationsSidebarWidth", "must be between 200 and 800")
	}
	user, err := s.users.UpdatePreferences(ctx, p.UserID, req)
	if err != nil {
		return nil, storeErr("update preferences", "user", err)
	}
	return user, nil
}

// SetPassword replaces a user's password. Callers are trusted (CLI).
func (s *UserService) SetPassword(ctx context.Context, email, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return storeErr("load user", "user", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return storeErr("set password", "user", err)
	}
	s.revokeSessions(ctx, user.ID)
	return nil
}

// SetAvatar stores a new avatar URL for the user and removes the previous file.
func (s *UserService) SetAvatar(ctx context.Context, p *model.Principal, id, url string) (*model.User, error) {
	if err := s.canManage(p, id); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, notFound("user")
	}
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get user", "user", err)
	}
	user, err := s.users.SetAvatar(ctx, id, &url)
	if err != nil {
		return nil, storeErr("set avatar", "user", err)
	}
	s.removeAvatar(current)
	return user, nil
}

// Delete removes a user and their avatar file. Admins cannot delete themselves
// and clients with conversation history must be deactivated instead.
func (s *UserService) Delete(ctx context.Context, p *model.Principal, id string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if p.UserID == id {
		return invalid("id", "you cannot delete your own account")
	}
	if !validID(id) {
		return notFound("user")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeErr("get user", "user", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		var ref *repository.ReferenceError
		if errors.As(err, &ref) {
			return invalid("id", "user has conversations; deactivate instead")
		}
		return storeErr("delete user", "user", err)
	}
	s.removeAvatar(user)
	logger.Log.Info("user deleted", zap.String("user_id", id))
	return nil
}

// ClearAvatar removes the user's avatar file and URL.
func (s *UserService) ClearAvatar(ctx context.Context, p *model.Principal, id string) (*model.User, error) {
	if err := s.canManage(p, id); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, notFound("user")
	}
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get user", "user", err)
	}
	user, err := s.users.SetAvatar(ctx, id, nil)
	if err != nil {
		return nil, storeErr("clear avatar", "user", err)
	}
	s.removeAvatar(current)
	return user, nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		logger.Log.Warn("revoke sessions", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *UserService) removeAvatar(u *model.User) {
	if s.avatars == nil || u.Avatar == nil || *u.Avatar == "" {
		return
	}
	if err := s.avatars.RemoveAvatar(*u.Avatar); err != nil {
		logger.Log.Warn("remove avatar file", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func (s *UserService) canManage(p *model.Principal, id string) error {
	if p == nil {
		return ErrInvalidToken
	}
	if p.IsAdmin() || (p.HasUser() && p.UserID == id) {
		return nil
	}
	return ErrForbidden
}

// userWriteErr maps unique violations on users to field-level validation errors.
func userWriteErr(op string, err error) error {
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Constraint {
		case "unique_external_id":
			return invalid("externalId", "is already in use")
		case "unique_remote_jid":
			return invalid("remoteJid", "is already in use")
		default:
			return invalid("email", "is already in use")
		}
	}
	return storeErr(op, "user", err)
}
