package memrepo

import (
	"context"
	"sort"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"github.com/google/uuid"
)

type Users struct{ s *Store }

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}

// checkUnique enforces the email, external id and remote jid keys, skipping
// the row identified by self.
func (r *Users) checkUnique(self string, u *model.User) error {
	for id, other := range r.s.users {
		if id == self {
			continue
		}
		if other.Email == u.Email {
			return conflict("users_email_key")
		}
		if u.ExternalID != nil && *u.ExternalID != "" && other.ExternalID != nil && *other.ExternalID == *u.ExternalID {
			return conflict("unique_external_id")
		}
		if u.RemoteJID != nil && *u.RemoteJID != "" && other.RemoteJID != nil && *other.RemoteJID == *u.RemoteJID {
			return conflict("unique_remote_jid")
		}
	}
	return nil
}

func (r *Users) Create(_ context.Context, u *model.User) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkUnique("", u); err != nil {
		return nil, err
	}
	row := cloneUser(u)
	row.ID = uuid.NewString()
	if row.Role == "" {
		row.Role = model.RoleClient
	}
	if row.Status == "" {
		row.Status = model.UserActive
	}
	now := r.s.Now()
	row.CreatedAt = now
	row.LastActiveAt = now
	row.ConversationsSidebarWidth = 320
	r.s.users[row.ID] = row
	return cloneUser(row), nil
}

func (r *Users) GetByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) List(_ context.Context) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Users) Update(_ context.Context, id string, req *model.UpdateUserRequest) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := cloneUser(u)
	if req.Email != nil {
		next.Email = *req.Email
	}
	if req.Name != nil {
		next.Name = *req.Name
	}
	if req.MobilePhone != nil {
		next.MobilePhone = strPtr(*req.MobilePhone)
	}
	if req.RemoteJID != nil {
		next.RemoteJID = strPtr(*req.RemoteJID)
	}
	if req.ExternalID != nil {
		next.ExternalID = strPtr(*req.ExternalID)
	}
	if req.Role != nil {
		next.Role = *req.Role
	}
	if req.Status != nil {
		next.Status = *req.Status
	}
	if err := r.checkUnique(id, next); err != nil {
		return nil, err
	}
	r.s.users[id] = next
	return cloneUser(next), nil
}

func (r *Users) UpdatePreferences(_ context.Context, id string, req *model.PreferencesRequest) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.MainSidebarCollapsed != nil {
		u.MainSidebarCollapsed = *req.MainSidebarCollapsed
	}
	if req.ConversationsSidebarWidth != nil {
		u.ConversationsSidebarWidth = *req.ConversationsSidebarWidth
	}
	if req.ConversationsSidebarCollapsed != nil {
		u.ConversationsSidebarCollapsed = *req.ConversationsSidebarCollapsed
	}
	return cloneUser(u), nil
}

func (r *Users) SetPassword(_ context.Context, id, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *Users) SetAvatar(_ context.Context, id string, avatar *string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Avatar = nil
	if avatar != nil {
		u.Avatar = strPtr(*avatar)
	}
	return cloneUser(u), nil
}

func (r *Users) TouchLastActive(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.LastActiveAt = r.s.Now()
	}
	return nil
}

// Delete removes the user following the ON DELETE rules of the schema: a
// client that owns conversations is refused, attendant and sender references
// are cleared, sessions go with the user.
func (r *Users) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, c := range r.s.conversations {
		if c.ClientID == id {
			return reference("conversations_client_id_fkey")
		}
	}
	delete(r.s.users, id)
	for _, c := range r.s.conversations {
		if c.AttendantID != nil && *c.AttendantID == id {
			c.AttendantID = nil
		}
	}
	for _, m := range r.s.messages {
		if m.SenderID != nil && *m.SenderID == id {
			m.SenderID = nil
		}
	}
	for tok, t := range r.s.tokens {
		if t.userID == id {
			delete(r.s.tokens, tok)
		}
	}
	return nil
}

func (r *Users) CountTotal(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}
