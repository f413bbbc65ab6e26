package memrepo

import (
	"context"
	"sort"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"github.com/google/uuid"
)

type Conversations struct{ s *Store }

// view copies a conversation row and joins the client's contact fields.
func (s *Store) view(c *model.Conversation) *model.Conversation {
	out := *c
	out.ClientName, out.ClientEmail, out.ClientPhone = nil, nil, nil
	if u, ok := s.users[c.ClientID]; ok {
		out.ClientName = strPtr(u.Name)
		out.ClientEmail = strPtr(u.Email)
		if u.MobilePhone != nil {
			out.ClientPhone = strPtr(*u.MobilePhone)
		}
	}
	return &out
}

func (s *Store) deleteConversation(id string) {
	delete(s.conversations, id)
	for mid, m := range s.messages {
		if m.ConversationID == id {
			s.deleteMessage(mid)
		}
	}
}

func (r *Conversations) Create(_ context.Context, nc *model.NewConversation) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.conversations {
		if other.Protocol == nc.Protocol {
			return nil, conflict("conversations_protocol_key")
		}
	}
	if _, ok := r.s.users[nc.ClientID]; !ok {
		return nil, reference("conversations_client_id_fkey")
	}
	if nc.AttendantID != nil {
		if _, ok := r.s.users[*nc.AttendantID]; !ok {
			return nil, reference("conversations_attendant_id_fkey")
		}
	}
	if nc.ChannelID != nil {
		if _, ok := r.s.channels[*nc.ChannelID]; !ok {
			return nil, reference("conversations_channel_id_fkey")
		}
	}

	now := r.s.Now()
	c := &model.Conversation{
		ID:            uuid.NewString(),
		Protocol:      nc.Protocol,
		ClientID:      nc.ClientID,
		AttendantID:   nc.AttendantID,
		ChannelID:     nc.ChannelID,
		Status:        nc.Status,
		Priority:      nc.Priority,
		Subject:       strPtr(nc.Subject),
		LastMessageAt: now,
		SidebarWidth:  320,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.s.conversations[c.ID] = c
	return r.s.view(c), nil
}

func (r *Conversations) GetByID(_ context.Context, id string) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.view(c), nil
}

func (r *Conversations) List(_ context.Context, f model.ConversationFilter) ([]*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(f.Search)
	var out []*model.Conversation
	for _, c := range r.s.conversations {
		if f.ClientID != "" && c.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.ChannelID != "" && (c.ChannelID == nil || *c.ChannelID != f.ChannelID) {
			continue
		}
		v := r.s.view(c)
		if search != "" && !containsFold(&v.Protocol, search) && !containsFold(v.Subject, search) && !containsFold(v.ClientName, search) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Conversations) Update(_ context.Context, id string, req *model.UpdateConversationRequest) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if req.AttendantID != nil && *req.AttendantID != "" {
		if _, ok := r.s.users[*req.AttendantID]; !ok {
			return nil, reference("conversations_attendant_id_fkey")
		}
	}
	if req.ChannelID != nil && *req.ChannelID != "" {
		if _, ok := r.s.channels[*req.ChannelID]; !ok {
			return nil, reference("conversations_channel_id_fkey")
		}
	}

	now := r.s.Now()
	if req.Status != nil {
		c.Status = *req.Status
		if *req.Status == model.ConversationClosed {
			if c.ClosedAt == nil {
				c.ClosedAt = &now
			}
		} else {
			c.ClosedAt = nil
		}
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	if req.Subject != nil {
		c.Subject = strPtr(*req.Subject)
	}
	if req.AttendantID != nil {
		c.AttendantID = nil
		if *req.AttendantID != "" {
			c.AttendantID = strPtr(*req.AttendantID)
		}
	}
	if req.ChannelID != nil {
		c.ChannelID = nil
		if *req.ChannelID != "" {
			c.ChannelID = strPtr(*req.ChannelID)
		}
	}
	if req.SidebarWidth != nil {
		c.SidebarWidth = *req.SidebarWidth
	}
	c.UpdatedAt = now
	return r.s.view(c), nil
}

func (r *Conversations) UpdateLocation(_ context.Context, id string, req *model.LocationRequest) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	set := func(dst **string, v *string) {
		if v != nil {
			*dst = strPtr(*v)
		}
	}
	set(&c.Latitude, req.Latitude)
	set(&c.Longitude, req.Longitude)
	set(&c.City, req.City)
	set(&c.State, req.State)
	set(&c.Country, req.Country)
	c.UpdatedAt = r.s.Now()
	return r.s.view(c), nil
}

func (r *Conversations) DeleteAll(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.conversations))
	for id := range r.s.conversations {
		r.s.deleteConversation(id)
	}
	return n, nil
}

func (r *Conversations) CountTotal(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.conversations), nil
}
