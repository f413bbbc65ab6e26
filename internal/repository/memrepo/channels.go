package memrepo

import (
	"context"
	"sort"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"github.com/google/uuid"
)

type Channels struct{ s *Store }

func cloneChannel(c *model.Channel) *model.Channel {
	out := *c
	out.Settings = cloneRaw(c.Settings)
	return &out
}

func (r *Channels) Create(_ context.Context, c *model.Channel) (*model.Channel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.channels {
		if other.Slug == c.Slug {
			return nil, conflict("channels_slug_key")
		}
	}
	row := cloneChannel(c)
	row.ID = uuid.NewString()
	row.CreatedAt = r.s.Now()
	row.UpdatedAt = row.CreatedAt
	r.s.channels[row.ID] = row
	return cloneChannel(row), nil
}

func (r *Channels) GetByID(_ context.Context, id string) (*model.Channel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.channels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneChannel(c), nil
}

func (r *Channels) List(_ context.Context) ([]*model.Channel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.Channel, 0, len(r.s.channels))
	for _, c := range r.s.channels {
		out = append(out, cloneChannel(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Channels) Update(_ context.Context, id string, req *model.ChannelRequest) (*model.Channel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.channels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Type != nil {
		c.Type = *req.Type
	}
	if req.Avatar != nil {
		c.Avatar = strPtr(*req.Avatar)
	}
	if req.APIKey != nil {
		c.APIKey = strPtr(*req.APIKey)
	}
	if req.WebhookURL != nil {
		c.WebhookURL = strPtr(*req.WebhookURL)
	}
	if req.PhoneNumber != nil {
		c.PhoneNumber = strPtr(*req.PhoneNumber)
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		c.Settings = cloneRaw(req.Settings)
	}
	c.UpdatedAt = r.s.Now()
	return cloneChannel(c), nil
}

func (r *Channels) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.channels[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.channels, id)
	for _, c := range r.s.conversations {
		if c.ChannelID != nil && *c.ChannelID == id {
			c.ChannelID = nil
		}
	}
	return nil
}
