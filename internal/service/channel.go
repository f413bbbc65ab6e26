package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"golang.org/x/text/unicode/norm"
)

const maxSlugAttempts = 5

type ChannelService struct {
	channels ChannelStore
}

func NewChannelService(channels ChannelStore) *ChannelService {
	return &ChannelService{channels: channels}
}

// List returns all channels. Credentials are stripped for non-admins.
func (s *ChannelService) List(ctx context.Context, p *model.Principal) ([]*model.Channel, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, storeErr("list channels", "channel", err)
	}
	out := make([]*model.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, visibleChannel(p, ch))
	}
	return out, nil
}

func (s *ChannelService) Get(ctx context.Context, p *model.Principal, id string) (*model.Channel, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	if !validID(id) {
		return nil, notFound("channel")
	}
	ch, err := s.channels.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get channel", "channel", err)
	}
	return visibleChannel(p, ch), nil
}

func (s *ChannelService) Create(ctx context.Context, p *model.Principal, req *model.ChannelRequest) (*model.Channel, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if req.Type == nil || !req.Type.IsValid() {
		return nil, invalid("type", "must be one of whatsapp, telegram, web, email, instagram, facebook")
	}
	if err := validateSettings(req.Settings); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(*req.Name)
	ch := &model.Channel{
		Name:        name,
		Type:        *req.Type,
		Avatar:      blankToNil(req.Avatar),
		APIKey:      blankToNil(req.APIKey),
		WebhookURL:  blankToNil(req.WebhookURL),
		PhoneNumber: blankToNil(req.PhoneNumber),
		IsActive:    req.IsActive == nil || *req.IsActive,
		Settings:    req.Settings,
	}

	base := Slugify(name)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		ch.Slug = base
		if attempt > 0 {
			ch.Slug = base + "-" + randomSuffix()
		}
		created, err := s.channels.Create(ctx, ch)
		if err == nil {
			return created, nil
		}
		var conflict *repository.ConflictError
		if !errors.As(err, &conflict) {
			return nil, storeErr("create channel", "channel", err)
		}
	}
	return nil, invalid("name", "could not derive a unique slug")
}

func (s *ChannelService) Update(ctx context.Context, p *model.Principal, id string, req *model.ChannelRequest) (*model.Channel, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, notFound("channel")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, invalid("name", "cannot be empty")
	}
	if req.Type != nil && !req.Type.IsValid() {
		return nil, invalid("type", "must be one of whatsapp, telegram, web, email, instagram, facebook")
	}
	if err := validateSettings(req.Settings); err != nil {
		return nil, err
	}
	ch, err := s.channels.Update(ctx, id, req)
	if err != nil {
		return nil, storeErr("update channel", "channel", err)
	}
	return ch, nil
}

func (s *ChannelService) Delete(ctx context.Context, p *model.Principal, id string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if !validID(id) {
		return notFound("channel")
	}
	return storeErr("delete channel", "channel", s.channels.Delete(ctx, id))
}

func visibleChannel(p *model.Principal, ch *model.Channel) *model.Channel {
	if p.IsAdmin() {
		return ch
	}
	r := ch.Redacted()
	return &r
}

func validateSettings(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return invalid("settings", "must be a JSON object")
	}
	return nil
}

// Slugify lowercases name, strips accents and joins alphanumeric runs with
// dashes: "Suporte Técnico #1" becomes "suporte-tecnico-1".
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(name)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "channel"
	}
	return slug
}

func randomSuffix() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
