package model

import (
	"encoding/json"
	"time"
)

type ChannelType string

const (
	ChannelWhatsApp  ChannelType = "whatsapp"
	ChannelTelegram  ChannelType = "telegram"
	ChannelWeb       ChannelType = "web"
	ChannelEmail     ChannelType = "email"
	ChannelInstagram ChannelType = "instagram"
	ChannelFacebook  ChannelType = "facebook"
)

func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelWhatsApp, ChannelTelegram, ChannelWeb, ChannelEmail, ChannelInstagram, ChannelFacebook:
		return true
	}
	return false
}

type Channel struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Type        ChannelType     `json:"type"`
	Avatar      *string         `json:"avatar,omitempty"`
	APIKey      *string         `json:"apiKey,omitempty"`
	WebhookURL  *string         `json:"webhookUrl,omitempty"`
	PhoneNumber *string         `json:"phoneNumber,omitempty"`
	IsActive    bool            `json:"isActive"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Redacted returns a copy without credentials, for non-admin callers.
func (c Channel) Redacted() Channel {
	c.APIKey = nil
	c.WebhookURL = nil
	return c
}

type ChannelRequest struct {
	Name        *string         `json:"name"`
	Type        *ChannelType    `json:"type"`
	Avatar      *string         `json:"avatar"`
	APIKey      *string         `json:"apiKey"`
	WebhookURL  *string         `json:"webhookUrl"`
	PhoneNumber *string         `json:"phoneNumber"`
	IsActive    *bool           `json:"isActive"`
	Settings    json.RawMessage `json:"settings"`
}
