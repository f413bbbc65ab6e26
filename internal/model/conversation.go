package model

import "time"

type ConversationStatus string

const (
	ConversationOpen    ConversationStatus = "open"
	ConversationPending ConversationStatus = "pending"
	ConversationClosed  ConversationStatus = "closed"
)

func (s ConversationStatus) IsValid() bool {
	return s == ConversationOpen || s == ConversationPending || s == ConversationClosed
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Conversation struct {
	ID            string             `json:"id"`
	Protocol      string             `json:"protocol"`
	ClientID      string             `json:"clientId"`
	ClientName    *string            `json:"clientName,omitempty"`
	ClientEmail   *string            `json:"clientEmail,omitempty"`
	ClientPhone   *string            `json:"clientPhone,omitempty"`
	AttendantID   *string            `json:"attendantId,omitempty"`
	ChannelID     *string            `json:"channelId,omitempty"`
	Status        ConversationStatus `json:"status"`
	Priority      Priority           `json:"priority"`
	Subject       *string            `json:"subject,omitempty"`
	Latitude      *string            `json:"latitude,omitempty"`
	Longitude     *string            `json:"longitude,omitempty"`
	City          *string            `json:"city,omitempty"`
	State         *string            `json:"state,omitempty"`
	Country       *string            `json:"country,omitempty"`
	LastMessage   *string            `json:"lastMessage,omitempty"`
	LastMessageAt time.Time          `json:"lastMessageAt"`
	UnreadCount   int                `json:"unreadCount"`
	SidebarWidth  int                `json:"sidebarWidth"`
	ClosedAt      *time.Time         `json:"closedAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type CreateConversationRequest struct {
	ClientID  string   `json:"clientId"`
	ChannelID *string  `json:"channelId"`
	Subject   *string  `json:"subject"`
	Priority  Priority `json:"priority"`
}

// NewConversation is the row handed to the repository on insert.
type NewConversation struct {
	Protocol    string
	ClientID    string
	AttendantID *string
	ChannelID   *string
	Status      ConversationStatus
	Priority    Priority
	Subject     string
}

type UpdateConversationRequest struct {
	Status       *ConversationStatus `json:"status"`
	Priority     *Priority           `json:"priority"`
	Subject      *string             `json:"subject"`
	AttendantID  *string             `json:"attendantId"`
	ChannelID    *string             `json:"channelId"`
	SidebarWidth *int                `json:"sidebarWidth"`
}

type LocationRequest struct {
	Latitude  *string `json:"latitude"`
	Longitude *string `json:"longitude"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	Country   *string `json:"country"`
}

// ConversationFilter narrows a listing. ClientID is the tenancy scope and is
// only ever set from the caller's principal.
type ConversationFilter struct {
	ClientID  string
	Status    ConversationStatus
	ChannelID string
	Search    string
}
