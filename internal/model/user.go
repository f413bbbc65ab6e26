package model

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleClient
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

func (s UserStatus) IsValid() bool {
	return s == UserActive || s == UserInactive
}

type User struct {
	ID                            string     `json:"id"`
	Email                         string     `json:"email"`
	PasswordHash                  string     `json:"-"`
	Name                          string     `json:"name"`
	MobilePhone                   *string    `json:"mobilePhone,omitempty"`
	RemoteJID                     *string    `json:"remoteJid,omitempty"`
	ExternalID                    *string    `json:"externalId,omitempty"`
	Role                          Role       `json:"role"`
	Avatar                        *string    `json:"avatar,omitempty"`
	Status                        UserStatus `json:"status"`
	LastActiveAt                  time.Time  `json:"lastActive"`
	MainSidebarCollapsed          bool       `json:"mainSidebarCollapsed"`
	ConversationsSidebarWidth     int        `json:"conversationsSidebarWidth"`
	ConversationsSidebarCollapsed bool       `json:"conversationsSidebarCollapsed"`
	CreatedAt                     time.Time  `json:"createdAt"`
}

type CreateUserRequest struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	Name        string     `json:"name"`
	MobilePhone *string    `json:"mobilePhone"`
	RemoteJID   *string    `json:"remoteJid"`
	ExternalID  *string    `json:"externalId"`
	Role        Role       `json:"role"`
	Status      UserStatus `json:"status"`
}

// UpdateUserRequest carries a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Email       *string     `json:"email"`
	Name        *string     `json:"name"`
	MobilePhone *string     `json:"mobilePhone"`
	RemoteJID   *string     `json:"remoteJid"`
	ExternalID  *string     `json:"externalId"`
	Role        *Role       `json:"role"`
	Status      *UserStatus `json:"status"`
}

type PreferencesRequest struct {
	MainSidebarCollapsed          *bool `json:"mainSidebarCollapsed"`
	ConversationsSidebarWidth     *int  `json:"conversationsSidebarWidth"`
	ConversationsSidebarCollapsed *bool `json:"conversationsSidebarCollapsed"`
}
