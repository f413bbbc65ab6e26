package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Principal is the authenticated caller of a request. It is resolved once by
// the auth middleware and passed explicitly into every service call.
type Principal struct {
	UserID string
	Name   string
	Role   Role
	// ViaAPIKey marks integration callers authenticated by the global API key.
	ViaAPIKey bool
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// HasUser reports whether the principal is bound to a concrete user row.
func (p *Principal) HasUser() bool {
	return p != nil && p.UserID != ""
}

// CanAccessConversation applies the tenancy rule: admins see everything,
// clients only conversations they own.
func (p *Principal) CanAccessConversation(c *Conversation) bool {
	if p == nil || c == nil {
		return false
	}
	return p.IsAdmin() || (p.HasUser() && c.ClientID == p.UserID)
}

func (p *Principal) SenderType() SenderType {
	if p.IsAdmin() {
		return SenderAttendant
	}
	return SenderClient
}
