package service

import (
	"net/mail"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/google/uuid"
)

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func requireAdmin(p *model.Principal) error {
	if p == nil {
		return ErrInvalidToken
	}
	if !p.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

func requireUser(p *model.Principal) error {
	if p == nil {
		return ErrInvalidToken
	}
	if !p.HasUser() {
		return ErrUserRequired
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

// blankToNil turns a pointer to an empty string into nil so optional unique
// identifiers are stored as NULL.
func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
