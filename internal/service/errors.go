package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/adrianoneco/app-chatapp/internal/repository"
)

// ValidationError reports malformed or missing input. Field names the
// offending request field using its JSON name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// AuthorizationError covers both missing credentials (401) and
// cross-tenant or role violations (403).
type AuthorizationError struct {
	Status  int
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// StorageError wraps a database or filesystem failure. Its text is logged,
// never returned to callers.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

var (
	ErrInvalidCredentials = &AuthorizationError{Status: http.StatusUnauthorized, Message: "invalid credentials"}
	ErrInvalidToken       = &AuthorizationError{Status: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrInactive           = &AuthorizationError{Status: http.StatusForbidden, Message: "account is inactive"}
	ErrAdminOnly          = &AuthorizationError{Status: http.StatusForbidden, Message: "admin access required"}
	ErrForbidden          = &AuthorizationError{Status: http.StatusForbidden, Message: "access denied"}
	ErrUserRequired       = &AuthorizationError{Status: http.StatusForbidden, Message: "API key callers must act on behalf of a user (X-On-Behalf-Of)"}
)

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// storeErr lifts a repository error into the service taxonomy. A missing row
// becomes a NotFoundError for entity; anything else is a StorageError.
func storeErr(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity)
	}
	var ref *repository.ReferenceError
	if errors.As(err, &ref) {
		return notFound(referencedEntity(ref.Constraint, entity))
	}
	return &StorageError{Op: op, Err: err}
}

func referencedEntity(constraint, fallback string) string {
	switch constraint {
	case "conversations_client_id_fkey", "conversations_attendant_id_fkey", "messages_sender_id_fkey":
		return "user"
	case "conversations_channel_id_fkey":
		return "channel"
	case "messages_conversation_id_fkey":
		return "conversation"
	case "message_reactions_message_id_fkey":
		return "message"
	}
	return fallback
}

// StatusCode maps an error from this package onto an HTTP status.
func StatusCode(err error) int {
	var ve *ValidationError
	var nf *NotFoundError
	var ae *AuthorizationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrCorrectorDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ae):
		return ae.Status
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the error text safe to show a caller.
func PublicMessage(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
