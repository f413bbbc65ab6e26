package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"go.uber.org/zap"
)

const (
	maxProtocolAttempts = 5
	protocolConstraint  = "conversations_protocol_key"
	defaultSubject      = "New conversation"
)

var protocolRange = big.NewInt(1_000_000)

type ConversationService struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserStore
	publisher     Publisher
	notifier      Notifier
	now           func() time.Time
}

func NewConversationService(conversations ConversationStore, messages MessageStore, users UserStore, publisher Publisher, notifier Notifier) *ConversationService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		publisher:     publisher,
		notifier:      notifier,
		now:           time.Now,
	}
}

// GenerateProtocol returns a ticket code of the form ATD-<year>-<6 digits>.
func GenerateProtocol(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, protocolRange)
	if err != nil {
		return "", fmt.Errorf("generate protocol: %w", err)
	}
	return fmt.Sprintf("ATD-%d-%06d", now.Year(), n.Int64()), nil
}

// Create opens a conversation. Clients always open for themselves; admins
// open on behalf of clientId and become the attendant.
func (s *ConversationService) Create(ctx context.Context, p *model.Principal, req *model.CreateConversationRequest) (*model.Conversation, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	if !p.IsAdmin() && !p.HasUser() {
		return nil, ErrUserRequired
	}

	nc := &model.NewConversation{
		Status:   model.ConversationPending,
		Priority: model.PriorityNormal,
		Subject:  defaultSubject,
	}
	if p.IsAdmin() {
		if req.ClientID == "" {
			return nil, invalid("clientId", "is required")
		}
		if !validID(req.ClientID) {
			return nil, invalid("clientId", "must be a valid id")
		}
		client, err := s.users.GetByID(ctx, req.ClientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("clientId", "user does not exist")
			}
			return nil, storeErr("load client", "user", err)
		}
		if client.Role != model.RoleClient {
			return nil, invalid("clientId", "user is not a client")
		}
		nc.ClientID = req.ClientID
		if p.HasUser() {
			attendant := p.UserID
			nc.AttendantID = &attendant
		}
	} else {
		if req.ClientID != "" && req.ClientID != p.UserID {
			return nil, ErrForbidden
		}
		nc.ClientID = p.UserID
	}

	if req.Priority != "" {
		if !req.Priority.IsValid() {
			return nil, invalid("priority", "must be one of low, normal, high, urgent")
		}
		nc.Priority = req.Priority
	}
	if req.Subject != nil && strings.TrimSpace(*req.Subject) != "" {
		nc.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.ChannelID != nil && *req.ChannelID != "" {
		if !validID(*req.ChannelID) {
			return nil, invalid("channelId", "must be a valid id")
		}
		nc.ChannelID = req.ChannelID
	}

	conv, err := s.insertWithProtocol(ctx, nc)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("protocol", conv.Protocol),
		zap.String("client_id", conv.ClientID),
	)
	emit(s.publisher, model.EventConversationNew, conv.ClientID, false, conv)
	s.notifier.ConversationCreated(conv)
	return conv, nil
}

// insertWithProtocol retries protocol generation on collision with the
// unique constraint; any other failure is returned immediately.
func (s *ConversationService) insertWithProtocol(ctx context.Context, nc *model.NewConversation) (*model.Conversation, error) {
	for attempt := 1; attempt <= maxProtocolAttempts; attempt++ {
		protocol, err := GenerateProtocol(s.now())
		if err != nil {
			return nil, &StorageError{Op: "create conversation", Err: err}
		}
		nc.Protocol = protocol

		conv, err := s.conversations.Create(ctx, nc)
		if err == nil {
			return conv, nil
		}
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) && conflict.Constraint == protocolConstraint {
			logger.Log.Warn("protocol collision, regenerating", zap.String("protocol", protocol), zap.Int("attempt", attempt))
			continue
		}
		return nil, storeErr("create conversation", "conversation", err)
	}
	return nil, &StorageError{Op: "create conversation", Err: fmt.Errorf("no unique protocol after %d attempts", maxProtocolAttempts)}
}

// List returns the conversations visible to p. For clients the scope is
// pushed into the store query, so other tenants' rows are never loaded.
func (s *ConversationService) List(ctx context.Context, p *model.Principal, filter model.ConversationFilter) ([]*model.Conversation, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	filter.ClientID = ""
	if !p.IsAdmin() {
		if !p.HasUser() {
			return nil, ErrUserRequired
		}
		filter.ClientID = p.UserID
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, invalid("status", "must be one of open, pending, closed")
	}
	if filter.ChannelID != "" && !validID(filter.ChannelID) {
		return nil, invalid("channelId", "must be a valid id")
	}
	filter.Search = strings.TrimSpace(filter.Search)

	convs, err := s.conversations.List(ctx, filter)
	if err != nil {
		return nil, storeErr("list conversations", "conversation", err)
	}
	if convs == nil {
		convs = []*model.Conversation{}
	}
	return convs, nil
}

func (s *ConversationService) Get(ctx context.Context, p *model.Principal, id string) (*model.Conversation, error) {
	return s.accessible(ctx, p, id)
}

// accessible loads a conversation and applies the tenancy rule. Conversations
// of other clients are reported as forbidden.
func (s *ConversationService) accessible(ctx context.Context, p *model.Principal, id string) (*model.Conversation, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	if !validID(id) {
		return nil, notFound("conversation")
	}
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get conversation", "conversation", err)
	}
	if !p.CanAccessConversation(conv) {
		return nil, ErrForbidden
	}
	return conv, nil
}

func (s *ConversationService) Update(ctx context.Context, p *model.Principal, id string, req *model.UpdateConversationRequest) (*model.Conversation, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, notFound("conversation")
	}
	if req.Status != nil && !req.Status.IsValid() {
		return nil, invalid("status", "must be one of open, pending, closed")
	}
	if req.Priority != nil && !req.Priority.IsValid() {
		return nil, invalid("priority", "must be one of low, normal, high, urgent")
	}
	if req.AttendantID != nil && *req.AttendantID != "" && !validID(*req.AttendantID) {
		return nil, invalid("attendantId", "must be a valid id")
	}
	if req.ChannelID != nil && *req.ChannelID != "" && !validID(*req.ChannelID) {
		return nil, invalid("channelId", "must be a valid id")
	}
	if w := req.SidebarWidth; w != nil && (*w < 200 || *w > 800) {
		return nil, invalid("sidebarWidth", "must be between 200 and 800")
	}

	conv, err := s.conversations.Update(ctx, id, req)
	if err != nil {
		return nil, storeErr("update conversation", "conversation", err)
	}
	emit(s.publisher, model.EventConversationUpdated, conv.ClientID, false, conv)
	return conv, nil
}

func (s *ConversationService) UpdateLocation(ctx context.Context, p *model.Principal, id string, req *model.LocationRequest) (*model.Conversation, error) {
	if _, err := s.accessible(ctx, p, id); err != nil {
		return nil, err
	}
	conv, err := s.conversations.UpdateLocation(ctx, id, req)
	if err != nil {
		return nil, storeErr("update location", "conversation", err)
	}
	emit(s.publisher, model.EventConversationUpdated, conv.ClientID, false, conv)
	return conv, nil
}

// MarkRead marks every message from the other party as read and returns how
// many changed. An attendant reading also clears the unread counter.
func (s *ConversationService) MarkRead(ctx context.Context, p *model.Principal, id string) (int, error) {
	conv, err := s.accessible(ctx, p, id)
	if err != nil {
		return 0, err
	}
	ids, err := s.messages.MarkConversationRead(ctx, conv.ID, p.SenderType())
	if err != nil {
		return 0, storeErr("mark read", "conversation", err)
	}
	for _, msgID := range ids {
		emit(s.publisher, model.EventMessageStatus, conv.ClientID, false, model.StatusEvent{
			MessageID:      msgID,
			ConversationID: conv.ID,
			Status:         model.StatusRead,
		})
	}
	return len(ids), nil
}
