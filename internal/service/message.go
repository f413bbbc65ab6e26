package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/metrics"
	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"go.uber.org/zap"
)

const (
	maxForwardTargets = 50
	maxEmojiBytes     = 32
)

type MessageService struct {
	conversations ConversationStore
	messages      MessageStore
	reactions     ReactionStore
	publisher     Publisher
	notifier      Notifier
}

func NewMessageService(conversations ConversationStore, messages MessageStore, reactions ReactionStore, publisher Publisher, notifier Notifier) *MessageService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		reactions:     reactions,
		publisher:     publisher,
		notifier:      notifier,
	}
}

// Send validates and persists a message from p into a conversation p can
// access. The conversation summary is updated in the same store call.
func (s *MessageService) Send(ctx context.Context, p *model.Principal, req *model.SendMessageRequest) (*model.Message, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if req.ConversationID == "" {
		return nil, invalid("conversationId", "is required")
	}
	if !validID(req.ConversationID) {
		return nil, invalid("conversationId", "must be a valid id")
	}
	if req.ContentType == "" {
		req.ContentType = model.ContentText
	}
	if !req.ContentType.IsValid() {
		return nil, invalid("contentType", "must be one of text, image, video, audio, music, contact, file")
	}
	if req.ContentType == model.ContentText && strings.TrimSpace(req.Content) == "" {
		return nil, invalid("content", "is required for text messages")
	}
	if req.ContentType.HasAttachment() && (req.FileURL == nil || strings.TrimSpace(*req.FileURL) == "") {
		return nil, invalid("fileUrl", "is required for "+string(req.ContentType)+" messages")
	}
	if req.Duration != nil && *req.Duration < 0 {
		return nil, invalid("duration", "must not be negative")
	}
	metadata, err := cleanMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}
	if req.IsPrivate && !p.IsAdmin() {
		return nil, invalid("isPrivate", "only attendants can write private notes")
	}

	conv, err := s.conversations.GetByID(ctx, req.ConversationID)
	if err != nil {
		return nil, storeErr("get conversation", "conversation", err)
	}
	if !p.CanAccessConversation(conv) {
		return nil, ErrForbidden
	}

	quoted := blankToNil(req.QuotedMessageID)
	if quoted != nil {
		if err := s.checkQuote(ctx, p, conv.ID, *quoted); err != nil {
			return nil, err
		}
	}

	msg, err := s.insert(ctx, conv, &model.NewMessage{
		ConversationID:  conv.ID,
		SenderID:        &p.UserID,
		SenderType:      p.SenderType(),
		SenderName:      senderName(p),
		Content:         req.Content,
		ContentType:     req.ContentType,
		FileURL:         blankToNil(req.FileURL),
		Thumbnail:       blankToNil(req.Thumbnail),
		Duration:        req.Duration,
		Metadata:        metadata,
		QuotedMessageID: quoted,
		IsPrivate:       req.IsPrivate,
	})
	if err != nil {
		return nil, err
	}

	if quoted != nil {
		if q, err := s.messages.GetByID(ctx, *quoted); err == nil {
			msg.QuotedMessage = q.Quote()
		}
	}
	if msg.SenderType == model.SenderClient {
		s.notifier.ClientMessage(conv, msg)
	}
	return msg, nil
}

// insert persists nm and publishes it. conv is the destination as loaded by
// the caller.
func (s *MessageService) insert(ctx context.Context, conv *model.Conversation, nm *model.NewMessage) (*model.Message, error) {
	preview := (&model.Message{Content: nm.Content, ContentType: nm.ContentType}).Preview()
	msg, err := s.messages.Create(ctx, nm, preview)
	if err != nil {
		return nil, storeErr("create message", "conversation", err)
	}
	metrics.MessagesCreated.WithLabelValues(string(msg.SenderType), strconv.FormatBool(msg.IsForwarded)).Inc()
	emit(s.publisher, model.EventMessageNew, conv.ClientID, msg.IsPrivate, msg)
	return msg, nil
}

// checkQuote requires a quoted message to live in the same conversation and
// be visible to the sender.
func (s *MessageService) checkQuote(ctx context.Context, p *model.Principal, conversationID, quotedID string) error {
	if !validID(quotedID) {
		return invalid("quotedMessageId", "must be a valid id")
	}
	q, err := s.messages.GetByID(ctx, quotedID)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("quotedMessageId", "message does not exist")
	}
	if err != nil {
		return storeErr("get quoted message", "message", err)
	}
	if q.ConversationID != conversationID || (q.IsPrivate && !p.IsAdmin()) {
		return invalid("quotedMessageId", "message does not exist")
	}
	return nil
}

// List returns a conversation's messages oldest first with quote summaries
// and reactions attached. Quotes are resolved per message: a reference that
// is dangling, crosses conversations or points at a note the caller cannot
// see is left unresolved without failing the listing.
func (s *MessageService) List(ctx context.Context, p *model.Principal, conversationID string) ([]*model.Message, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	if !validID(conversationID) {
		return nil, notFound("conversation")
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, storeErr("get conversation", "conversation", err)
	}
	if !p.CanAccessConversation(conv) {
		return nil, ErrForbidden
	}

	msgs, err := s.messages.ListByConversation(ctx, conv.ID, p.IsAdmin())
	if err != nil {
		return nil, storeErr("list messages", "conversation", err)
	}
	if len(msgs) == 0 {
		return []*model.Message{}, nil
	}

	byID := make(map[string]*model.Message, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	var missing []string
	for _, m := range msgs {
		if m.QuotedMessageID == nil {
			continue
		}
		if _, ok := byID[*m.QuotedMessageID]; !ok && validID(*m.QuotedMessageID) {
			missing = append(missing, *m.QuotedMessageID)
		}
	}
	quotes := map[string]*model.Message{}
	if len(missing) > 0 {
		quotes, err = s.messages.GetByIDs(ctx, missing)
		if err != nil {
			// quote summaries are decoration; the listing still succeeds
			logger.Log.Warn("resolve quoted messages", zap.String("conversation_id", conv.ID), zap.Error(err))
			quotes = map[string]*model.Message{}
		}
	}
	for _, m := range msgs {
		if m.QuotedMessageID == nil {
			continue
		}
		q, ok := byID[*m.QuotedMessageID]
		if !ok {
			q, ok = quotes[*m.QuotedMessageID]
		}
		if ok && q.ConversationID == m.ConversationID && (!q.IsPrivate || p.IsAdmin()) {
			m.QuotedMessage = q.Quote()
		}
	}

	reactions, err := s.reactions.ListForMessages(ctx, ids)
	if err != nil {
		return nil, storeErr("list reactions", "message", err)
	}
	for _, m := range msgs {
		if rs, ok := reactions[m.ID]; ok {
			m.Reactions = rs
		} else {
			m.Reactions = []model.Reaction{}
		}
	}
	return msgs, nil
}

// readable loads a message and its conversation, enforcing that p may see
// both. Private notes are invisible to clients.
func (s *MessageService) readable(ctx context.Context, p *model.Principal, messageID string) (*model.Message, *model.Conversation, error) {
	if p == nil {
		return nil, nil, ErrInvalidToken
	}
	if !validID(messageID) {
		return nil, nil, notFound("message")
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, storeErr("get message", "message", err)
	}
	conv, err := s.conversations.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, nil, storeErr("get conversation", "conversation", err)
	}
	if !p.CanAccessConversation(conv) {
		return nil, nil, ErrForbidden
	}
	if msg.IsPrivate && !p.IsAdmin() {
		return nil, nil, notFound("message")
	}
	return msg, conv, nil
}

// ToggleReaction adds the (user, emoji) reaction or removes it if present.
// Applying the same toggle twice restores the original reaction list.
func (s *MessageService) ToggleReaction(ctx context.Context, p *model.Principal, messageID, emoji string) (*model.ReactionResult, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, invalid("emoji", "is required")
	}
	if len(emoji) > maxEmojiBytes {
		return nil, invalid("emoji", "is too long")
	}
	msg, conv, err := s.readable(ctx, p, messageID)
	if err != nil {
		return nil, err
	}

	res, err := s.reactions.Toggle(ctx, msg.ID, p.UserID, senderName(p), emoji)
	if err != nil {
		return nil, storeErr("toggle reaction", "message", err)
	}
	outcome := "removed"
	if res.Added {
		outcome = "added"
	}
	metrics.ReactionToggles.WithLabelValues(outcome).Inc()

	emit(s.publisher, model.EventMessageReaction, conv.ClientID, msg.IsPrivate, model.ReactionEvent{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		Reactions:      res.Reactions,
	})
	return res, nil
}

// Forward copies a message into each destination conversation. Destinations
// are handled independently: a failing destination is reported in Failures
// and does not undo the copies already made.
func (s *MessageService) Forward(ctx context.Context, p *model.Principal, messageID string, conversationIDs []string) (*model.ForwardResult, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	targets := dedupe(conversationIDs)
	if len(targets) == 0 {
		return nil, invalid("conversationIds", "at least one destination is required")
	}
	if len(targets) > maxForwardTargets {
		return nil, invalid("conversationIds", "at most "+strconv.Itoa(maxForwardTargets)+" destinations are allowed")
	}

	src, _, err := s.readable(ctx, p, messageID)
	if err != nil {
		return nil, err
	}

	res := &model.ForwardResult{
		Forwarded: []*model.Message{},
		Failures:  []model.ForwardFailure{},
	}
	for _, target := range targets {
		msg, err := s.forwardOne(ctx, p, src, target)
		if err != nil {
			metrics.ForwardFailures.Inc()
			if StatusCode(err) >= 500 {
				logger.Log.Error("forward message",
					zap.String("message_id", src.ID),
					zap.String("conversation_id", target),
					zap.Error(err),
				)
			}
			res.Failures = append(res.Failures, model.ForwardFailure{
				ConversationID: target,
				Code:           StatusCode(err),
				Error:          PublicMessage(err),
			})
			continue
		}
		res.Forwarded = append(res.Forwarded, msg)
	}

	logger.Log.Info("message forwarded",
		zap.String("message_id", src.ID),
		zap.Int("forwarded", len(res.Forwarded)),
		zap.Int("failed", len(res.Failures)),
	)
	return res, nil
}

func (s *MessageService) forwardOne(ctx context.Context, p *model.Principal, src *model.Message, target string) (*model.Message, error) {
	if !validID(target) {
		return nil, notFound("conversation")
	}
	conv, err := s.conversations.GetByID(ctx, target)
	if err != nil {
		return nil, storeErr("get conversation", "conversation", err)
	}
	if !p.CanAccessConversation(conv) {
		return nil, ErrForbidden
	}
	return s.insert(ctx, conv, &model.NewMessage{
		ConversationID: conv.ID,
		SenderID:       &p.UserID,
		SenderType:     p.SenderType(),
		SenderName:     senderName(p),
		Content:        src.Content,
		ContentType:    src.ContentType,
		FileURL:        src.FileURL,
		Thumbnail:      src.Thumbnail,
		Duration:       src.Duration,
		Metadata:       src.Metadata,
		IsForwarded:    true,
		IsPrivate:      src.IsPrivate,
	})
}

// AdvanceStatus moves a message's delivery status forward. Requests that
// would move it backwards, or leave it unchanged, return the current message.
// Clients may only acknowledge messages they did not send themselves.
func (s *MessageService) AdvanceStatus(ctx context.Context, p *model.Principal, messageID string, status model.DeliveryStatus) (*model.Message, error) {
	if !status.IsValid() {
		return nil, invalid("status", "must be one of sent, delivered, read")
	}
	msg, conv, err := s.readable(ctx, p, messageID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && msg.SenderType == model.SenderClient {
		return nil, ErrForbidden
	}
	if !msg.Status.CanAdvanceTo(status) {
		return msg, nil
	}

	updated, changed, err := s.messages.AdvanceStatus(ctx, msg.ID, status)
	if err != nil {
		return nil, storeErr("advance status", "message", err)
	}
	if changed {
		emit(s.publisher, model.EventMessageStatus, conv.ClientID, updated.IsPrivate, model.StatusEvent{
			MessageID:      updated.ID,
			ConversationID: conv.ID,
			Status:         updated.Status,
		})
	}
	return updated, nil
}

// cleanMetadata requires metadata to be a JSON object and drops any
// "reactions" key; reactions are stored separately.
func cleanMetadata(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, invalid("metadata", "must be a JSON object")
	}
	if _, ok := obj["reactions"]; !ok {
		return raw, nil
	}
	delete(obj, "reactions")
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, invalid("metadata", "must be a JSON object")
	}
	return out, nil
}

func senderName(p *model.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return "Unknown"
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
