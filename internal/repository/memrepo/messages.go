package memrepo

import (
	"context"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"

	"github.com/google/uuid"
)

type Messages struct{ s *Store }

func cloneMessage(m *model.Message) *model.Message {
	out := *m
	out.Metadata = cloneRaw(m.Metadata)
	out.QuotedMessage = nil
	out.Reactions = []model.Reaction{}
	return &out
}

func (s *Store) deleteMessage(id string) {
	delete(s.messages, id)
	delete(s.messageSeq, id)
	kept := s.reactions[:0]
	for _, rc := range s.reactions {
		if rc.MessageID != id {
			kept = append(kept, rc)
		}
	}
	s.reactions = kept
}

// Create inserts the message and updates the conversation summary in the
// same critical section.
func (r *Messages) Create(_ context.Context, nm *model.NewMessage, preview string) (*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	conv, ok := r.s.conversations[nm.ConversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if nm.SenderID != nil {
		if _, ok := r.s.users[*nm.SenderID]; !ok {
			return nil, reference("messages_sender_id_fkey")
		}
	}

	now := r.s.Now()
	m := &model.Message{
		ID:              uuid.NewString(),
		ConversationID:  nm.ConversationID,
		SenderID:        nm.SenderID,
		SenderType:      nm.SenderType,
		SenderName:      nm.SenderName,
		Content:         nm.Content,
		ContentType:     nm.ContentType,
		FileURL:         nm.FileURL,
		Thumbnail:       nm.Thumbnail,
		Duration:        nm.Duration,
		Metadata:        cloneRaw(nm.Metadata),
		QuotedMessageID: nm.QuotedMessageID,
		IsForwarded:     nm.IsForwarded,
		IsPrivate:       nm.IsPrivate,
		Status:          model.StatusSent,
		CreatedAt:       now,
	}
	r.s.messages[m.ID] = m
	r.s.messageSeq[m.ID] = r.s.next()

	if now.After(conv.LastMessageAt) {
		conv.LastMessageAt = now
	}
	if !m.IsPrivate {
		conv.LastMessage = strPtr(preview)
	}
	if m.SenderType == model.SenderClient {
		conv.UnreadCount++
	}
	conv.UpdatedAt = now
	return cloneMessage(m), nil
}

func (r *Messages) GetByID(_ context.Context, id string) (*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (r *Messages) GetByIDs(_ context.Context, ids []string) (map[string]*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]*model.Message, len(ids))
	for _, id := range ids {
		if m, ok := r.s.messages[id]; ok {
			out[id] = cloneMessage(m)
		}
	}
	return out, nil
}

func (r *Messages) ListByConversation(_ context.Context, conversationID string, includePrivate bool) ([]*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Message
	for _, m := range r.s.messages {
		if m.ConversationID != conversationID || (m.IsPrivate && !includePrivate) {
			continue
		}
		out = append(out, cloneMessage(m))
	}
	r.s.sortMessages(out)
	return out, nil
}

func (r *Messages) AdvanceStatus(_ context.Context, id string, status model.DeliveryStatus) (*model.Message, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if !m.Status.CanAdvanceTo(status) {
		return cloneMessage(m), false, nil
	}
	r.s.advance(m, status)
	return cloneMessage(m), true, nil
}

func (s *Store) advance(m *model.Message, status model.DeliveryStatus) {
	now := s.Now()
	m.Status = status
	if m.DeliveredAt == nil {
		m.DeliveredAt = &now
	}
	if status == model.StatusRead && m.ReadAt == nil {
		m.ReadAt = &now
	}
}

func (r *Messages) MarkConversationRead(_ context.Context, conversationID string, reader model.SenderType) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var msgs []*model.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID && m.SenderType != reader && m.Status != model.StatusRead && !m.IsPrivate {
			msgs = append(msgs, m)
		}
	}
	r.s.sortMessages(msgs)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		r.s.advance(m, model.StatusRead)
		ids = append(ids, m.ID)
	}
	if c, ok := r.s.conversations[conversationID]; ok && reader == model.SenderAttendant {
		c.UnreadCount = 0
	}
	return ids, nil
}
