package memrepo

import (
	"context"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"
)

type Reactions struct{ s *Store }

func (r *Reactions) Toggle(_ context.Context, messageID, userID, userName, emoji string) (*model.ReactionResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[messageID]; !ok {
		return nil, repository.ErrNotFound
	}

	removed := false
	kept := r.s.reactions[:0]
	for _, rc := range r.s.reactions {
		if rc.MessageID == messageID && rc.UserID == userID && rc.Emoji == emoji {
			removed = true
			continue
		}
		kept = append(kept, rc)
	}
	r.s.reactions = kept
	if !removed {
		r.s.reactions = append(r.s.reactions, model.Reaction{
			MessageID: messageID,
			UserID:    userID,
			UserName:  userName,
			Emoji:     emoji,
			CreatedAt: r.s.Now(),
		})
	}

	list := []model.Reaction{}
	for _, rc := range r.s.reactions {
		if rc.MessageID == messageID {
			list = append(list, rc)
		}
	}
	return &model.ReactionResult{Reactions: list, Added: !removed}, nil
}

func (r *Reactions) ListForMessages(_ context.Context, messageIDs []string) (map[string][]model.Reaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = true
	}
	out := make(map[string][]model.Reaction, len(messageIDs))
	for _, rc := range r.s.reactions {
		if want[rc.MessageID] {
			out[rc.MessageID] = append(out[rc.MessageID], rc)
		}
	}
	return out, nil
}
