package memrepo

import (
	"context"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/repository"
)

type Sessions struct{ s *Store }

func (r *Sessions) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[tokenHash]; ok {
		return conflict("refresh_tokens_token_hash_key")
	}
	r.s.tokens[tokenHash] = &tokenRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *Sessions) ValidateRefreshToken(_ context.Context, tokenHash string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok || t.revoked || !t.expiresAt.After(r.s.Now()) {
		return "", repository.ErrNotFound
	}
	return t.userID, nil
}

func (r *Sessions) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[tokenHash]; ok {
		t.revoked = true
	}
	return nil
}

func (r *Sessions) RevokeAllForUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}
