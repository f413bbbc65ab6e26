// Package memrepo is an in-memory implementation of the service store
// interfaces. It mirrors the constraint behaviour of the Postgres schema
// (unique keys, foreign keys, cascades) and is used by tests and local demos.
package memrepo

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/model"
	"github.com/adrianoneco/app-chatapp/internal/repository"
)

type tokenRow struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

// Store holds all tables behind one mutex, which gives every operation the
// isolation of a serialisable transaction.
type Store struct {
	mu            sync.Mutex
	seq           int64
	users         map[string]*model.User
	channels      map[string]*model.Channel
	conversations map[string]*model.Conversation
	messages      map[string]*model.Message
	messageSeq    map[string]int64
	reactions     []model.Reaction
	tokens        map[string]*tokenRow

	// Now is the clock used for timestamps.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		users:         make(map[string]*model.User),
		channels:      make(map[string]*model.Channel),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string]*model.Message),
		messageSeq:    make(map[string]int64),
		tokens:        make(map[string]*tokenRow),
		Now:           time.Now,
	}
}

func (s *Store) Users() *Users                 { return &Users{s} }
func (s *Store) Channels() *Channels           { return &Channels{s} }
func (s *Store) Conversations() *Conversations { return &Conversations{s} }
func (s *Store) Messages() *Messages           { return &Messages{s} }
func (s *Store) Reactions() *Reactions         { return &Reactions{s} }
func (s *Store) Sessions() *Sessions           { return &Sessions{s} }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func conflict(constraint string) error {
	return &repository.ConflictError{Constraint: constraint}
}

func reference(constraint string) error {
	return &repository.ReferenceError{Constraint: constraint}
}

func strPtr(v string) *string { return &v }

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func containsFold(s *string, needle string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), needle)
}

// sortMessages orders by created_at then insertion order.
func (s *Store) sortMessages(msgs []*model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return s.messageSeq[msgs[i].ID] < s.messageSeq[msgs[j].ID]
	})
}
