// Package memory holds an in-memory implementation of the storage
// interfaces, used by tests and local development without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hongminglow/message-bus/internal/models"
	"github.com/hongminglow/message-bus/internal/storage"
)

var (
	_ storage.UserStore    = (*Store)(nil)
	_ storage.MessageStore = (*Store)(nil)
)

// Store keeps users and messages in maps guarded by a single mutex.
type Store struct {
	mu         sync.Mutex
	users      map[int64]models.User
	byUsername map[string]int64
	messages   map[int64]models.Message
	nextUserID int64
	nextMsgID  int64
}

// New returns an empty store. Assigned ids start at 1.
func New() *Store {
	return &Store{
		users:      make(map[int64]models.User),
		byUsername: make(map[string]int64),
		messages:   make(map[int64]models.Message),
	}
}

// CreateUser adds a user, assigning a fresh id.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[user.Username]; exists {
		return models.User{}, storage.ErrAlreadyExists
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	s.byUsername[user.Username] = user.ID
	return user, nil
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// FindUserByUsername fetches a user by username.
func (s *Store) FindUserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// CreateMessage adds a message owned by ownerID, assigning a fresh id.
func (s *Store) CreateMessage(_ context.Context, ownerID int64, text string) (models.Message, error) {
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return models.Message{}, storage.ErrTextTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ownerID]; !ok {
		return models.Message{}, storage.ErrNotFound
	}
	s.nextMsgID++
	msg := models.Message{ID: s.nextMsgID, UserID: ownerID, Text: text}
	s.messages[msg.ID] = msg
	return msg, nil
}

// GetMessage fetches a message by id.
func (s *Store) GetMessage(_ context.Context, id int64) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return models.Message{}, storage.ErrNotFound
	}
	return msg, nil
}

// UpdateMessage applies a partial update; unset patch fields keep their
// stored values.
func (s *Store) UpdateMessage(_ context.Context, id int64, patch models.MessagePatch) (models.Message, error) {
	if patch.Text != nil && utf8.RuneCountInString(*patch.Text) > models.MaxMessageLength {
		return models.Message{}, storage.ErrTextTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return models.Message{}, storage.ErrNotFound
	}
	if patch.UserID != nil {
		if _, ok := s.users[*patch.UserID]; !ok {
			return models.Message{}, storage.ErrNotFound
		}
		msg.UserID = *patch.UserID
	}
	if patch.Text != nil {
		msg.Text = *patch.Text
	}
	s.messages[id] = msg
	return msg, nil
}

// DeleteMessage removes a message by id.
func (s *Store) DeleteMessage(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

// ListMessagesByOwner returns the owner's messages in ascending id order.
func (s *Store) ListMessagesByOwner(_ context.Context, ownerID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Message
	for _, msg := range s.messages {
		if msg.UserID == ownerID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
