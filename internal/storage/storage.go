package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/message-bus/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrTextTooLong indicates a message body exceeding models.MaxMessageLength.
var ErrTextTooLong = errors.New("message text too long")

// UserStore captures user persistence operations needed by handlers and
// middleware.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
}

// MessageStore captures message persistence operations. Each call has
// single-row transaction semantics; concurrent updates to the same id
// follow last-writer-wins.
type MessageStore interface {
	CreateMessage(ctx context.Context, ownerID int64, text string) (models.Message, error)
	GetMessage(ctx context.Context, id int64) (models.Message, error)
	UpdateMessage(ctx context.Context, id int64, patch models.MessagePatch) (models.Message, error)
	DeleteMessage(ctx context.Context, id int64) error
	ListMessagesByOwner(ctx context.Context, ownerID int64) ([]models.Message, error)
}
