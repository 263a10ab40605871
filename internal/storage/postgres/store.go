package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/hongminglow/message-bus/internal/models"
	"github.com/hongminglow/message-bus/internal/storage"
	"github.com/hongminglow/message-bus/internal/storage/postgres/migrations"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore    = (*Store)(nil)
	_ storage.MessageStore = (*Store)(nil)
)

// Postgres error codes surfaced as storage sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeStringTooLong       = "22001"
)

// Store provides Postgres-backed persistence for users and messages.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database, applies pending migrations, and returns a
// ready store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := migrate(ctx, databaseURL); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	INSERT INTO users (username, password_hash, is_staff, is_superuser, is_active)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at;
	`
	row := s.pool.QueryRow(ctx, query,
		user.Username, user.PasswordHash, user.IsStaff, user.IsSuperuser, user.IsActive)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// FindUserByID fetches a user by primary key.
func (s *Store) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	const query = `
	SELECT id, username, password_hash, is_staff, is_superuser, is_active, created_at
	FROM users
	WHERE id = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindUserByUsername fetches a user by username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `
	SELECT id, username, password_hash, is_staff, is_superuser, is_active, created_at
	FROM users
	WHERE username = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, username))
}

// CreateMessage inserts a message owned by ownerID.
func (s *Store) CreateMessage(ctx context.Context, ownerID int64, text string) (models.Message, error) {
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return models.Message{}, storage.ErrTextTooLong
	}
	const query = `
	INSERT INTO messages (user_id, message)
	VALUES ($1, $2)
	RETURNING id, user_id, message;
	`
	msg, err := scanMessage(s.pool.QueryRow(ctx, query, ownerID, text))
	if err != nil {
		switch pgErrCode(err) {
		case codeForeignKeyViolation:
			return models.Message{}, storage.ErrNotFound
		case codeStringTooLong:
			return models.Message{}, storage.ErrTextTooLong
		}
		return models.Message{}, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// GetMessage fetches a message by id.
func (s *Store) GetMessage(ctx context.Context, id int64) (models.Message, error) {
	const query = `
	SELECT id, user_id, message
	FROM messages
	WHERE id = $1;
	`
	return scanMessage(s.pool.QueryRow(ctx, query, id))
}

// UpdateMessage applies a partial update in a single statement; unset patch
// fields keep their stored values.
func (s *Store) UpdateMessage(ctx context.Context, id int64, patch models.MessagePatch) (models.Message, error) {
	if patch.Text != nil && utf8.RuneCountInString(*patch.Text) > models.MaxMessageLength {
		return models.Message{}, storage.ErrTextTooLong
	}
	const query = `
	UPDATE messages
	SET user_id = COALESCE($2, user_id),
	    message = COALESCE($3, message)
	WHERE id = $1
	RETURNING id, user_id, message;
	`
	msg, err := scanMessage(s.pool.QueryRow(ctx, query, id, patch.UserID, patch.Text))
	if err != nil {
		switch pgErrCode(err) {
		case codeForeignKeyViolation:
			return models.Message{}, storage.ErrNotFound
		case codeStringTooLong:
			return models.Message{}, storage.ErrTextTooLong
		}
		if errors.Is(err, storage.ErrNotFound) {
			return models.Message{}, storage.ErrNotFound
		}
		return models.Message{}, fmt.Errorf("update message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes a message by id.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	const query = `DELETE FROM messages WHERE id = $1;`
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListMessagesByOwner returns the owner's messages in ascending id order.
func (s *Store) ListMessagesByOwner(ctx context.Context, ownerID int64) ([]models.Message, error) {
	const query = `
	SELECT id, user_id, message
	FROM messages
	WHERE user_id = $1
	ORDER BY id;
	`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash,
		&user.IsStaff, &user.IsSuperuser, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func scanMessage(row pgx.Row) (models.Message, error) {
	var msg models.Message
	if err := row.Scan(&msg.ID, &msg.UserID, &msg.Text); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Message{}, storage.ErrNotFound
		}
		return models.Message{}, err
	}
	return msg, nil
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
