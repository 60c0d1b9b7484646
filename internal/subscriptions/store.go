package subscriptions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

// User is a dashboard account. There is no authentication; a user is just a
// named subscription set.
type User struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// Store persists users and their signal subscriptions in SQLite. It stores
// dashboard preferences only; signal execution stays global and cache-backed.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open subscriptions db: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
    username   TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    username   TEXT NOT NULL,
    signal_id  TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (username, signal_id),
    FOREIGN KEY (username) REFERENCES users(username) ON DELETE CASCADE
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// ValidateUsername enforces the account naming rules shared by the HTTP layer.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperrors.NewValidationError("username", "username is required", nil)
	}
	if len(username) > 64 {
		return apperrors.NewValidationError("username", "username must be <= 64 characters", nil)
	}
	if strings.ContainsFunc(username, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
		return apperrors.NewValidationError("username", "username cannot contain spaces", nil)
	}
	return nil
}

// CreateUser inserts a user, reporting whether a row was actually created.
// Creating an existing user is a no-op.
func (s *Store) CreateUser(ctx context.Context, username string) (bool, error) {
	if err := ValidateUsername(username); err != nil {
		return false, err
	}

	query, args, err := sq.Insert("users").
		Options("OR IGNORE").
		Columns("username", "created_at").
		Values(strings.TrimSpace(username), nowISO()).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListUsers returns all users ordered case-insensitively by username.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	query, args, err := sq.Select("username", "created_at").
		From("users").
		OrderBy("username COLLATE NOCASE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return users, nil
}

// UserExists reports whether username has an account.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	query, args, err := sq.Select("1").
		From("users").
		Where(sq.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return true, nil
}

// ListSubscriptions returns the signal ids username subscribes to, ordered
// case-insensitively.
func (s *Store) ListSubscriptions(ctx context.Context, username string) ([]string, error) {
	query, args, err := sq.Select("signal_id").
		From("subscriptions").
		Where(sq.Eq{"username": username}).
		OrderBy("signal_id COLLATE NOCASE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan signal id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return ids, nil
}

// Subscribe adds signalID to username's set, reporting whether the
// subscription is new. Subscribing twice is a no-op.
func (s *Store) Subscribe(ctx context.Context, username, signalID string) (bool, error) {
	query, args, err := sq.Insert("subscriptions").
		Options("OR IGNORE").
		Columns("username", "signal_id", "created_at").
		Values(username, signalID, nowISO()).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// Unsubscribe removes signalID from username's set, reporting whether a row
// was removed.
func (s *Store) Unsubscribe(ctx context.Context, username, signalID string) (bool, error) {
	query, args, err := sq.Delete("subscriptions").
		Where(sq.Eq{"username": username, "signal_id": signalID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
