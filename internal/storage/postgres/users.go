package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/models"
	"github.com/Vasu1712/algonomic-backend/internal/storage"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (LOWER(email));
`

// UserStore implements the user storage interface using PostgreSQL.
type UserStore struct {
	db *sql.DB
}

// NewUserStore opens a connection pool for dataSourceName and verifies it.
func NewUserStore(ctx context.Context, dataSourceName string, log logrus.FieldLogger) (*UserStore, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)                 // Max number of open connections to the database
	db.SetMaxIdleConns(10)                 // Max number of idle connections in the pool
	db.SetConnMaxLifetime(5 * time.Minute) // Max lifetime for a connection

	log.Info("Successfully connected to PostgreSQL database for users.")

	return NewUserStoreFromDB(db), nil
}

// NewUserStoreFromDB wraps an existing pool.
func NewUserStoreFromDB(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// EnsureSchema creates the users table if it does not exist.
func (s *UserStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create users schema: %w", err)
	}
	return nil
}

// CreateUser inserts u. A taken email yields storage.ErrDuplicate.
func (s *UserStore) CreateUser(ctx context.Context, u models.User) error {
	query := `INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user registered under email, case-insensitively.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE LOWER(email) = LOWER($1)`
	return s.scanOne(s.db.QueryRowContext(ctx, query, email))
}

// GetUser returns the user with the given id.
func (s *UserStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, userID))
}

func (s *UserStore) scanOne(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storage.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// Close closes the database connection.
func (s *UserStore) Close() error {
	return s.db.Close()
}
