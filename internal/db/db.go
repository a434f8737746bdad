package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrUserNotFound is returned when no profile matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a clerk ID or email is already taken.
	ErrDuplicateUser = errors.New("user already exists")
)

// DB wraps the Postgres connection pool used for learner profiles.
type DB struct {
	*sql.DB
}

const usersSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY,
		clerk_id    TEXT NOT NULL UNIQUE,
		first_name  TEXT NOT NULL,
		last_name   TEXT NOT NULL,
		email       TEXT NOT NULL UNIQUE,
		image_url   TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// New opens the database, verifies the connection and makes sure the users
// table exists.
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, usersSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure users table: %w", err)
	}

	return &DB{DB: conn}, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
