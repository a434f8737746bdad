package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/signspeak/internal/models"
)

// CreateUser inserts a new profile. user.ID must be set by the caller.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, clerk_id, first_name, last_name, email, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := db.QueryRowContext(
		ctx, query,
		user.ID, user.ClerkID, user.FirstName, user.LastName, user.Email, user.ImageURL,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByClerkID retrieves a profile by its identity-provider ID.
func (db *DB) GetUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	query := `
		SELECT id, clerk_id, first_name, last_name, email, image_url, created_at, updated_at
		FROM users
		WHERE clerk_id = $1
	`

	user := &models.User{}
	err := db.QueryRowContext(ctx, query, clerkID).Scan(
		&user.ID, &user.ClerkID, &user.FirstName, &user.LastName,
		&user.Email, &user.ImageURL, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateUser writes the mutable profile fields of an existing user.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $1,
		    last_name = $2,
		    email = $3,
		    image_url = $4,
		    updated_at = NOW()
		WHERE clerk_id = $5
		RETURNING updated_at
	`

	err := db.QueryRowContext(
		ctx, query,
		user.FirstName, user.LastName, user.Email, user.ImageURL, user.ClerkID,
	).Scan(&user.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}
