package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/timi/timi-go/internal/model"
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A taken email fails with ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := r.db.rebind(`INSERT INTO users (email, password_hash, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		user.Email, user.PasswordHash, nullString(user.Name), toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := r.db.rebind(`SELECT email, password_hash, name, created_at, updated_at FROM users WHERE email = ?`)

	var (
		user                 model.User
		name                 sql.NullString
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.Email, &user.PasswordHash, &name, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	user.Name = stringPtr(name)
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return &user, nil
}

// Update stores the user's password hash, name and updated_at.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := r.db.rebind(`UPDATE users SET password_hash = ?, name = ?, updated_at = ? WHERE email = ?`)

	result, err := r.db.ExecContext(ctx, query,
		user.PasswordHash, nullString(user.Name), toMillis(user.UpdatedAt), user.Email,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return expectRow(result, ErrUserNotFound)
}

// Delete removes a user together with every task the user owns.
func (r *UserRepository) Delete(ctx context.Context, email string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM tasks WHERE user_email = ?`), email); err != nil {
		return fmt.Errorf("delete user tasks: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM users WHERE email = ?`), email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := expectRow(result, ErrUserNotFound); err != nil {
		return err
	}

	return tx.Commit()
}

// expectRow returns notFound when result touched no rows.
func expectRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
