package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/timi/timi-go/internal/model"
)

const taskColumns = `id, user_email, title, description, completed, created_at, updated_at`

// TaskRepository handles task persistence operations. Every query is scoped by owner.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task. An owner that does not exist fails with ErrUserNotFound.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := r.db.rebind(`INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.UserEmail,
		task.Title,
		nullString(task.Description),
		task.Completed,
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID if it belongs to userEmail.
func (r *TaskRepository) GetByID(ctx context.Context, userEmail, id string) (*model.Task, error) {
	query := r.db.rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_email = ?`)

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userEmail))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("select task: %w", err)
	}
	return task, nil
}

// ListByUser retrieves all tasks owned by userEmail, oldest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userEmail string) ([]model.Task, error) {
	query := r.db.rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE user_email = ? ORDER BY created_at ASC, id ASC`)

	rows, err := r.db.QueryContext(ctx, query, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// Update overwrites the mutable fields of a task owned by task.UserEmail.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	query := r.db.rebind(`UPDATE tasks SET title = ?, description = ?, completed = ?, updated_at = ?
		WHERE id = ? AND user_email = ?`)

	result, err := r.db.ExecContext(ctx, query,
		task.Title,
		nullString(task.Description),
		task.Completed,
		toMillis(task.UpdatedAt),
		task.ID,
		task.UserEmail,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return expectRow(result, ErrTaskNotFound)
}

// Delete removes a task owned by userEmail.
func (r *TaskRepository) Delete(ctx context.Context, userEmail, id string) error {
	query := r.db.rebind(`DELETE FROM tasks WHERE id = ? AND user_email = ?`)

	result, err := r.db.ExecContext(ctx, query, id, userEmail)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	return expectRow(result, ErrTaskNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task                 model.Task
		description          sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&task.ID, &task.UserEmail, &task.Title, &description,
		&task.Completed, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	task.Description = stringPtr(description)
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return &task, nil
}
