package model

import "time"

// Task represents a to-do item owned by exactly one user.
type Task struct {
	ID          string
	UserEmail   string
	Title       string
	Description *string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Completed   bool    `json:"completed"`
}

// UpdateTaskRequest represents a partial task update. Absent fields are left unchanged;
// a null description clears it.
type UpdateTaskRequest struct {
	Title       *string        `json:"title" validate:"omitempty,max=255"`
	Description OptionalString `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool          `json:"completed"`
}

// TaskResponse is the JSON view of a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
