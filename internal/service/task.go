package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timi/timi-go/internal/model"
	"github.com/timi/timi-go/internal/repository"
)

// TaskStore persists tasks scoped to an owner email. Lookups, updates and deletes of a task
// that does not exist or belongs to someone else fail with repository.ErrTaskNotFound.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, userEmail, id string) (*model.Task, error)
	ListByUser(ctx context.Context, userEmail string) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userEmail, id string) error
}

// TaskService handles task business logic. Every operation is scoped to the owner's email.
type TaskService struct {
	repo   TaskStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo TaskStore, logger *slog.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Create adds a task for owner. The title is trimmed and must not be blank.
func (s *TaskService) Create(ctx context.Context, owner string, req model.CreateTaskRequest) (model.TaskResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.TaskResponse{}, ErrTitleRequired
	}

	now := s.now().UTC()
	task := model.Task{
		ID:          s.newID(),
		UserEmail:   owner,
		Title:       title,
		Description: cleanDescription(req.Description),
		Completed:   req.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, &task); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.TaskResponse{}, ErrUserNotFound
		}
		return model.TaskResponse{}, err
	}

	s.logger.Debug("task created", "task_id", task.ID, "email", owner)
	return taskToResponse(task), nil
}

// List returns owner's tasks, oldest first.
func (s *TaskService) List(ctx context.Context, owner string) ([]model.TaskResponse, error) {
	tasks, err := s.repo.ListByUser(ctx, owner)
	if err != nil {
		return nil, err
	}

	return tasksToResponse(tasks), nil
}

// Get returns a single task owned by owner.
func (s *TaskService) Get(ctx context.Context, owner, id string) (model.TaskResponse, error) {
	task, err := s.lookup(ctx, owner, id)
	if err != nil {
		return model.TaskResponse{}, err
	}

	return taskToResponse(*task), nil
}

// Update applies the fields present in req to the task. A null or blank description clears it.
func (s *TaskService) Update(ctx context.Context, owner, id string, req model.UpdateTaskRequest) (model.TaskResponse, error) {
	task, err := s.lookup(ctx, owner, id)
	if err != nil {
		return model.TaskResponse{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return model.TaskResponse{}, ErrTitleRequired
		}
		task.Title = title
	}
	if req.Description.Set {
		task.Description = cleanDescription(req.Description.Value)
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	task.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrTaskNotFound
		}
		return model.TaskResponse{}, err
	}

	return taskToResponse(*task), nil
}

// Delete removes a task owned by owner. Tasks of other users are reported as not found.
func (s *TaskService) Delete(ctx context.Context, owner, id string) error {
	taskID, ok := parseTaskID(id)
	if !ok {
		return ErrTaskNotFound
	}

	err := s.repo.Delete(ctx, owner, taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return err
	}

	s.logger.Debug("task deleted", "task_id", taskID, "email", owner)
	return nil
}

func (s *TaskService) lookup(ctx context.Context, owner, id string) (*model.Task, error) {
	taskID, ok := parseTaskID(id)
	if !ok {
		return nil, ErrTaskNotFound
	}

	task, err := s.repo.GetByID(ctx, owner, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// parseTaskID canonicalizes id. Anything that is not a UUID cannot name a task.
func parseTaskID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func cleanDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func taskToResponse(t model.Task) model.TaskResponse {
	return model.TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// tasksToResponse converts tasks to responses. The result is never nil so it encodes as [].
func tasksToResponse(tasks []model.Task) []model.TaskResponse {
	result := make([]model.TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = taskToResponse(t)
	}
	return result
}
