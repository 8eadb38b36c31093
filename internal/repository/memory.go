package repository

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/timi/timi-go/internal/model"
)

// MemoryStore keeps users and tasks in process memory. It backs DATABASE_DRIVER=memory and
// tests; all data is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]model.User
	tasks map[string]model.Task
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]model.User),
		tasks: make(map[string]model.Task),
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{s: s}
}

// Tasks returns the task repository view of the store.
func (s *MemoryStore) Tasks() *MemoryTaskRepository {
	return &MemoryTaskRepository{s: s}
}

// MemoryUserRepository implements user persistence over a MemoryStore.
type MemoryUserRepository struct {
	s *MemoryStore
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Email]; exists {
		return ErrDuplicateEmail
	}
	r.s.users[user.Email] = cloneUser(*user)
	return nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := cloneUser(user)
	return &u, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.Email]
	if !ok {
		return ErrUserNotFound
	}
	existing.PasswordHash = user.PasswordHash
	existing.Name = cloneString(user.Name)
	existing.UpdatedAt = user.UpdatedAt
	r.s.users[user.Email] = existing
	return nil
}

// Delete removes the user and cascades to the user's tasks.
func (r *MemoryUserRepository) Delete(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[email]; !ok {
		return ErrUserNotFound
	}
	delete(r.s.users, email)
	for id, task := range r.s.tasks {
		if task.UserEmail == email {
			delete(r.s.tasks, id)
		}
	}
	return nil
}

// MemoryTaskRepository implements task persistence over a MemoryStore.
type MemoryTaskRepository struct {
	s *MemoryStore
}

func (r *MemoryTaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[task.UserEmail]; !ok {
		return ErrUserNotFound
	}
	r.s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (r *MemoryTaskRepository) GetByID(ctx context.Context, userEmail, id string) (*model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	task, ok := r.s.tasks[id]
	if !ok || task.UserEmail != userEmail {
		return nil, ErrTaskNotFound
	}
	t := cloneTask(task)
	return &t, nil
}

func (r *MemoryTaskRepository) ListByUser(ctx context.Context, userEmail string) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tasks []model.Task
	for _, task := range r.s.tasks {
		if task.UserEmail == userEmail {
			tasks = append(tasks, cloneTask(task))
		}
	}
	slices.SortFunc(tasks, func(a, b model.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, task *model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[task.ID]
	if !ok || existing.UserEmail != task.UserEmail {
		return ErrTaskNotFound
	}
	existing.Title = task.Title
	existing.Description = cloneString(task.Description)
	existing.Completed = task.Completed
	existing.UpdatedAt = task.UpdatedAt
	r.s.tasks[task.ID] = existing
	return nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, userEmail, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task, ok := r.s.tasks[id]
	if !ok || task.UserEmail != userEmail {
		return ErrTaskNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneUser(u model.User) model.User {
	u.Name = cloneString(u.Name)
	return u
}

func cloneTask(t model.Task) model.Task {
	t.Description = cloneString(t.Description)
	return t
}
