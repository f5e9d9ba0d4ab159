package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	dom "Todo/internal/domain"
	"Todo/internal/repo"
)

// ErrNotFound is returned by Update and Finish when the id is unknown.
var ErrNotFound = errors.New("not found")

type TodoService struct {
	repo repo.TodoRepo
	now  func() time.Time
}

// NewTodoService creates a TodoService backed by r.
func NewTodoService(r repo.TodoRepo) *TodoService {
	return &TodoService{repo: r, now: defaultNow}
}

// WithClock replaces the time source. Used by tests.
func (s *TodoService) WithClock(now func() time.Time) *TodoService {
	s.now = now
	return s
}

// Stores keep microsecond precision at best.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *TodoService) List(ctx context.Context) ([]dom.Todo, error) {
	return s.repo.ListAll(ctx)
}

// Create stamps both timestamps with the same instant and inserts t as is.
// The id must already be set (see domain.NewTodo).
func (s *TodoService) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	if t.ID == "" {
		return dom.Todo{}, fmt.Errorf("create todo: empty id")
	}
	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.repo.Insert(ctx, t); err != nil {
		return dom.Todo{}, err
	}
	return t, nil
}

// Delete returns the number of removed todos (0 or 1).
func (s *TodoService) Delete(ctx context.Context, id string) (int64, error) {
	return s.repo.Remove(ctx, id)
}

// Update overwrites title and description of an existing todo and returns
// the stored state read back after the write.
func (s *TodoService) Update(ctx context.Context, id string, in dom.Todo) (dom.Todo, error) {
	if _, err := s.mustFind(ctx, id); err != nil {
		return dom.Todo{}, err
	}
	in.ID = id
	in.UpdatedAt = s.now()
	if err := s.repo.UpdateByID(ctx, in); err != nil {
		return dom.Todo{}, err
	}
	t, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if !ok {
		// deleted between write and read-back
		return dom.Todo{}, ErrNotFound
	}
	return t, nil
}

// Finish stamps finishedAt and updatedAt on the stored todo. Finishing an
// already finished todo re-stamps both.
func (s *TodoService) Finish(ctx context.Context, id string) (dom.Todo, error) {
	t, err := s.mustFind(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	now := s.now()
	t.FinishedAt = &now
	t.UpdatedAt = now
	if err := s.repo.UpdateByID(ctx, t); err != nil {
		return dom.Todo{}, err
	}
	return t, nil
}

// GetByID reports absence through ok rather than an error.
func (s *TodoService) GetByID(ctx context.Context, id string) (t dom.Todo, ok bool, err error) {
	return s.repo.FindByID(ctx, id)
}

// Search returns todos whose title or description contains q.
// Case handling is left to the store; every bundled store matches case-insensitively.
func (s *TodoService) Search(ctx context.Context, q string) ([]dom.Todo, error) {
	return s.repo.FindByKeyword(ctx, repo.ContainsPattern(q))
}

// Ping checks the underlying store.
func (s *TodoService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *TodoService) mustFind(ctx context.Context, id string) (dom.Todo, error) {
	t, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if !ok {
		return dom.Todo{}, ErrNotFound
	}
	return t, nil
}
