package domain

import (
	"time"

	"github.com/google/uuid"
)

// Todo is the domain entity for a single to-do item.
// It does not depend on Gin or on any particular store.
type Todo struct {
	ID          string
	Title       string
	Description string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// NewTodo returns a todo with a freshly generated random ID.
// Timestamps are left for the service to stamp.
func NewTodo(title, description string) Todo {
	return Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
	}
}

// Finished reports whether the todo has been marked finished.
func (t Todo) Finished() bool { return t.FinishedAt != nil }
