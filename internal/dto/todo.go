package dto

import "time"

// TodoRequest is the JSON body for POST /api and PUT /api/{id}.
// Description must be present but may be empty. Any id or timestamps in the
// body are ignored.
type TodoRequest struct {
	Title       *string `json:"title" binding:"required,min=1,max=255"`
	Description *string `json:"description" binding:"required"`
}

// Values returns title and description; call only after binding succeeded.
func (r TodoRequest) Values() (title, description string) {
	return *r.Title, *r.Description
}

type TodoResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
