package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("task not found")

type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Cadence       string     `json:"cadence"` // e.g. "daily", "weekly"; stored only, never evaluated
	LastCompleted *time.Time `json:"lastCompleted"`
	AssignedTo    string     `json:"assignedTo"`
	Interval      *int       `json:"-"` // persisted but not part of the API surface
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Skip  int
	Limit int
}

type CreateRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Cadence     string `json:"cadence" binding:"required,max=100"`
	AssignedTo  string `json:"assignedTo" binding:"required,uuid"`
}

// UpdateRequest is a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Title         *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description   *string    `json:"description" binding:"omitempty,max=1000"`
	Cadence       *string    `json:"cadence" binding:"omitempty,max=100"`
	LastCompleted *time.Time `json:"lastCompleted"`
	AssignedTo    *string    `json:"assignedTo" binding:"omitempty,uuid"`
}

type CompleteRequest struct {
	CompletedAt *time.Time `json:"completedAt"`
}

// NewFromCreateRequest builds a Task from the incoming DTO.
func NewFromCreateRequest(req CreateRequest) Task {
	now := time.Now().UTC()

	return Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Cadence:     req.Cadence,
		AssignedTo:  req.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
