package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskhub/taskhub/internal/domain/task"
)

type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]task.Task
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]task.Task),
	}
}

func (r *TasksRepo) Create(ctx context.Context, req task.CreateRequest) (task.Task, error) {
	t := task.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	r.mu.RLock()
	all := r.sorted()
	r.mu.RUnlock()

	if filter.Skip >= len(all) {
		return []task.Task{}, nil
	}

	all = all[filter.Skip:]

	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}

	return all, nil
}

func (r *TasksRepo) ListByAssignee(ctx context.Context, userID string) ([]task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]task.Task, 0)

	for _, t := range r.sorted() {
		if t.AssignedTo == userID {
			out = append(out, t)
		}
	}

	return out, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]

	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	return t, nil
}

func (r *TasksRepo) Update(ctx context.Context, id string, req task.UpdateRequest) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]

	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Cadence != nil {
		t.Cadence = *req.Cadence
	}
	if req.LastCompleted != nil {
		t.LastCompleted = req.LastCompleted
	}
	if req.AssignedTo != nil {
		t.AssignedTo = *req.AssignedTo
	}

	t.UpdatedAt = time.Now().UTC()
	r.items[id] = t

	return t, nil
}

func (r *TasksRepo) Complete(ctx context.Context, id string, completedAt time.Time) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]

	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	t.LastCompleted = &completedAt
	t.UpdatedAt = time.Now().UTC()
	r.items[id] = t

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return task.ErrNotFound
	}

	delete(r.items, id)

	return nil
}

// sorted returns tasks in stable created_at, id order to match the
// postgres repo's pagination ordering. Callers hold the lock.
func (r *TasksRepo) sorted() []task.Task {
	out := make([]task.Task, 0, len(r.items))

	for _, t := range r.items {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}
