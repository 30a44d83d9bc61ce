package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/http/middlewares"
)

type TaskStore interface {
	Create(ctx context.Context, req task.CreateRequest) (task.Task, error)
	List(ctx context.Context, filter task.ListFilter) ([]task.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]task.Task, error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	Update(ctx context.Context, id string, req task.UpdateRequest) (task.Task, error)
	Complete(ctx context.Context, id string, completedAt time.Time) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

// AssigneeChecker validates assigned_to targets on every write that
// sets the field; there is no FK-style guarantee at this layer.
type AssigneeChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type TasksHandler struct {
	repo  TaskStore
	users AssigneeChecker
}

func NewTasksHandler(repo TaskStore, users AssigneeChecker) *TasksHandler {
	return &TasksHandler{repo: repo, users: users}
}

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	var req task.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if !h.assigneeExists(ctx, cctx, req.AssignedTo) {
		return
	}

	t, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	skip := intQuery(ctx, "skip", 0)
	limit := intQuery(ctx, "limit", defaultListLimit)

	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	tasks, err := h.repo.List(cctx, task.ListFilter{Skip: skip, Limit: limit})

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": tasks,
		"count": len(tasks),
	})
}

func (h *TasksHandler) ListMyTasks(ctx *gin.Context) {
	actor, ok := middlewares.CurrentUserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	tasks, err := h.repo.ListByAssignee(cctx, actor.ID)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": tasks,
		"count": len(tasks),
	})
}

func (h *TasksHandler) GetTask(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not fetch task")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

// UpdateTask deliberately applies no ownership check: any authenticated
// user may edit any task, matching delete. Only complete is
// assignee-gated.
func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	var req task.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// re-validate the assignee whenever the field changes hands
	if req.AssignedTo != nil {
		if !h.assigneeExists(ctx, cctx, *req.AssignedTo) {
			return
		}
	}

	t, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not update task")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TasksHandler) CompleteTask(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	actor, ok := middlewares.CurrentUserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req task.CompleteRequest

	// ContentLength is -1 for chunked requests, which still carry a body;
	// only a known-zero length means there is nothing to bind. EOF from
	// the decoder covers a chunked request that turns out to be empty.
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			RespondBadRequest(ctx, "invalid_request", "Invalid request body", parseBindError(err))
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not complete task")
		return
	}

	// ownership: only the assignee may complete
	if t.AssignedTo != actor.ID {
		RespondForbidden(ctx, "forbidden", "You can only complete tasks assigned to you")
		return
	}

	completedAt := time.Now().UTC()

	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	t, err = h.repo.Complete(cctx, id, completedAt)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not complete task")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not delete task")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// helpers

func (h *TasksHandler) assigneeExists(ctx *gin.Context, cctx context.Context, userID string) bool {
	exists, err := h.users.Exists(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not verify assignee")
		return false
	}

	if !exists {
		RespondBadRequest(ctx, "assignee_not_found", "Assigned user not found", nil)
		return false
	}

	return true
}

func taskIDParam(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "invalid_id", "task id must be a valid UUID", nil)
		return "", false
	}

	return id, true
}

func intQuery(ctx *gin.Context, name string, fallback int) int {
	v := ctx.Query(name)

	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)

	if err != nil {
		return fallback
	}

	return n
}
