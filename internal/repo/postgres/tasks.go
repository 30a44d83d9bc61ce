package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/observability"
)

const taskColumns = `id, title, description, cadence, last_completed, assigned_to, created_at, updated_at`

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *TasksRepo) Create(ctx context.Context, req task.CreateRequest) (task.Task, error) {
	t := task.NewFromCreateRequest(req)

	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks (id, title, description, cadence, last_completed, assigned_to, "interval", created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.ID, t.Title, t.Description, t.Cadence, t.LastCompleted, t.AssignedTo, t.Interval, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	var out []task.Task

	err := r.observe("tasks.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+taskColumns+`
			 FROM tasks
			 ORDER BY created_at ASC, id ASC
			 LIMIT $1 OFFSET $2`,
			filter.Limit, filter.Skip,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out, err = scanTasks(rows, filter.Limit)
		return err
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *TasksRepo) ListByAssignee(ctx context.Context, userID string) ([]task.Task, error) {
	var out []task.Task

	err := r.observe("tasks.list_by_assignee", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+taskColumns+`
			 FROM tasks
			 WHERE assigned_to = $1
			 ORDER BY created_at ASC, id ASC`,
			userID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out, err = scanTasks(rows, 0)
		return err
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
		).Scan(
			&t.ID, &t.Title, &t.Description, &t.Cadence, &t.LastCompleted, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

// Update applies a partial update; nil request fields keep the stored
// value. Single-statement so concurrent writers are last-writer-wins at
// row granularity, no application-level locking.
func (r *TasksRepo) Update(ctx context.Context, id string, req task.UpdateRequest) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.update", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE tasks
				SET title          = COALESCE($2, title),
						description    = COALESCE($3, description),
						cadence        = COALESCE($4, cadence),
						last_completed = COALESCE($5, last_completed),
						assigned_to    = COALESCE($6, assigned_to),
						updated_at     = NOW()
			WHERE id = $1
			RETURNING `+taskColumns,
			id,
			req.Title,
			req.Description,
			req.Cadence,
			req.LastCompleted,
			req.AssignedTo,
		).Scan(
			&t.ID, &t.Title, &t.Description, &t.Cadence, &t.LastCompleted, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Complete(ctx context.Context, id string, completedAt time.Time) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.complete", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE tasks
				SET last_completed = $2,
						updated_at     = NOW()
			WHERE id = $1
			RETURNING `+taskColumns,
			id, completedAt,
		).Scan(
			&t.ID, &t.Title, &t.Description, &t.Cadence, &t.LastCompleted, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	return r.observe("tasks.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// if no rows were deleted the id did not exist
		if tag.RowsAffected() == 0 {
			return task.ErrNotFound
		}

		return nil
	})
}

func scanTasks(rows pgx.Rows, sizeHint int) ([]task.Task, error) {
	out := make([]task.Task, 0, sizeHint)

	for rows.Next() {
		var t task.Task

		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Cadence, &t.LastCompleted, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt)

		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
