package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

// CreateTask сохраняет задачу заказа.
func (r *PostgresRepository) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, order_id, title, status, created_by_uid)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		t.ID, t.OrderID, t.Title, string(t.Status), t.CreatedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, wrapErr("insert task", err)
	}
	return t, nil
}

// ListTasks возвращает задачи заказа в порядке создания.
func (r *PostgresRepository) ListTasks(ctx context.Context, orderID string) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, title, status, created_by_uid, created_at, updated_at
		 FROM tasks
		 WHERE order_id = $1
		 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, wrapErr("select tasks", err)
	}
	defer rows.Close()

	var res []model.Task
	for rows.Next() {
		var (
			t      model.Task
			status string
		)
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Title, &status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, wrapErr("scan task", err)
		}
		t.Status = model.TaskStatus(status)
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// SetTaskStatus меняет статус задачи заказа.
func (r *PostgresRepository) SetTaskStatus(ctx context.Context, orderID, taskID string, status model.TaskStatus) (model.Task, error) {
	var (
		t       model.Task
		current string
	)
	err := r.pool.QueryRow(ctx,
		`UPDATE tasks SET status = $3, updated_at = clock_timestamp()
		 WHERE order_id = $1 AND id = $2
		 RETURNING id, order_id, title, status, created_by_uid, created_at, updated_at`,
		orderID, taskID, string(status),
	).Scan(&t.ID, &t.OrderID, &t.Title, &current, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, notFound("task", taskID)
		}
		return model.Task{}, wrapErr("update task status", err)
	}
	t.Status = model.TaskStatus(current)
	return t, nil
}

// CreateComment добавляет комментарий к заказу.
func (r *PostgresRepository) CreateComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	return insertComment(ctx, r.pool, "comments", "order_id", c)
}

// ListComments возвращает комментарии заказа от старых к новым.
func (r *PostgresRepository) ListComments(ctx context.Context, orderID string) ([]model.Comment, error) {
	return listComments(ctx, r.pool, "comments", "order_id", orderID)
}

// insertComment и listComments обслуживают обе ленты комментариев: заказов и лукбука.
// table и parentColumn берутся из констант пакета, не из пользовательского ввода.
func insertComment(ctx context.Context, q queryer, table, parentColumn string, c model.Comment) (model.Comment, error) {
	err := q.QueryRow(ctx,
		`INSERT INTO `+table+` (id, `+parentColumn+`, message, created_by_uid, created_by_name)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		c.ID, c.ParentID, c.Message, c.Author.UID, c.Author.Name,
	).Scan(&c.CreatedAt)
	if err != nil {
		return model.Comment{}, wrapErr("insert comment", err)
	}
	return c, nil
}

func listComments(ctx context.Context, q queryer, table, parentColumn, parentID string) ([]model.Comment, error) {
	rows, err := q.Query(ctx,
		`SELECT id, `+parentColumn+`, message, created_by_uid, created_by_name, created_at
		 FROM `+table+`
		 WHERE `+parentColumn+` = $1
		 ORDER BY created_at ASC`,
		parentID,
	)
	if err != nil {
		return nil, wrapErr("select comments", err)
	}
	defer rows.Close()

	var res []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Message, &c.Author.UID, &c.Author.Name, &c.CreatedAt); err != nil {
			return nil, wrapErr("scan comment", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}
