package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

const orderColumns = `id, title, summary, customer_id, total_value, status, viewed,
	created_by_uid, created_by_name, created_at, updated_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.ID, &o.Title, &o.Summary, &o.CustomerID, &o.TotalValue, &status, &o.Viewed,
		&o.CreatedBy.UID, &o.CreatedBy.Name, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	return o, nil
}

// CreateOrder сохраняет заказ, его позиции, запись журнала о создании и уведомление
// одной транзакцией.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order, created model.OrderUpdate, n model.Notification) (model.Order, error) {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO orders (id, title, summary, customer_id, total_value, status, viewed, created_by_uid, created_by_name)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING created_at, updated_at`,
			o.ID, o.Title, o.Summary, o.CustomerID, o.TotalValue, string(o.Status), o.Viewed,
			o.CreatedBy.UID, o.CreatedBy.Name,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return wrapErr("insert order", err)
		}

		batch := &pgx.Batch{}
		for i, item := range o.LineItems {
			batch.Queue(
				`INSERT INTO order_items (order_id, position, product_id, quantity, unit_price)
				 VALUES ($1, $2, $3, $4, $5)`,
				o.ID, i, item.ProductID, item.Quantity, item.UnitPrice,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return wrapErr("insert order items", err)
		}

		if _, err := insertOrderUpdate(ctx, tx, created); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO notifications (id, type, order_id, title, customer_id, message, read)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, string(n.Type), n.OrderID, n.Title, n.CustomerID, n.Message, n.Read,
		)
		if err != nil {
			return wrapErr("insert notification", err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func insertOrderUpdate(ctx context.Context, q queryer, u model.OrderUpdate) (model.OrderUpdate, error) {
	err := q.QueryRow(ctx,
		`INSERT INTO order_updates (id, order_id, kind, message, created_by_uid, created_by_name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		u.ID, u.OrderID, string(u.Kind), u.Message, u.Author.UID, u.Author.Name,
	).Scan(&u.CreatedAt)
	if err != nil {
		return model.OrderUpdate{}, wrapErr("insert order update", err)
	}
	return u, nil
}

// GetOrder возвращает заказ вместе с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, notFound("order", id)
		}
		return model.Order{}, wrapErr("get order", err)
	}

	items, err := r.lineItems(ctx, []string{id})
	if err != nil {
		return model.Order{}, err
	}
	o.LineItems = items[id]
	return o, nil
}

// ListOrders возвращает заказы от новых к старым; пустой customerID означает все заказы.
func (r *PostgresRepository) ListOrders(ctx context.Context, customerID string) ([]model.Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if customerID == "" {
		rows, err = r.pool.Query(ctx,
			`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
			customerID)
	}
	if err != nil {
		return nil, wrapErr("select orders", err)
	}
	defer rows.Close()

	var (
		orders []model.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrapErr("scan order", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.lineItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].LineItems = items[orders[i].ID]
	}
	return orders, nil
}

func (r *PostgresRepository) lineItems(ctx context.Context, orderIDs []string) (map[string][]model.LineItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, quantity, unit_price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		orderIDs,
	)
	if err != nil {
		return nil, wrapErr("select order items", err)
	}
	defer rows.Close()

	res := make(map[string][]model.LineItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    model.LineItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, wrapErr("scan order item", err)
		}
		res[orderID] = append(res[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// SetOrderStatus меняет статус заказа и добавляет запись журнала в одной транзакции.
// Возвращает false без записи, если заказ уже находится в этом статусе.
func (r *PostgresRepository) SetOrderStatus(ctx context.Context, id string, status model.OrderStatus, update model.OrderUpdate) (bool, error) {
	changed := false
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("order", id)
			}
			return wrapErr("lock order", err)
		}
		if model.OrderStatus(current) == status {
			return nil
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders SET status = $2, updated_at = clock_timestamp() WHERE id = $1`,
			id, string(status))
		if err != nil {
			return wrapErr("update order status", err)
		}

		if _, err := insertOrderUpdate(ctx, tx, update); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// MarkOrderViewed выставляет флаг просмотра; повторный вызов ничего не меняет.
func (r *PostgresRepository) MarkOrderViewed(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET viewed = TRUE WHERE id = $1 AND NOT viewed`, id)
	if err != nil {
		return wrapErr("mark order viewed", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return wrapErr("check order", err)
	}
	if !exists {
		return notFound("order", id)
	}
	return nil
}

// ListOrderUpdates возвращает журнал заказа от новых записей к старым.
func (r *PostgresRepository) ListOrderUpdates(ctx context.Context, orderID string) ([]model.OrderUpdate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, kind, message, created_by_uid, created_by_name, created_at
		 FROM order_updates
		 WHERE order_id = $1
		 ORDER BY created_at DESC`,
		orderID,
	)
	if err != nil {
		return nil, wrapErr("select order updates", err)
	}
	defer rows.Close()

	var res []model.OrderUpdate
	for rows.Next() {
		var (
			u    model.OrderUpdate
			kind string
		)
		if err := rows.Scan(&u.ID, &u.OrderID, &kind, &u.Message, &u.Author.UID, &u.Author.Name, &u.CreatedAt); err != nil {
			return nil, wrapErr("scan order update", err)
		}
		u.Kind = model.UpdateKind(kind)
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// CountUnviewedOrders возвращает число заказов, ещё не открытых сотрудниками.
func (r *PostgresRepository) CountUnviewedOrders(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE NOT viewed`).Scan(&n); err != nil {
		return 0, wrapErr("count unviewed orders", err)
	}
	return n, nil
}
