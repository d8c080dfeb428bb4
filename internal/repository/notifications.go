package repository

import (
	"context"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

// ListNotifications возвращает все уведомления от новых к старым.
func (r *PostgresRepository) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, order_id, title, customer_id, message, read, created_at
		 FROM notifications
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, wrapErr("select notifications", err)
	}
	defer rows.Close()

	var res []model.Notification
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &typ, &n.OrderID, &n.Title, &n.CustomerID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, wrapErr("scan notification", err)
		}
		n.Type = model.NotificationType(typ)
		res = append(res, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// MarkNotificationRead отмечает одно уведомление прочитанным.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return wrapErr("mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("notification", id)
	}
	return nil
}

// MarkAllNotificationsRead отмечает прочитанными уведомления, непрочитанные на момент вызова.
// Одно выражение UPDATE видит только строки своего снимка, поэтому уведомления,
// созданные параллельно, не затрагиваются.
func (r *PostgresRepository) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE NOT read`)
	if err != nil {
		return 0, wrapErr("mark all notifications read", err)
	}
	return tag.RowsAffected(), nil
}
