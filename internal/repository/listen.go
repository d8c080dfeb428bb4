package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ChangeChannel задаёт канал NOTIFY, в который триггеры пишут имя изменённой таблицы.
const ChangeChannel = "orbit_changes"

// ListenChanges занимает соединение пула и вызывает fn с именем таблицы на каждое
// уведомление из ChangeChannel. Возвращает ошибку при потере соединения или отмене ctx.
func (r *PostgresRepository) ListenChanges(ctx context.Context, fn func(table string)) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapErr("acquire listen conn", err)
	}
	// Соединение с активным LISTEN не возвращается в пул.
	raw := conn.Hijack()
	defer raw.Close(context.Background())

	if _, err := raw.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return wrapErr("listen", err)
	}

	for {
		n, err := raw.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		fn(n.Payload)
	}
}
