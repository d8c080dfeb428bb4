package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

const profileColumns = `user_id, email, role, COALESCE(customer_id, ''), name, created_at, updated_at`

func scanProfile(row pgx.Row) (model.Profile, error) {
	var (
		p    model.Profile
		role string
	)
	if err := row.Scan(&p.UserID, &p.Email, &role, &p.CustomerID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Profile{}, err
	}
	p.Role = model.Role(role)
	return p, nil
}

// GetProfile возвращает профиль пользователя.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, notFound("profile", userID)
		}
		return model.Profile{}, wrapErr("get profile", err)
	}
	return p, nil
}

// UpsertProfile создаёт профиль или обновляет роль и привязку к клиенту.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	var customerID *string
	if p.CustomerID != "" {
		customerID = &p.CustomerID
	}
	res, err := scanProfile(r.pool.QueryRow(ctx,
		`INSERT INTO profiles (user_id, email, role, customer_id, name)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   role = EXCLUDED.role,
		   customer_id = EXCLUDED.customer_id,
		   name = EXCLUDED.name,
		   updated_at = now()
		 RETURNING `+profileColumns,
		p.UserID, p.Email, string(p.Role), customerID, p.Name,
	))
	if err != nil {
		return model.Profile{}, wrapErr("upsert profile", err)
	}
	return res, nil
}

// ListStaffProfiles возвращает профили сотрудников и администраторов.
func (r *PostgresRepository) ListStaffProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE role IN ('admin', 'staff') ORDER BY name, email`)
	if err != nil {
		return nil, wrapErr("select staff profiles", err)
	}
	defer rows.Close()

	var res []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, wrapErr("scan profile", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}
