package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

const productColumns = `id, name, sku, price, category, image_url, description, specs, active, created_at, updated_at`

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Category, &p.ImageURL, &p.Description,
		&p.Specs, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Product{}, err
	}
	if p.Specs == nil {
		p.Specs = map[string]string{}
	}
	return p, nil
}

// ListProducts возвращает товары каталога, отсортированные по названию.
// Пустой query означает отсутствие фильтра; activeOnly скрывает снятые с продажи позиции.
func (r *PostgresRepository) ListProducts(ctx context.Context, query string, activeOnly bool) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR sku ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%')
		   AND (NOT $2 OR active)
		 ORDER BY name`,
		query, activeOnly,
	)
	if err != nil {
		return nil, wrapErr("select products", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("scan product", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, notFound("product", id)
		}
		return model.Product{}, wrapErr("get product", err)
	}
	return p, nil
}

// GetProductsByIDs возвращает найденные товары по идентификаторам; отсутствующие просто не попадают в результат.
func (r *PostgresRepository) GetProductsByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapErr("select products by ids", err)
	}
	defer rows.Close()

	res := make(map[string]model.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("scan product", err)
		}
		res[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// CreateProduct сохраняет новый товар.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if p.Specs == nil {
		p.Specs = map[string]string{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (id, name, sku, price, category, image_url, description, specs, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		p.ID, p.Name, p.SKU, p.Price, p.Category, p.ImageURL, p.Description, p.Specs, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Product{}, wrapErr("insert product", err)
	}
	return p, nil
}

// UpdateProduct частично обновляет товар: переданные поля перезаписываются, остальные сохраняются.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products SET
		   name = COALESCE($2::text, name),
		   sku = COALESCE($3::text, sku),
		   price = COALESCE($4::numeric, price),
		   category = COALESCE($5::text, category),
		   image_url = COALESCE($6::text, image_url),
		   description = COALESCE($7::text, description),
		   specs = COALESCE($8::jsonb, specs),
		   active = COALESCE($9::boolean, active),
		   updated_at = clock_timestamp()
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, patch.Name, patch.SKU, patch.Price, patch.Category, patch.ImageURL, patch.Description,
		patch.Specs, patch.Active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, notFound("product", id)
		}
		return model.Product{}, wrapErr("update product", err)
	}
	return p, nil
}

// DeleteProduct удаляет товар. Товар, на который ссылаются заказы, удалить нельзя:
// его следует деактивировать.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("product %q is referenced by orders: %w", id, model.ErrValidation)
		}
		return wrapErr("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("product", id)
	}
	return nil
}

const customerColumns = `id, name, contact_email, contact_phone, created_at, updated_at`

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.ContactEmail, &c.ContactPhone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCustomers возвращает клиентов по названию; query ищет по имени и e-mail.
func (r *PostgresRepository) ListCustomers(ctx context.Context, query string) ([]model.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customerColumns+`
		 FROM customers
		 WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR contact_email ILIKE '%' || $1 || '%'
		 ORDER BY name`,
		query,
	)
	if err != nil {
		return nil, wrapErr("select customers", err)
	}
	defer rows.Close()

	var res []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, wrapErr("scan customer", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// GetCustomer возвращает клиента по идентификатору.
func (r *PostgresRepository) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Customer{}, notFound("customer", id)
		}
		return model.Customer{}, wrapErr("get customer", err)
	}
	return c, nil
}

// CreateCustomer сохраняет нового клиента.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (id, name, contact_email, contact_phone)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		c.ID, c.Name, c.ContactEmail, c.ContactPhone,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Customer{}, wrapErr("insert customer", err)
	}
	return c, nil
}

// UpdateCustomer частично обновляет клиента.
func (r *PostgresRepository) UpdateCustomer(ctx context.Context, id string, patch model.CustomerPatch) (model.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx,
		`UPDATE customers SET
		   name = COALESCE($2::text, name),
		   contact_email = COALESCE($3::text, contact_email),
		   contact_phone = COALESCE($4::text, contact_phone),
		   updated_at = clock_timestamp()
		 WHERE id = $1
		 RETURNING `+customerColumns,
		id, patch.Name, patch.ContactEmail, patch.ContactPhone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Customer{}, notFound("customer", id)
		}
		return model.Customer{}, wrapErr("update customer", err)
	}
	return c, nil
}

// DeleteCustomer удаляет клиента. Заказы клиента сохраняются.
func (r *PostgresRepository) DeleteCustomer(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete customer", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("customer", id)
	}
	return nil
}
