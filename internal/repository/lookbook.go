package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

const postColumns = `id, type, title, subtitle, content, image_url, gallery, featured, created_by_uid, created_at, updated_at`

func scanPost(row pgx.Row) (model.LookbookPost, error) {
	var (
		p   model.LookbookPost
		typ string
	)
	err := row.Scan(&p.ID, &typ, &p.Title, &p.Subtitle, &p.Content, &p.ImageURL, &p.Gallery,
		&p.Featured, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.LookbookPost{}, err
	}
	p.Type = model.PostType(typ)
	if p.Gallery == nil {
		p.Gallery = []string{}
	}
	return p, nil
}

// ListLookbookPosts возвращает публикации от новых к старым.
func (r *PostgresRepository) ListLookbookPosts(ctx context.Context) ([]model.LookbookPost, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM lookbook_posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapErr("select lookbook posts", err)
	}
	defer rows.Close()

	var res []model.LookbookPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, wrapErr("scan lookbook post", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows error", err)
	}
	return res, nil
}

// GetLookbookPost возвращает публикацию по идентификатору.
func (r *PostgresRepository) GetLookbookPost(ctx context.Context, id string) (model.LookbookPost, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM lookbook_posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LookbookPost{}, notFound("lookbook post", id)
		}
		return model.LookbookPost{}, wrapErr("get lookbook post", err)
	}
	return p, nil
}

// CreateLookbookPost сохраняет публикацию.
func (r *PostgresRepository) CreateLookbookPost(ctx context.Context, p model.LookbookPost) (model.LookbookPost, error) {
	if p.Gallery == nil {
		p.Gallery = []string{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO lookbook_posts (id, type, title, subtitle, content, image_url, gallery, featured, created_by_uid)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		p.ID, string(p.Type), p.Title, p.Subtitle, p.Content, p.ImageURL, p.Gallery, p.Featured, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.LookbookPost{}, wrapErr("insert lookbook post", err)
	}
	return p, nil
}

// UpdateLookbookPost частично обновляет публикацию.
func (r *PostgresRepository) UpdateLookbookPost(ctx context.Context, id string, patch model.LookbookPatch) (model.LookbookPost, error) {
	var typ *string
	if patch.Type != nil {
		s := string(*patch.Type)
		typ = &s
	}
	p, err := scanPost(r.pool.QueryRow(ctx,
		`UPDATE lookbook_posts SET
		   type = COALESCE($2::text, type),
		   title = COALESCE($3::text, title),
		   subtitle = COALESCE($4::text, subtitle),
		   content = COALESCE($5::text, content),
		   image_url = COALESCE($6::text, image_url),
		   gallery = COALESCE($7::text[], gallery),
		   featured = COALESCE($8::boolean, featured),
		   updated_at = clock_timestamp()
		 WHERE id = $1
		 RETURNING `+postColumns,
		id, typ, patch.Title, patch.Subtitle, patch.Content, patch.ImageURL, patch.Gallery, patch.Featured,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LookbookPost{}, notFound("lookbook post", id)
		}
		return model.LookbookPost{}, wrapErr("update lookbook post", err)
	}
	return p, nil
}

// DeleteLookbookPost удаляет публикацию вместе с её комментариями.
func (r *PostgresRepository) DeleteLookbookPost(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lookbook_posts WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete lookbook post", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("lookbook post", id)
	}
	return nil
}

// CreateLookbookComment добавляет комментарий к публикации.
func (r *PostgresRepository) CreateLookbookComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	return insertComment(ctx, r.pool, "lookbook_comments", "post_id", c)
}

// ListLookbookComments возвращает комментарии публикации от старых к новым.
func (r *PostgresRepository) ListLookbookComments(ctx context.Context, postID string) ([]model.Comment, error) {
	return listComments(ctx, r.pool, "lookbook_comments", "post_id", postID)
}
