package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/validation"
)

// LookbookInput содержит данные новой публикации.
type LookbookInput struct {
	Type     model.PostType `json:"type" validate:"oneof=campaign news photoshoot update catalogue"`
	Title    string         `json:"title" validate:"notblank"`
	Subtitle string         `json:"subtitle"`
	Content  string         `json:"content"`
	ImageURL string         `json:"imageUrl"`
	Gallery  []string       `json:"gallery"`
	Featured bool           `json:"featured"`
}

// ListLookbookPosts возвращает публикации от новых к старым.
func (s *Service) ListLookbookPosts(ctx context.Context) ([]model.LookbookPost, error) {
	posts, err := s.repo.ListLookbookPosts(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(posts), nil
}

// GetLookbookPost возвращает публикацию.
func (s *Service) GetLookbookPost(ctx context.Context, id string) (model.LookbookPost, error) {
	return s.repo.GetLookbookPost(ctx, id)
}

// CreateLookbookPost публикует запись. Только для сотрудников.
func (s *Service) CreateLookbookPost(ctx context.Context, actor model.Actor, in LookbookInput) (model.LookbookPost, error) {
	if err := requireStaff(actor); err != nil {
		return model.LookbookPost{}, s.rejected("create lookbook post", actor, err)
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return model.LookbookPost{}, s.rejected("create lookbook post", actor, err)
	}
	return s.repo.CreateLookbookPost(ctx, model.LookbookPost{
		ID:        s.newID(),
		Type:      in.Type,
		Title:     in.Title,
		Subtitle:  in.Subtitle,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		Gallery:   nonNil(in.Gallery),
		Featured:  in.Featured,
		CreatedBy: actor.UserID,
	})
}

// UpdateLookbookPost частично обновляет публикацию.
func (s *Service) UpdateLookbookPost(ctx context.Context, actor model.Actor, id string, patch model.LookbookPatch) (model.LookbookPost, error) {
	if err := requireStaff(actor); err != nil {
		return model.LookbookPost{}, s.rejected("update lookbook post", actor, err)
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return model.LookbookPost{}, s.rejected("update lookbook post", actor,
			fmt.Errorf("%w: unknown post type %q", model.ErrValidation, *patch.Type))
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.LookbookPost{}, s.rejected("update lookbook post", actor,
				fmt.Errorf("%w: title is required", model.ErrValidation))
		}
		patch.Title = &title
	}
	return s.repo.UpdateLookbookPost(ctx, id, patch)
}

// DeleteLookbookPost удаляет публикацию вместе с комментариями.
func (s *Service) DeleteLookbookPost(ctx context.Context, actor model.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return s.rejected("delete lookbook post", actor, err)
	}
	return s.repo.DeleteLookbookPost(ctx, id)
}

// AddLookbookComment добавляет комментарий к публикации от любого пользователя.
func (s *Service) AddLookbookComment(ctx context.Context, actor model.Actor, postID, message string) (model.Comment, error) {
	message = strings.TrimSpace(message)
	if err := validation.Struct(commentInput{Message: message}); err != nil {
		return model.Comment{}, s.rejected("add lookbook comment", actor, err)
	}
	if _, err := s.repo.GetLookbookPost(ctx, postID); err != nil {
		return model.Comment{}, err
	}
	return once(ctx, s, flightKey("lookbook-comment", actor.UserID, postID, message), func(ctx context.Context) (model.Comment, error) {
		return s.repo.CreateLookbookComment(ctx, model.Comment{
			ID:        s.newID(),
			ParentID:  postID,
			Message:   message,
			Author:    actor.Author(),
			CreatedAt: s.now().UTC(),
		})
	})
}

// ListLookbookComments возвращает комментарии публикации от старых к новым.
func (s *Service) ListLookbookComments(ctx context.Context, postID string) ([]model.Comment, error) {
	if _, err := s.repo.GetLookbookPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListLookbookComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return nonNil(comments), nil
}
