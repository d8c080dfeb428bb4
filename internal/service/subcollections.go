package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/validation"
)

type taskInput struct {
	Title string `json:"title" validate:"notblank"`
}

type commentInput struct {
	Message string `json:"message" validate:"notblank"`
}

// AddTask добавляет задачу к заказу со статусом todo.
func (s *Service) AddTask(ctx context.Context, actor model.Actor, orderID, title string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if err := validation.Struct(taskInput{Title: title}); err != nil {
		return model.Task{}, s.rejected("add task", actor, err)
	}
	if _, err := s.orderFor(ctx, actor, orderID); err != nil {
		return model.Task{}, err
	}

	return once(ctx, s, flightKey("task", actor.UserID, orderID, title), func(ctx context.Context) (model.Task, error) {
		now := s.now().UTC()
		return s.repo.CreateTask(ctx, model.Task{
			ID:        s.newID(),
			OrderID:   orderID,
			Title:     title,
			Status:    model.TaskStatusTodo,
			CreatedBy: actor.UserID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
}

// ListTasks возвращает задачи заказа.
func (s *Service) ListTasks(ctx context.Context, actor model.Actor, orderID string) ([]model.Task, error) {
	if _, err := s.orderFor(ctx, actor, orderID); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nonNil(tasks), nil
}

// SetTaskStatus меняет статус задачи; переходы между статусами не ограничены.
func (s *Service) SetTaskStatus(ctx context.Context, actor model.Actor, orderID, taskID string, status model.TaskStatus) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, s.rejected("set task status", actor,
			fmt.Errorf("%w: unknown task status %q", model.ErrValidation, status))
	}
	if _, err := s.orderFor(ctx, actor, orderID); err != nil {
		return model.Task{}, err
	}
	return s.repo.SetTaskStatus(ctx, orderID, taskID, status)
}

// AddComment добавляет комментарий к заказу. Комментарии не редактируются и не удаляются.
func (s *Service) AddComment(ctx context.Context, actor model.Actor, orderID, message string) (model.Comment, error) {
	message = strings.TrimSpace(message)
	if err := validation.Struct(commentInput{Message: message}); err != nil {
		return model.Comment{}, s.rejected("add comment", actor, err)
	}
	if _, err := s.orderFor(ctx, actor, orderID); err != nil {
		return model.Comment{}, err
	}

	return once(ctx, s, flightKey("comment", actor.UserID, orderID, message), func(ctx context.Context) (model.Comment, error) {
		return s.repo.CreateComment(ctx, model.Comment{
			ID:        s.newID(),
			ParentID:  orderID,
			Message:   message,
			Author:    actor.Author(),
			CreatedAt: s.now().UTC(),
		})
	})
}

// ListComments возвращает комментарии заказа от старых к новым.
func (s *Service) ListComments(ctx context.Context, actor model.Actor, orderID string) ([]model.Comment, error) {
	if _, err := s.orderFor(ctx, actor, orderID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nonNil(comments), nil
}
