package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/orbit-portal/internal/live"
	"github.com/mmeshcher/orbit-portal/internal/model"
)

// newOrderNotification формирует уведомление о новом заказе. Оно сохраняется в той же
// транзакции, что и сам заказ.
func (s *Service) newOrderNotification(o model.Order) model.Notification {
	return model.Notification{
		ID:         s.newID(),
		Type:       model.NotificationTypeNewOrder,
		OrderID:    o.ID,
		Title:      o.Title,
		CustomerID: o.CustomerID,
		Message:    fmt.Sprintf(`New order "%s" from %s`, o.Title, o.CustomerID),
		Read:       false,
		CreatedAt:  o.CreatedAt,
	}
}

// ListNotifications возвращает уведомления от новых к старым.
func (s *Service) ListNotifications(ctx context.Context, actor model.Actor) ([]model.Notification, error) {
	if err := requireStaff(actor); err != nil {
		return nil, s.rejected("list notifications", actor, err)
	}
	list, err := s.repo.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	sortNotifications(list)
	return nonNil(list), nil
}

// MarkNotificationRead отмечает одно уведомление прочитанным.
func (s *Service) MarkNotificationRead(ctx context.Context, actor model.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return s.rejected("mark notification read", actor, err)
	}
	if err := s.repo.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	s.hub.Publish(live.TopicNotifications)
	return nil
}

// MarkAllRead отмечает прочитанными уведомления, непрочитанные на момент вызова,
// и возвращает их число.
func (s *Service) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	if err := requireStaff(actor); err != nil {
		return 0, s.rejected("mark all read", actor, err)
	}
	n, err := s.repo.MarkAllNotificationsRead(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("notifications marked read", zap.Int64("count", n), zap.String("user_id", actor.UserID))
	if n > 0 {
		s.hub.Publish(live.TopicNotifications)
	}
	return n, nil
}
