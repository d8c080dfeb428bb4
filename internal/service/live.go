package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/orbit-portal/internal/live"
	"github.com/mmeshcher/orbit-portal/internal/model"
)

// SubscribeOrders устанавливает живое наблюдение за заказами в области видимости
// пользователя. deliver получает полный снимок от новых заказов к старым после
// каждого изменения; сбой загрузки доставляется как пустой снимок.
func (s *Service) SubscribeOrders(ctx context.Context, actor model.Actor, customerID string, deliver func([]model.Order)) func() {
	filter, ok := orderScope(actor, customerID)
	load := func(ctx context.Context) ([]model.Order, error) {
		if !ok {
			return nil, nil
		}
		orders, err := s.repo.ListOrders(ctx, filter)
		if err != nil {
			return nil, err
		}
		sortOrders(orders)
		return orders, nil
	}
	return live.Subscribe(ctx, s.hub, live.TopicOrders, load, deliver)
}

// SubscribeNotifications устанавливает живое наблюдение за уведомлениями. Только для сотрудников.
func (s *Service) SubscribeNotifications(ctx context.Context, actor model.Actor, deliver func([]model.Notification)) (func(), error) {
	if err := requireStaff(actor); err != nil {
		return nil, s.rejected("subscribe notifications", actor, err)
	}
	load := func(ctx context.Context) ([]model.Notification, error) {
		list, err := s.repo.ListNotifications(ctx)
		if err != nil {
			return nil, err
		}
		sortNotifications(list)
		return list, nil
	}
	return live.Subscribe(ctx, s.hub, live.TopicNotifications, load, deliver), nil
}

func sortNotifications(list []model.Notification) {
	slices.SortStableFunc(list, func(a, b model.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// ChangeSource поставляет имена таблиц, изменённых любым экземпляром сервиса.
type ChangeSource interface {
	ListenChanges(ctx context.Context, fn func(table string)) error
}

var tableTopics = map[string]live.Topic{
	"orders":        live.TopicOrders,
	"notifications": live.TopicNotifications,
}

const changeFeedRetryDelay = time.Second

// RunChangeFeed пересылает изменения из src в шину подписок до отмены ctx.
// После потери соединения слушатель переподключается через changeFeedRetryDelay.
func (s *Service) RunChangeFeed(ctx context.Context, src ChangeSource) {
	for {
		err := src.ListenChanges(ctx, func(table string) {
			if topic, ok := tableTopics[table]; ok {
				s.hub.Publish(topic)
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("change feed lost", zap.Error(err))
		}

		timer := time.NewTimer(changeFeedRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		// Пока слушатель был отключён, изменения могли быть пропущены.
		s.hub.Publish(live.TopicOrders)
		s.hub.Publish(live.TopicNotifications)
	}
}
