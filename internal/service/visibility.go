package service

import (
	"context"
	"sync"

	"github.com/mmeshcher/orbit-portal/internal/live"
	"github.com/mmeshcher/orbit-portal/internal/model"
)

// NewOrdersPromptLimit ограничивает число заказов в подсказке о новых заказах.
const NewOrdersPromptLimit = 5

// MarkOrderViewed отмечает заказ просмотренным. Доступно только сотрудникам;
// повторный вызов ничего не меняет и ошибкой не является.
func (s *Service) MarkOrderViewed(ctx context.Context, actor model.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return s.rejected("mark order viewed", actor, err)
	}
	if err := s.repo.MarkOrderViewed(ctx, id); err != nil {
		return err
	}
	s.hub.Publish(live.TopicOrders)
	return nil
}

// IsUnviewed сообщает, не открывался ли заказ сотрудниками.
func IsUnviewed(o model.Order) bool { return !o.Viewed }

// IsUnread сообщает, не прочитано ли уведомление.
func IsUnread(n model.Notification) bool { return !n.Read }

// NewOrdersPrompt срабатывает не более одного раза за сессию: на первом снимке
// заказов, если в нём есть непросмотренные.
type NewOrdersPrompt struct {
	once sync.Once
}

// Observe возвращает до NewOrdersPromptLimit непросмотренных заказов из первого
// переданного снимка и nil для всех последующих.
func (p *NewOrdersPrompt) Observe(orders []model.Order) []model.Order {
	var res []model.Order
	p.once.Do(func() {
		for _, o := range orders {
			if IsUnviewed(o) {
				res = append(res, o)
				if len(res) == NewOrdersPromptLimit {
					break
				}
			}
		}
	})
	return res
}
