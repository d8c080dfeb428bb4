package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

const dashboardRecent = 5

// Dashboard собирает сводку по заказам в области видимости пользователя.
func (s *Service) Dashboard(ctx context.Context, actor model.Actor) (model.Dashboard, error) {
	orders, err := s.ListOrders(ctx, actor, "")
	if err != nil {
		return model.Dashboard{}, err
	}

	d := model.Dashboard{
		StatusCounts: make(map[model.OrderStatus]int, len(model.OrderStatuses)),
		TotalOrders:  len(orders),
		TotalValue:   decimal.Zero,
		Recent:       orders[:min(dashboardRecent, len(orders))],
	}
	for _, st := range model.OrderStatuses {
		d.StatusCounts[st] = 0
	}
	for _, o := range orders {
		d.StatusCounts[o.Status]++
		d.TotalValue = d.TotalValue.Add(o.TotalValue)
	}

	if actor.IsStaff() {
		d.Unviewed, err = s.repo.CountUnviewedOrders(ctx)
		if err != nil {
			return model.Dashboard{}, err
		}
	}
	return d, nil
}
