package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/orbit-portal/internal/live"
	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/validation"
)

// LineItemInput описывает позицию создаваемого заказа.
type LineItemInput struct {
	ProductID string `json:"productId" validate:"notblank"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// CreateOrderInput содержит данные для создания заказа.
type CreateOrderInput struct {
	Title      string          `json:"title" validate:"notblank"`
	Summary    string          `json:"summary"`
	CustomerID string          `json:"customerId" validate:"notblank"`
	LineItems  []LineItemInput `json:"lineItems" validate:"min=1,dive"`
}

func (in CreateOrderInput) key(actor model.Actor) string {
	parts := []string{actor.UserID, in.CustomerID, in.Title, in.Summary}
	for _, it := range in.LineItems {
		parts = append(parts, it.ProductID, strconv.Itoa(it.Quantity))
	}
	return flightKey("order", parts...)
}

// CreateOrder проверяет ввод, рассчитывает сумму по ценам каталога и сохраняет заказ
// вместе с записью журнала "created" и уведомлением о новом заказе.
// Все проверки выполняются до первой записи.
func (s *Service) CreateOrder(ctx context.Context, actor model.Actor, in CreateOrderInput) (model.Order, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Summary = strings.TrimSpace(in.Summary)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	if !actor.IsStaff() && in.CustomerID == "" {
		in.CustomerID = actor.CustomerID
	}

	if err := validation.Struct(in); err != nil {
		return model.Order{}, s.rejected("create order", actor, err)
	}
	if !actor.IsStaff() && (actor.CustomerID == "" || in.CustomerID != actor.CustomerID) {
		return model.Order{}, s.rejected("create order", actor,
			fmt.Errorf("%w: customers may only order for their own account", model.ErrForbidden))
	}

	return once(ctx, s, in.key(actor), func(ctx context.Context) (model.Order, error) {
		return s.createOrder(ctx, actor, in)
	})
}

func (s *Service) createOrder(ctx context.Context, actor model.Actor, in CreateOrderInput) (model.Order, error) {
	ids := make([]string, 0, len(in.LineItems))
	for _, it := range in.LineItems {
		if slices.Contains(ids, it.ProductID) {
			return model.Order{}, s.rejected("create order", actor,
				fmt.Errorf("%w: product %q listed more than once", model.ErrValidation, it.ProductID))
		}
		ids = append(ids, it.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return model.Order{}, err
	}

	items := make([]model.LineItem, 0, len(in.LineItems))
	total := decimal.Zero
	for _, it := range in.LineItems {
		p, ok := products[it.ProductID]
		if !ok || !p.Active {
			return model.Order{}, s.rejected("create order", actor,
				fmt.Errorf("%w: product %q is not available", model.ErrValidation, it.ProductID))
		}
		items = append(items, model.LineItem{ProductID: p.ID, Quantity: it.Quantity, UnitPrice: p.Price})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	now := s.now().UTC()
	order := model.Order{
		ID:         s.newID(),
		Title:      in.Title,
		Summary:    in.Summary,
		CustomerID: in.CustomerID,
		LineItems:  items,
		TotalValue: total,
		Status:     model.OrderStatusSubmitted,
		Viewed:     false,
		CreatedBy:  actor.Author(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created := model.OrderUpdate{
		ID:        s.newID(),
		OrderID:   order.ID,
		Kind:      model.UpdateKindCreated,
		Message:   "Order submitted",
		Author:    actor.Author(),
		CreatedAt: now,
	}

	order, err = s.repo.CreateOrder(ctx, order, created, s.newOrderNotification(order))
	if err != nil {
		s.logger.Error("create order failed",
			zap.String("customer_id", in.CustomerID),
			zap.Error(err))
		return model.Order{}, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.String("total", order.TotalValue.StringFixed(2)))

	s.hub.Publish(live.TopicOrders)
	s.hub.Publish(live.TopicNotifications)
	return order, nil
}

// canRead сообщает, входит ли заказ в область видимости пользователя.
func canRead(actor model.Actor, o model.Order) bool {
	if actor.IsStaff() {
		return true
	}
	return actor.CustomerID != "" && actor.CustomerID == o.CustomerID
}

// orderFor возвращает заказ, если он доступен пользователю. Чужие заказы для
// клиента неотличимы от несуществующих.
func (s *Service) orderFor(ctx context.Context, actor model.Actor, id string) (model.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !canRead(actor, o) {
		return model.Order{}, fmt.Errorf("order %q: %w", id, model.ErrNotFound)
	}
	return o, nil
}

// GetOrder возвращает заказ с журналом, задачами и комментариями. Открытие
// непросмотренного заказа сотрудником отмечает его просмотренным.
func (s *Service) GetOrder(ctx context.Context, actor model.Actor, id string) (model.OrderDetail, error) {
	o, err := s.orderFor(ctx, actor, id)
	if err != nil {
		return model.OrderDetail{}, err
	}

	if actor.IsStaff() && !o.Viewed {
		if err := s.repo.MarkOrderViewed(ctx, o.ID); err != nil {
			return model.OrderDetail{}, err
		}
		o.Viewed = true
		s.hub.Publish(live.TopicOrders)
	}

	detail := model.OrderDetail{Order: o}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail.Updates, err = s.repo.ListOrderUpdates(gctx, o.ID)
		return err
	})
	g.Go(func() error {
		var err error
		detail.Tasks, err = s.repo.ListTasks(gctx, o.ID)
		return err
	})
	g.Go(func() error {
		var err error
		detail.Comments, err = s.repo.ListComments(gctx, o.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.OrderDetail{}, err
	}

	detail.Updates = nonNil(detail.Updates)
	detail.Tasks = nonNil(detail.Tasks)
	detail.Comments = nonNil(detail.Comments)
	return detail, nil
}

// ListOrders возвращает заказы от новых к старым. Клиент видит только заказы своей
// организации; сотрудник может отфильтровать по customerID.
func (s *Service) ListOrders(ctx context.Context, actor model.Actor, customerID string) ([]model.Order, error) {
	filter, ok := orderScope(actor, customerID)
	if !ok {
		return []model.Order{}, nil
	}
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return nonNil(orders), nil
}

// orderScope возвращает фильтр по клиенту для пользователя; false означает пустую область.
func orderScope(actor model.Actor, customerID string) (string, bool) {
	if actor.IsStaff() {
		return customerID, true
	}
	if actor.CustomerID == "" {
		return "", false
	}
	return actor.CustomerID, true
}

// ChangeStatus переводит заказ в новый статус и добавляет запись журнала.
// Повторная установка текущего статуса ничего не записывает.
func (s *Service) ChangeStatus(ctx context.Context, actor model.Actor, id string, status model.OrderStatus) (model.Order, error) {
	if err := requireStaff(actor); err != nil {
		return model.Order{}, s.rejected("change status", actor, err)
	}
	if !status.Valid() {
		return model.Order{}, s.rejected("change status", actor,
			fmt.Errorf("%w: unknown status %q", model.ErrValidation, status))
	}

	update := model.OrderUpdate{
		ID:        s.newID(),
		OrderID:   id,
		Kind:      model.UpdateKindStatusChange,
		Message:   statusMessage(status),
		Author:    actor.Author(),
		CreatedAt: s.now().UTC(),
	}
	changed, err := s.repo.SetOrderStatus(ctx, id, status, update)
	if err != nil {
		return model.Order{}, err
	}
	if changed {
		s.logger.Info("order status changed",
			zap.String("order_id", id),
			zap.String("status", string(status)),
			zap.String("user_id", actor.UserID))
		s.hub.Publish(live.TopicOrders)
	}
	return s.repo.GetOrder(ctx, id)
}

func statusMessage(status model.OrderStatus) string {
	return "Status changed to " + strings.ReplaceAll(string(status), "_", " ")
}

// ListOrderUpdates возвращает журнал заказа от новых записей к старым.
func (s *Service) ListOrderUpdates(ctx context.Context, actor model.Actor, orderID string) ([]model.OrderUpdate, error) {
	if _, err := s.orderFor(ctx, actor, orderID); err != nil {
		return nil, err
	}
	updates, err := s.repo.ListOrderUpdates(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nonNil(updates), nil
}

func sortOrders(orders []model.Order) {
	slices.SortStableFunc(orders, func(a, b model.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
