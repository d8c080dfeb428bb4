// Package service реализует бизнес-логику портала Orbit: жизненный цикл заказов,
// признаки просмотра и прочтения, уведомления и живые подписки.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mmeshcher/orbit-portal/internal/live"
	"github.com/mmeshcher/orbit-portal/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateOrder(ctx context.Context, o model.Order, created model.OrderUpdate, n model.Notification) (model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListOrders(ctx context.Context, customerID string) ([]model.Order, error)
	SetOrderStatus(ctx context.Context, id string, status model.OrderStatus, update model.OrderUpdate) (bool, error)
	MarkOrderViewed(ctx context.Context, id string) error
	ListOrderUpdates(ctx context.Context, orderID string) ([]model.OrderUpdate, error)
	CountUnviewedOrders(ctx context.Context) (int, error)

	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	ListTasks(ctx context.Context, orderID string) ([]model.Task, error)
	SetTaskStatus(ctx context.Context, orderID, taskID string, status model.TaskStatus) (model.Task, error)
	CreateComment(ctx context.Context, c model.Comment) (model.Comment, error)
	ListComments(ctx context.Context, orderID string) ([]model.Comment, error)

	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)

	ListProducts(ctx context.Context, query string, activeOnly bool) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCustomers(ctx context.Context, query string) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error)
	UpdateCustomer(ctx context.Context, id string, patch model.CustomerPatch) (model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListLookbookPosts(ctx context.Context) ([]model.LookbookPost, error)
	GetLookbookPost(ctx context.Context, id string) (model.LookbookPost, error)
	CreateLookbookPost(ctx context.Context, p model.LookbookPost) (model.LookbookPost, error)
	UpdateLookbookPost(ctx context.Context, id string, patch model.LookbookPatch) (model.LookbookPost, error)
	DeleteLookbookPost(ctx context.Context, id string) error
	CreateLookbookComment(ctx context.Context, c model.Comment) (model.Comment, error)
	ListLookbookComments(ctx context.Context, postID string) ([]model.Comment, error)

	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	UpsertProfile(ctx context.Context, p model.Profile) (model.Profile, error)
	ListStaffProfiles(ctx context.Context) ([]model.Profile, error)
}

// Service содержит бизнес-логику портала.
type Service struct {
	repo   Repository
	hub    *live.Hub
	logger *zap.Logger

	now   func() time.Time
	newID func() string

	inflight singleflight.Group
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService создаёт сервис поверх репозитория и шины живых подписок.
func NewService(repo Repository, hub *live.Hub, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = live.NewHub(logger)
	}
	s := &Service{
		repo:   repo,
		hub:    hub,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	s.hub.Close()
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Hub возвращает шину живых подписок сервиса.
func (s *Service) Hub() *live.Hub {
	return s.hub
}

// once схлопывает одновременные одинаковые запросы в одну запись:
// второй вызывающий получает результат первого. Общая запись выполняется без
// отмены вызывающего, каждый вызывающий ждёт её в пределах своего ctx.
func once[T any](ctx context.Context, s *Service, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	ch := s.inflight.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// flightKey собирает ключ in-flight guard; длина перед каждой частью исключает
// совпадение ключей при разделителях внутри пользовательского текста.
func flightKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		fmt.Fprintf(&b, "|%d:%s", len(p), p)
	}
	return b.String()
}

func requireStaff(actor model.Actor) error {
	if !actor.IsStaff() {
		return fmt.Errorf("%w: staff role required", model.ErrForbidden)
	}
	return nil
}

func requireAdmin(actor model.Actor) error {
	if actor.Role != model.RoleAdmin {
		return fmt.Errorf("%w: admin role required", model.ErrForbidden)
	}
	return nil
}

func (s *Service) rejected(op string, actor model.Actor, err error) error {
	s.logger.Debug("request rejected",
		zap.String("op", op),
		zap.String("user_id", actor.UserID),
		zap.Error(err))
	return err
}
