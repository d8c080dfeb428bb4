// Package handler содержит HTTP-обработчики API портала Orbit.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/orbit-portal/internal/middleware"
	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateOrder(ctx context.Context, actor model.Actor, in service.CreateOrderInput) (model.Order, error)
	GetOrder(ctx context.Context, actor model.Actor, id string) (model.OrderDetail, error)
	ListOrders(ctx context.Context, actor model.Actor, customerID string) ([]model.Order, error)
	ChangeStatus(ctx context.Context, actor model.Actor, id string, status model.OrderStatus) (model.Order, error)
	MarkOrderViewed(ctx context.Context, actor model.Actor, id string) error
	ListOrderUpdates(ctx context.Context, actor model.Actor, orderID string) ([]model.OrderUpdate, error)

	AddTask(ctx context.Context, actor model.Actor, orderID, title string) (model.Task, error)
	ListTasks(ctx context.Context, actor model.Actor, orderID string) ([]model.Task, error)
	SetTaskStatus(ctx context.Context, actor model.Actor, orderID, taskID string, status model.TaskStatus) (model.Task, error)
	AddComment(ctx context.Context, actor model.Actor, orderID, message string) (model.Comment, error)
	ListComments(ctx context.Context, actor model.Actor, orderID string) ([]model.Comment, error)

	ListNotifications(ctx context.Context, actor model.Actor) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, actor model.Actor, id string) error
	MarkAllRead(ctx context.Context, actor model.Actor) (int64, error)

	SubscribeOrders(ctx context.Context, actor model.Actor, customerID string, deliver func([]model.Order)) func()
	SubscribeNotifications(ctx context.Context, actor model.Actor, deliver func([]model.Notification)) (func(), error)

	ListProducts(ctx context.Context, actor model.Actor, query string) ([]model.Product, error)
	GetProduct(ctx context.Context, actor model.Actor, id string) (model.Product, error)
	CreateProduct(ctx context.Context, actor model.Actor, in service.ProductInput) (model.Product, error)
	UpdateProduct(ctx context.Context, actor model.Actor, id string, patch model.ProductPatch) (model.Product, error)
	DeleteProduct(ctx context.Context, actor model.Actor, id string) error

	ListCustomers(ctx context.Context, actor model.Actor, query string) ([]model.Customer, error)
	GetCustomer(ctx context.Context, actor model.Actor, id string) (model.Customer, error)
	CreateCustomer(ctx context.Context, actor model.Actor, in service.CustomerInput) (model.Customer, error)
	UpdateCustomer(ctx context.Context, actor model.Actor, id string, patch model.CustomerPatch) (model.Customer, error)
	DeleteCustomer(ctx context.Context, actor model.Actor, id string) error

	ListLookbookPosts(ctx context.Context) ([]model.LookbookPost, error)
	GetLookbookPost(ctx context.Context, id string) (model.LookbookPost, error)
	CreateLookbookPost(ctx context.Context, actor model.Actor, in service.LookbookInput) (model.LookbookPost, error)
	UpdateLookbookPost(ctx context.Context, actor model.Actor, id string, patch model.LookbookPatch) (model.LookbookPost, error)
	DeleteLookbookPost(ctx context.Context, actor model.Actor, id string) error
	AddLookbookComment(ctx context.Context, actor model.Actor, postID, message string) (model.Comment, error)
	ListLookbookComments(ctx context.Context, postID string) ([]model.Comment, error)

	ListStaff(ctx context.Context, actor model.Actor) ([]model.Profile, error)
	AssignProfile(ctx context.Context, actor model.Actor, userID string, in service.ProfileInput) (model.Profile, error)
	Dashboard(ctx context.Context, actor model.Actor) (model.Dashboard, error)
}

const defaultHeartbeat = 25 * time.Second

// Handler реализует HTTP-обработчики API портала.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware

	heartbeat time.Duration
	now       func() time.Time
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		heartbeat:      defaultHeartbeat,
		now:            time.Now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor сопоставляет доменной ошибке HTTP-статус.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает ошибкой; внутренние ошибки журналируются и не раскрываются клиенту.
// Ответ не пишется, только если клиент уже отключился.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if r.Context().Err() != nil {
		h.logger.Debug(op+" aborted by client", zap.Error(err), zap.String("path", r.URL.Path))
		return
	}
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", model.ErrValidation, err)
	}
	return nil
}

// actor извлекает пользователя, установленного AuthMiddleware.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	a, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: model.ErrUnauthenticated.Error()})
		return model.Actor{}, false
	}
	return a, true
}

// Me возвращает текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

// ListStaff возвращает профили сотрудников.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	profiles, err := h.service.ListStaff(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "list staff", err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// PutProfile назначает пользователю роль и клиента.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in service.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, "put profile", err)
		return
	}
	p, err := h.service.AssignProfile(r.Context(), actor, urlParam(r, "userID"), in)
	if err != nil {
		h.writeError(w, r, "put profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Dashboard возвращает сводку по заказам.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	d, err := h.service.Dashboard(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
