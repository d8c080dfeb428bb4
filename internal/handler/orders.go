package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/service"
)

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// CreateOrder создаёт заказ от имени текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in service.CreateOrderInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, "create order", err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListOrders возвращает заказы в области видимости пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(r.Context(), actor, r.URL.Query().Get("customerId"))
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ вместе с журналом, задачами и комментариями.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetOrder(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type statusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus меняет статус заказа.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "change status", err)
		return
	}
	order, err := h.service.ChangeStatus(r.Context(), actor, urlParam(r, "id"), model.OrderStatus(req.Status))
	if err != nil {
		h.writeError(w, r, "change status", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// MarkViewed отмечает заказ просмотренным.
func (h *Handler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkOrderViewed(r.Context(), actor, urlParam(r, "id")); err != nil {
		h.writeError(w, r, "mark viewed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUpdates возвращает журнал заказа.
func (h *Handler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	updates, err := h.service.ListOrderUpdates(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "list updates", err)
		return
	}
	writeJSON(w, http.StatusOK, updates)
}

type taskRequest struct {
	Title string `json:"title"`
}

// AddTask добавляет задачу к заказу.
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "add task", err)
		return
	}
	task, err := h.service.AddTask(r.Context(), actor, urlParam(r, "id"), req.Title)
	if err != nil {
		h.writeError(w, r, "add task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// ListTasks возвращает задачи заказа.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	tasks, err := h.service.ListTasks(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// SetTaskStatus меняет статус задачи.
func (h *Handler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "set task status", err)
		return
	}
	task, err := h.service.SetTaskStatus(r.Context(), actor, urlParam(r, "id"), urlParam(r, "taskID"), model.TaskStatus(req.Status))
	if err != nil {
		h.writeError(w, r, "set task status", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type commentRequest struct {
	Message string `json:"message"`
}

// AddComment добавляет комментарий к заказу.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "add comment", err)
		return
	}
	c, err := h.service.AddComment(r.Context(), actor, urlParam(r, "id"), req.Message)
	if err != nil {
		h.writeError(w, r, "add comment", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListComments возвращает комментарии заказа.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	comments, err := h.service.ListComments(r.Context(), actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "list comments", err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
