package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/orbit-portal/internal/live"
	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/service"
)

const (
	eventOrders        = "orders"
	eventNewOrders     = "new_orders"
	eventNotifications = "notifications"
)

type ordersEvent struct {
	Orders   []model.Order `json:"orders"`
	Unviewed int           `json:"unviewed"`
}

type newOrdersEvent struct {
	Orders []model.Order `json:"orders"`
}

// eventStream пишет события text/event-stream в одно соединение.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (h *Handler) openStream(w http.ResponseWriter, r *http.Request) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, "open stream", fmt.Errorf("response writer does not support streaming"))
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", event, data)
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) heartbeat() error {
	if _, err := s.w.Write([]byte(": heartbeat\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// serve доставляет снимки из mailbox в поток до отключения клиента.
func serve[T any](h *Handler, r *http.Request, stream *eventStream, mailbox *live.Mailbox[[]T], push func([]T) error) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot := <-mailbox.C():
			if err := push(snapshot); err != nil {
				h.logger.Debug("stream write failed", zap.Error(err), zap.String("path", r.URL.Path))
				return
			}
		case <-ticker.C:
			if err := stream.heartbeat(); err != nil {
				return
			}
		}
	}
}

// StreamOrders отправляет снимок заказов после каждого изменения. Сотрудник
// дополнительно получает одно событие new_orders с непросмотренными заказами
// первого снимка.
func (h *Handler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	stream, ok := h.openStream(w, r)
	if !ok {
		return
	}

	// Подсказка считается по первому снимку до почтового ящика: там его может
	// вытеснить следующий.
	var prompt service.NewOrdersPrompt
	prompts := make(chan []model.Order, 1)
	mailbox := live.NewMailbox[[]model.Order]()
	deliver := func(orders []model.Order) {
		if actor.IsStaff() {
			if fresh := prompt.Observe(orders); len(fresh) > 0 {
				prompts <- fresh
			}
		}
		mailbox.Put(orders)
	}
	unsubscribe := h.service.SubscribeOrders(r.Context(), actor, r.URL.Query().Get("customerId"), deliver)
	defer unsubscribe()

	view := live.NewView(func(o model.Order) string { return o.ID })

	serve(h, r, stream, mailbox, func(orders []model.Order) error {
		view.Apply(orders)
		err := stream.send(eventOrders, ordersEvent{
			Orders:   view.Snapshot(),
			Unviewed: view.Count(service.IsUnviewed),
		})
		if err != nil {
			return err
		}
		select {
		case fresh := <-prompts:
			return stream.send(eventNewOrders, newOrdersEvent{Orders: fresh})
		default:
			return nil
		}
	})
}

// StreamNotifications отправляет снимок уведомлений после каждого изменения.
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	mailbox := live.NewMailbox[[]model.Notification]()
	unsubscribe, err := h.service.SubscribeNotifications(r.Context(), actor, mailbox.Put)
	if err != nil {
		h.writeError(w, r, "stream notifications", err)
		return
	}
	defer unsubscribe()

	stream, ok := h.openStream(w, r)
	if !ok {
		return
	}

	view := live.NewView(func(n model.Notification) string { return n.ID })
	serve(h, r, stream, mailbox, func(list []model.Notification) error {
		view.Apply(list)
		return stream.send(eventNotifications, notificationsResponse{
			Notifications: view.Snapshot(),
			Unread:        view.Count(service.IsUnread),
		})
	})
}
