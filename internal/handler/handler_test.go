package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/orbit-portal/internal/middleware"
	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/service"
)

const testSecret = "test-secret"

var (
	staffActor    = model.Actor{UserID: "u-staff", Name: "Sam", Role: model.RoleStaff}
	customerActor = model.Actor{UserID: "u-cust", Name: "Casey", Role: model.RoleCustomer, CustomerID: "cust-42"}
)

// stubService встраивает интерфейс: непереопределённые методы паникуют.
type stubService struct {
	Service

	createIn  service.CreateOrderInput
	createErr error

	orders       []model.Order
	ordersFilter string
	// snapshots, если заданы, доставляются подписчику подряд вместо orders.
	snapshots [][]model.Order

	notifications []model.Notification
	markAllN      int64
	err           error

	unsubscribed chan struct{}
}

func (s *stubService) CreateOrder(ctx context.Context, actor model.Actor, in service.CreateOrderInput) (model.Order, error) {
	s.createIn = in
	if s.createErr != nil {
		return model.Order{}, s.createErr
	}
	return model.Order{
		ID:         "ord-1",
		Title:      in.Title,
		CustomerID: in.CustomerID,
		TotalValue: decimal.NewFromInt(567),
		Status:     model.OrderStatusSubmitted,
	}, nil
}

func (s *stubService) ListOrders(ctx context.Context, actor model.Actor, customerID string) ([]model.Order, error) {
	s.ordersFilter = customerID
	return s.orders, s.err
}

func (s *stubService) GetOrder(ctx context.Context, actor model.Actor, id string) (model.OrderDetail, error) {
	return model.OrderDetail{}, s.err
}

func (s *stubService) ListNotifications(ctx context.Context, actor model.Actor) ([]model.Notification, error) {
	return s.notifications, s.err
}

func (s *stubService) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	return s.markAllN, s.err
}

func (s *stubService) SubscribeOrders(ctx context.Context, actor model.Actor, customerID string, deliver func([]model.Order)) func() {
	if s.snapshots == nil {
		deliver(s.orders)
	}
	for _, snapshot := range s.snapshots {
		deliver(snapshot)
	}
	return func() { close(s.unsubscribed) }
}

func (s *stubService) SubscribeNotifications(ctx context.Context, actor model.Actor, deliver func([]model.Notification)) (func(), error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff role required", model.ErrForbidden)
	}
	deliver(s.notifications)
	return func() { close(s.unsubscribed) }, nil
}

// actorsByID выдаёт профиль по идентификатору пользователя из токена.
type actorsByID map[string]model.Actor

func (m actorsByID) ResolveActor(ctx context.Context, id model.Identity) (model.Actor, error) {
	a, ok := m[id.UserID]
	if !ok {
		return model.Actor{}, fmt.Errorf("%w: no profile", model.ErrForbidden)
	}
	return a, nil
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware(testSecret, actorsByID{
		staffActor.UserID:    staffActor,
		customerActor.UserID: customerActor,
	}, logger)

	h := NewHandler(svc, logger, auth)
	h.now = func() time.Time { return time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC) }
	return h
}

func bearer(t *testing.T, h *Handler, actor model.Actor) string {
	t.Helper()
	token, err := h.authMiddleware.IssueToken(model.Identity{UserID: actor.UserID}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func do(t *testing.T, h *Handler, actor *model.Actor, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if actor != nil {
		req.Header.Set("Authorization", bearer(t, h, *actor))
	}
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, nil, http.MethodGet, "/api/orders", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCreateOrder_Created(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := do(t, h, &staffActor, http.MethodPost, "/api/orders", map[string]any{
		"title":      "Spring Restock",
		"customerId": "cust-42",
		"lineItems": []map[string]any{
			{"productId": "denim-001", "quantity": 3},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var got model.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "ord-1" || !got.TotalValue.Equal(decimal.NewFromInt(567)) {
		t.Fatalf("unexpected order %+v", got)
	}
	if len(svc.createIn.LineItems) != 1 || svc.createIn.LineItems[0].Quantity != 3 {
		t.Fatalf("line items not passed through: %+v", svc.createIn.LineItems)
	}
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        fmt.Errorf("%w: title is required", model.ErrValidation),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "validation error: title is required",
		},
		{
			name:       "forbidden",
			err:        fmt.Errorf("%w: customers may only order for their own account", model.ErrForbidden),
			wantStatus: http.StatusForbidden,
			wantBody:   "forbidden: customers may only order for their own account",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("customer %q: %w", "cust-9", model.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   `customer "cust-9": not found`,
		},
		{
			name:       "internal error is hidden",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{createErr: tt.err})

			rec := do(t, h, &customerActor, http.MethodPost, "/api/orders", map[string]any{"title": "x"})
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantBody {
				t.Fatalf("error = %q, want %q", body.Error, tt.wantBody)
			}
		})
	}
}

func TestCreateOrder_CancelledWorkOnLiveRequestIsReported(t *testing.T) {
	h := newTestHandler(t, &stubService{createErr: fmt.Errorf("create order: %w", context.Canceled)})

	rec := do(t, h, &customerActor, http.MethodPost, "/api/orders", map[string]any{"title": "x"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestWriteError_SkipsDisconnectedClient(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.writeError(rec, req, "create order", fmt.Errorf("create order: %w", context.Canceled))
	if rec.Body.Len() != 0 {
		t.Fatalf("expected no body for a gone client, got %q", rec.Body.String())
	}
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := do(t, h, &staffActor, http.MethodPost, "/api/orders", `{"title":`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestListOrders_PassesCustomerFilter(t *testing.T) {
	svc := &stubService{orders: []model.Order{{ID: "ord-1"}}}
	h := newTestHandler(t, svc)

	rec := do(t, h, &staffActor, http.MethodGet, "/api/orders?customerId=cust-7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.ordersFilter != "cust-7" {
		t.Fatalf("filter = %q, want cust-7", svc.ordersFilter)
	}
}

func TestGetOrder_OtherCustomerIsNotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{err: fmt.Errorf("order %q: %w", "ord-9", model.ErrNotFound)})

	rec := do(t, h, &customerActor, http.MethodGet, "/api/orders/ord-9", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestNotifications_ListCountsUnread(t *testing.T) {
	svc := &stubService{notifications: []model.Notification{
		{ID: "n-1", Read: false},
		{ID: "n-2", Read: true},
		{ID: "n-3", Read: false},
	}}
	h := newTestHandler(t, svc)

	rec := do(t, h, &staffActor, http.MethodGet, "/api/notifications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body notificationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Unread != 2 || len(body.Notifications) != 3 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestNotifications_MarkAllRead(t *testing.T) {
	h := newTestHandler(t, &stubService{markAllN: 2})

	rec := do(t, h, &staffActor, http.MethodPost, "/api/notifications/read-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"updated":2}` {
		t.Fatalf("body = %s", got)
	}
}

func TestNotifications_Export(t *testing.T) {
	svc := &stubService{notifications: []model.Notification{{
		ID:         "n-1",
		Type:       model.NotificationTypeNewOrder,
		OrderID:    "ord-1",
		CustomerID: "cust-42",
		Message:    `New order "Spring Restock" from cust-42`,
		CreatedAt:  time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC),
	}}}
	h := newTestHandler(t, svc)

	rec := do(t, h, &staffActor, http.MethodGet, "/api/notifications/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	wantDisposition := `attachment; filename="orbit-notifications-2026-03-09.csv"`
	if got := rec.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Fatalf("disposition = %q, want %q", got, wantDisposition)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	want := `2026-03-09,08:30:00,new_order,"New order ""Spring Restock"" from cust-42",ord-1,cust-42,No`
	if lines[1] != want {
		t.Fatalf("row = %q, want %q", lines[1], want)
	}
}

type sseEvent struct {
	name string
	data string
}

// readEvents читает события потока, пока не встретит событие stop.
func readEvents(t *testing.T, r *bufio.Reader, stop string) []sseEvent {
	t.Helper()

	var (
		events []sseEvent
		cur    sseEvent
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			events = append(events, cur)
			if cur.name == stop {
				return events
			}
			cur = sseEvent{}
		}
	}
}

func TestStreamOrders_SnapshotAndNewOrdersPrompt(t *testing.T) {
	svc := &stubService{
		orders: []model.Order{
			{ID: "ord-2", Viewed: false},
			{ID: "ord-1", Viewed: true},
		},
		unsubscribed: make(chan struct{}),
	}
	h := newTestHandler(t, svc)
	srv := httptest.NewServer(h.SetupRouter())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/orders", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", bearer(t, h, staffActor))

	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer res.Body.Close()

	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := readEvents(t, bufio.NewReader(res.Body), eventNewOrders)
	if len(events) != 2 || events[0].name != eventOrders {
		t.Fatalf("unexpected events %+v", events)
	}

	var snapshot ordersEvent
	if err := json.Unmarshal([]byte(events[0].data), &snapshot); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if len(snapshot.Orders) != 2 || snapshot.Unviewed != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	var prompt newOrdersEvent
	if err := json.Unmarshal([]byte(events[1].data), &prompt); err != nil {
		t.Fatalf("decode prompt: %v", err)
	}
	if len(prompt.Orders) != 1 || prompt.Orders[0].ID != "ord-2" {
		t.Fatalf("unexpected prompt %+v", prompt)
	}

	cancel()
	select {
	case <-svc.unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not released after disconnect")
	}
}

func TestStreamOrders_PromptUsesFirstSnapshot(t *testing.T) {
	svc := &stubService{
		snapshots: [][]model.Order{
			{{ID: "ord-2", Viewed: false}, {ID: "ord-1", Viewed: true}},
			{{ID: "ord-2", Viewed: true}, {ID: "ord-1", Viewed: true}},
		},
		unsubscribed: make(chan struct{}),
	}
	h := newTestHandler(t, svc)
	srv := httptest.NewServer(h.SetupRouter())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/orders", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", bearer(t, h, staffActor))

	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer res.Body.Close()

	events := readEvents(t, bufio.NewReader(res.Body), eventNewOrders)
	last := events[len(events)-1]

	var prompt newOrdersEvent
	if err := json.Unmarshal([]byte(last.data), &prompt); err != nil {
		t.Fatalf("decode prompt: %v", err)
	}
	if len(prompt.Orders) != 1 || prompt.Orders[0].ID != "ord-2" {
		t.Fatalf("unexpected prompt %+v", prompt)
	}
}

func TestStreamNotifications_ForbiddenForCustomer(t *testing.T) {
	h := newTestHandler(t, &stubService{unsubscribed: make(chan struct{})})

	rec := do(t, h, &customerActor, http.MethodGet, "/api/stream/notifications", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestStream_Heartbeat(t *testing.T) {
	svc := &stubService{unsubscribed: make(chan struct{})}
	h := newTestHandler(t, svc)
	h.heartbeat = 10 * time.Millisecond
	srv := httptest.NewServer(h.SetupRouter())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/notifications", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", bearer(t, h, staffActor))

	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer res.Body.Close()

	r := bufio.NewReader(res.Body)
	events := readEvents(t, r, eventNotifications)
	if events[0].data != `{"notifications":[],"unread":0}` {
		t.Fatalf("unexpected first snapshot %q", events[0].data)
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if line == ": heartbeat\n" {
			return
		}
	}
}
