package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

// memRepo хранит данные в памяти с теми же гарантиями, что и PostgresRepository:
// заказ, запись журнала и уведомление сохраняются атомарно.
type memRepo struct {
	mu sync.Mutex

	orders        map[string]model.Order
	updates       []model.OrderUpdate
	tasks         []model.Task
	comments      []model.Comment
	notifications []model.Notification
	products      map[string]model.Product
	customers     map[string]model.Customer
	posts         map[string]model.LookbookPost
	postComments  []model.Comment
	profiles      map[string]model.Profile

	createOrderCalls int
	listErr          error
	// productsGate, если задан, задерживает GetProductsByIDs до закрытия канала или отмены ctx.
	productsGate chan struct{}
	// beforeMarkAll вызывается внутри MarkAllNotificationsRead до изменения данных.
	beforeMarkAll func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:    map[string]model.Order{},
		products:  map[string]model.Product{},
		customers: map[string]model.Customer{},
		posts:     map[string]model.LookbookPost{},
		profiles:  map[string]model.Profile{},
	}
}

func (r *memRepo) addProduct(id string, price int64, active bool) {
	r.products[id] = model.Product{ID: id, Name: id, SKU: strings.ToUpper(id), Price: decimal.NewFromInt(price), Active: active}
}

func (r *memRepo) Close() error { return nil }

func (r *memRepo) CreateOrder(ctx context.Context, o model.Order, created model.OrderUpdate, n model.Notification) (model.Order, error) {
	if err := ctx.Err(); err != nil {
		return model.Order{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createOrderCalls++
	r.orders[o.ID] = o
	r.updates = append(r.updates, created)
	r.notifications = append(r.notifications, n)
	return o, nil
}

func (r *memRepo) GetOrder(ctx context.Context, id string) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("order %q: %w", id, model.ErrNotFound)
	}
	return o, nil
}

func (r *memRepo) ListOrders(ctx context.Context, customerID string) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var res []model.Order
	for _, o := range r.orders {
		if customerID == "" || o.CustomerID == customerID {
			res = append(res, o)
		}
	}
	return res, nil
}

func (r *memRepo) SetOrderStatus(ctx context.Context, id string, status model.OrderStatus, update model.OrderUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, fmt.Errorf("order %q: %w", id, model.ErrNotFound)
	}
	if o.Status == status {
		return false, nil
	}
	o.Status = status
	r.orders[id] = o
	r.updates = append(r.updates, update)
	return true, nil
}

func (r *memRepo) MarkOrderViewed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %q: %w", id, model.ErrNotFound)
	}
	o.Viewed = true
	r.orders[id] = o
	return nil
}

func (r *memRepo) ListOrderUpdates(ctx context.Context, orderID string) ([]model.OrderUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.OrderUpdate
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].OrderID == orderID {
			res = append(res, r.updates[i])
		}
	}
	return res, nil
}

func (r *memRepo) CountUnviewedOrders(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.orders {
		if !o.Viewed {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return t, nil
}

func (r *memRepo) ListTasks(ctx context.Context, orderID string) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Task
	for _, t := range r.tasks {
		if t.OrderID == orderID {
			res = append(res, t)
		}
	}
	return res, nil
}

func (r *memRepo) SetTaskStatus(ctx context.Context, orderID, taskID string, status model.TaskStatus) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tasks {
		if t.OrderID == orderID && t.ID == taskID {
			r.tasks[i].Status = status
			return r.tasks[i], nil
		}
	}
	return model.Task{}, fmt.Errorf("task %q: %w", taskID, model.ErrNotFound)
}

func (r *memRepo) CreateComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, c)
	return c, nil
}

func (r *memRepo) ListComments(ctx context.Context, orderID string) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Comment
	for _, c := range r.comments {
		if c.ParentID == orderID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (r *memRepo) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]model.Notification{}, r.notifications...), nil
}

func (r *memRepo) MarkNotificationRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %q: %w", id, model.ErrNotFound)
}

func (r *memRepo) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	r.mu.Lock()
	var targets []string
	for _, n := range r.notifications {
		if !n.Read {
			targets = append(targets, n.ID)
		}
	}
	hook := r.beforeMarkAll
	r.mu.Unlock()

	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for i := range r.notifications {
		for _, id := range targets {
			if r.notifications[i].ID == id && !r.notifications[i].Read {
				r.notifications[i].Read = true
				count++
			}
		}
	}
	return count, nil
}

func (r *memRepo) ListProducts(ctx context.Context, query string, activeOnly bool) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Product
	for _, p := range r.products {
		if activeOnly && !p.Active {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name+p.SKU+p.Category), strings.ToLower(query)) {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func (r *memRepo) GetProduct(ctx context.Context, id string) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("product %q: %w", id, model.ErrNotFound)
	}
	return p, nil
}

func (r *memRepo) GetProductsByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	if r.productsGate != nil {
		select {
		case <-r.productsGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := map[string]model.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (r *memRepo) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return p, nil
}

func (r *memRepo) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("product %q: %w", id, model.ErrNotFound)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	r.products[id] = p
	return p, nil
}

func (r *memRepo) DeleteProduct(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r *memRepo) ListCustomers(ctx context.Context, query string) ([]model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Customer
	for _, c := range r.customers {
		res = append(res, c)
	}
	return res, nil
}

func (r *memRepo) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return model.Customer{}, fmt.Errorf("customer %q: %w", id, model.ErrNotFound)
	}
	return c, nil
}

func (r *memRepo) CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = c
	return c, nil
}

func (r *memRepo) UpdateCustomer(ctx context.Context, id string, patch model.CustomerPatch) (model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return model.Customer{}, fmt.Errorf("customer %q: %w", id, model.ErrNotFound)
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	r.customers[id] = c
	return c, nil
}

func (r *memRepo) DeleteCustomer(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.customers, id)
	return nil
}

func (r *memRepo) ListLookbookPosts(ctx context.Context) ([]model.LookbookPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.LookbookPost
	for _, p := range r.posts {
		res = append(res, p)
	}
	return res, nil
}

func (r *memRepo) GetLookbookPost(ctx context.Context, id string) (model.LookbookPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return model.LookbookPost{}, fmt.Errorf("lookbook post %q: %w", id, model.ErrNotFound)
	}
	return p, nil
}

func (r *memRepo) CreateLookbookPost(ctx context.Context, p model.LookbookPost) (model.LookbookPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = p
	return p, nil
}

func (r *memRepo) UpdateLookbookPost(ctx context.Context, id string, patch model.LookbookPatch) (model.LookbookPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return model.LookbookPost{}, fmt.Errorf("lookbook post %q: %w", id, model.ErrNotFound)
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	r.posts[id] = p
	return p, nil
}

func (r *memRepo) DeleteLookbookPost(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *memRepo) CreateLookbookComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postComments = append(r.postComments, c)
	return c, nil
}

func (r *memRepo) ListLookbookComments(ctx context.Context, postID string) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Comment
	for _, c := range r.postComments {
		if c.ParentID == postID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (r *memRepo) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("profile %q: %w", userID, model.ErrNotFound)
	}
	return p, nil
}

func (r *memRepo) UpsertProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
	return p, nil
}

func (r *memRepo) ListStaffProfiles(ctx context.Context) ([]model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Profile
	for _, p := range r.profiles {
		if p.Role == model.RoleAdmin || p.Role == model.RoleStaff {
			res = append(res, p)
		}
	}
	return res, nil
}

// tickClock возвращает строго возрастающее время, чтобы порядок создания был однозначным.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickClock() *tickClock {
	return &tickClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}
