// Package model содержит доменные сущности портала Orbit.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя в профиле.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// Valid сообщает, входит ли роль в перечисление.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// Identity описывает пользователя, подтверждённого внешним провайдером идентификации.
type Identity struct {
	UserID      string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Profile хранит роль пользователя и область клиента, к которой он привязан.
type Profile struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	CustomerID string    `json:"customerId,omitempty"`
	Name       string    `json:"name,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Actor описывает пользователя, от имени которого выполняется операция.
type Actor struct {
	UserID     string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Role       Role   `json:"role"`
	CustomerID string `json:"customerId,omitempty"`
}

// NewActor собирает Actor из подтверждённой личности и сохранённого профиля.
func NewActor(id Identity, p Profile) Actor {
	name := p.Name
	if name == "" {
		name = id.DisplayName
	}
	return Actor{
		UserID:     id.UserID,
		Email:      id.Email,
		Name:       name,
		Role:       p.Role,
		CustomerID: p.CustomerID,
	}
}

// IsStaff сообщает, обладает ли пользователь одной из повышенных ролей.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleStaff
}

// Author возвращает подпись автора для журналов и комментариев.
func (a Actor) Author() Author {
	return Author{UID: a.UserID, Name: a.Name}
}

// Author идентифицирует создателя записи.
type Author struct {
	UID  string `json:"createdByUid"`
	Name string `json:"createdByName,omitempty"`
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusSubmitted  OrderStatus = "submitted"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusClosed     OrderStatus = "closed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses перечисляет статусы в порядке отображения.
var OrderStatuses = []OrderStatus{
	OrderStatusSubmitted,
	OrderStatusConfirmed,
	OrderStatusInProgress,
	OrderStatusDelivered,
	OrderStatusClosed,
	OrderStatusCancelled,
}

// Valid сообщает, входит ли статус в перечисление.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// LineItem описывает позицию заказа.
type LineItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order описывает заявку клиента на закупку.
type Order struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Summary    string          `json:"summary"`
	CustomerID string          `json:"customerId"`
	LineItems  []LineItem      `json:"lineItems"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Status     OrderStatus     `json:"status"`
	Viewed     bool            `json:"viewed"`
	CreatedBy  Author          `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// UpdateKind задаёт тип записи журнала заказа.
type UpdateKind string

const (
	UpdateKindCreated      UpdateKind = "created"
	UpdateKindStatusChange UpdateKind = "status_change"
)

// OrderUpdate описывает неизменяемую запись журнала активности заказа.
type OrderUpdate struct {
	ID        string     `json:"id"`
	OrderID   string     `json:"orderId"`
	Kind      UpdateKind `json:"type"`
	Message   string     `json:"message"`
	Author    Author     `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TaskStatus описывает статус задачи.
type TaskStatus string

const (
	TaskStatusTodo    TaskStatus = "todo"
	TaskStatusDoing   TaskStatus = "doing"
	TaskStatusBlocked TaskStatus = "blocked"
	TaskStatusDone    TaskStatus = "done"
)

// Valid сообщает, входит ли статус задачи в перечисление.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusDoing, TaskStatusBlocked, TaskStatusDone:
		return true
	}
	return false
}

// Task описывает задачу в рамках заказа.
type Task struct {
	ID        string     `json:"id"`
	OrderID   string     `json:"orderId"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	CreatedBy string     `json:"createdByUid"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Comment описывает сообщение в ленте заказа или публикации лукбука.
type Comment struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId"`
	Message   string    `json:"message"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationType задаёт тег системного события.
type NotificationType string

const NotificationTypeNewOrder NotificationType = "new_order"

// Notification описывает системное уведомление о заказе.
type Notification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	OrderID    string           `json:"orderId"`
	Title      string           `json:"title"`
	CustomerID string           `json:"customerId"`
	Message    string           `json:"message"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Customer описывает клиентскую организацию.
type Customer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contactEmail"`
	ContactPhone string    `json:"contactPhone"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Product описывает позицию каталога.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	SKU         string            `json:"sku"`
	Price       decimal.Decimal   `json:"price"`
	Category    string            `json:"category"`
	ImageURL    string            `json:"imageUrl"`
	Description string            `json:"description"`
	Specs       map[string]string `json:"specs"`
	Active      bool              `json:"active"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// PostType задаёт тип публикации лукбука.
type PostType string

const (
	PostTypeCampaign   PostType = "campaign"
	PostTypeNews       PostType = "news"
	PostTypePhotoshoot PostType = "photoshoot"
	PostTypeUpdate     PostType = "update"
	PostTypeCatalogue  PostType = "catalogue"
)

// Valid сообщает, входит ли тип публикации в перечисление.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeCampaign, PostTypeNews, PostTypePhotoshoot, PostTypeUpdate, PostTypeCatalogue:
		return true
	}
	return false
}

// LookbookPost описывает публикацию ленты новостей и кампаний.
type LookbookPost struct {
	ID        string    `json:"id"`
	Type      PostType  `json:"type"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	Gallery   []string  `json:"gallery"`
	Featured  bool      `json:"featured"`
	CreatedBy string    `json:"createdByUid"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderDetail объединяет заказ и его дочерние коллекции.
type OrderDetail struct {
	Order    Order         `json:"order"`
	Updates  []OrderUpdate `json:"updates"`
	Tasks    []Task        `json:"tasks"`
	Comments []Comment     `json:"comments"`
}

// Dashboard содержит сводку по заказам, доступным пользователю.
type Dashboard struct {
	StatusCounts map[OrderStatus]int `json:"statusCounts"`
	TotalOrders  int                 `json:"totalOrders"`
	TotalValue   decimal.Decimal     `json:"totalValue"`
	Unviewed     int                 `json:"unviewed"`
	Recent       []Order             `json:"recent"`
}
