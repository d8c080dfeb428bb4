package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/orbit-portal/internal/model"
	"github.com/mmeshcher/orbit-portal/internal/validation"
)

// ProductInput содержит данные нового товара.
type ProductInput struct {
	ID          string            `json:"id"`
	Name        string            `json:"name" validate:"notblank"`
	SKU         string            `json:"sku" validate:"notblank"`
	Price       decimal.Decimal   `json:"price"`
	Category    string            `json:"category"`
	ImageURL    string            `json:"imageUrl" validate:"omitempty,url"`
	Description string            `json:"description"`
	Specs       map[string]string `json:"specs"`
	Active      *bool             `json:"active"`
}

// ListProducts возвращает каталог; клиентам видны только активные товары.
func (s *Service) ListProducts(ctx context.Context, actor model.Actor, query string) ([]model.Product, error) {
	products, err := s.repo.ListProducts(ctx, strings.TrimSpace(query), !actor.IsStaff())
	if err != nil {
		return nil, err
	}
	return nonNil(products), nil
}

// GetProduct возвращает товар; неактивный товар для клиента не существует.
func (s *Service) GetProduct(ctx context.Context, actor model.Actor, id string) (model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	if !p.Active && !actor.IsStaff() {
		return model.Product{}, fmt.Errorf("product %q: %w", id, model.ErrNotFound)
	}
	return p, nil
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, actor model.Actor, in ProductInput) (model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return model.Product{}, s.rejected("create product", actor, err)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	if err := validation.Struct(in); err != nil {
		return model.Product{}, s.rejected("create product", actor, err)
	}
	if in.Price.IsNegative() {
		return model.Product{}, s.rejected("create product", actor,
			fmt.Errorf("%w: price must not be negative", model.ErrValidation))
	}

	p := model.Product{
		ID:          strings.TrimSpace(in.ID),
		Name:        in.Name,
		SKU:         in.SKU,
		Price:       in.Price,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		Description: in.Description,
		Specs:       in.Specs,
		Active:      in.Active == nil || *in.Active,
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct частично обновляет товар.
func (s *Service) UpdateProduct(ctx context.Context, actor model.Actor, id string, patch model.ProductPatch) (model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return model.Product{}, s.rejected("update product", actor, err)
	}
	if err := validation.Struct(patch); err != nil {
		return model.Product{}, s.rejected("update product", actor, err)
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return model.Product{}, s.rejected("update product", actor,
			fmt.Errorf("%w: price must not be negative", model.ErrValidation))
	}
	return s.repo.UpdateProduct(ctx, id, patch)
}

// DeleteProduct удаляет товар, на который не ссылается ни один заказ.
func (s *Service) DeleteProduct(ctx context.Context, actor model.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return s.rejected("delete product", actor, err)
	}
	return s.repo.DeleteProduct(ctx, id)
}

// CustomerInput содержит данные нового клиента.
type CustomerInput struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"notblank"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string `json:"contactPhone"`
}

// ListCustomers возвращает клиентов. Только для сотрудников.
func (s *Service) ListCustomers(ctx context.Context, actor model.Actor, query string) ([]model.Customer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, s.rejected("list customers", actor, err)
	}
	customers, err := s.repo.ListCustomers(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	return nonNil(customers), nil
}

// GetCustomer возвращает клиента. Только для сотрудников.
func (s *Service) GetCustomer(ctx context.Context, actor model.Actor, id string) (model.Customer, error) {
	if err := requireStaff(actor); err != nil {
		return model.Customer{}, s.rejected("get customer", actor, err)
	}
	return s.repo.GetCustomer(ctx, id)
}

// CreateCustomer добавляет клиента.
func (s *Service) CreateCustomer(ctx context.Context, actor model.Actor, in CustomerInput) (model.Customer, error) {
	if err := requireStaff(actor); err != nil {
		return model.Customer{}, s.rejected("create customer", actor, err)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return model.Customer{}, s.rejected("create customer", actor, err)
	}

	c := model.Customer{
		ID:           strings.TrimSpace(in.ID),
		Name:         in.Name,
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	return s.repo.CreateCustomer(ctx, c)
}

// UpdateCustomer частично обновляет клиента; имя, если передано, не может быть пустым.
func (s *Service) UpdateCustomer(ctx context.Context, actor model.Actor, id string, patch model.CustomerPatch) (model.Customer, error) {
	if err := requireStaff(actor); err != nil {
		return model.Customer{}, s.rejected("update customer", actor, err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.Customer{}, s.rejected("update customer", actor,
				fmt.Errorf("%w: name is required", model.ErrValidation))
		}
		patch.Name = &name
	}
	if err := validation.Struct(patch); err != nil {
		return model.Customer{}, s.rejected("update customer", actor, err)
	}
	return s.repo.UpdateCustomer(ctx, id, patch)
}

// DeleteCustomer удаляет клиента.
func (s *Service) DeleteCustomer(ctx context.Context, actor model.Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return s.rejected("delete customer", actor, err)
	}
	return s.repo.DeleteCustomer(ctx, id)
}
