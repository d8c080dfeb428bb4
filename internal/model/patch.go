package model

import "github.com/shopspring/decimal"

// ProductPatch содержит частичное обновление товара; nil-поля не меняются.
type ProductPatch struct {
	Name        *string            `json:"name" validate:"omitempty,min=1"`
	SKU         *string            `json:"sku" validate:"omitempty,min=1"`
	Price       *decimal.Decimal   `json:"price"`
	Category    *string            `json:"category"`
	ImageURL    *string            `json:"imageUrl"`
	Description *string            `json:"description"`
	Specs       *map[string]string `json:"specs"`
	Active      *bool              `json:"active"`
}

// CustomerPatch содержит частичное обновление клиента.
type CustomerPatch struct {
	Name         *string `json:"name"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string `json:"contactPhone"`
}

// LookbookPatch содержит частичное обновление публикации лукбука.
type LookbookPatch struct {
	Type     *PostType `json:"type"`
	Title    *string   `json:"title"`
	Subtitle *string   `json:"subtitle"`
	Content  *string   `json:"content"`
	ImageURL *string   `json:"imageUrl"`
	Gallery  *[]string `json:"gallery"`
	Featured *bool     `json:"featured"`
}
