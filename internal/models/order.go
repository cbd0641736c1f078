package models

import (
	"time"
)

// Order represents a placed order for a table. Only Status, Notes and
// UpdatedAt change after placement.
type Order struct {
	ID          string      `json:"id" yaml:"id"`
	TableID     string      `json:"table_id" yaml:"table_id"`
	Items       []OrderItem `json:"items" yaml:"items"`
	Status      OrderStatus `json:"status" yaml:"status"`
	TotalAmount float64     `json:"total_amount" yaml:"total_amount"`
	Notes       string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" yaml:"updated_at"`
}

// OrderItem represents a line of an order. Price is captured when the item
// is added and never re-read from the menu.
type OrderItem struct {
	MenuItemID string  `json:"menu_item_id" yaml:"menu_item_id"`
	Name       string  `json:"name" yaml:"name"`
	Quantity   int     `json:"quantity" yaml:"quantity"`
	Price      float64 `json:"price" yaml:"price"`
	Note       string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusPaid      OrderStatus = "paid"
)

// LineTotal returns price times quantity.
func (oi OrderItem) LineTotal() float64 {
	return oi.Price * float64(oi.Quantity)
}

// SumItems folds the line totals of items.
func SumItems(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// IsActive reports whether the order still counts against its table.
func (o Order) IsActive() bool {
	return o.Status != OrderStatusPaid
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]OrderItem(nil), o.Items...)
	return c
}
