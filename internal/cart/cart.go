// Package cart builds an order selection before it is placed.
//
// A Cart belongs to one terminal or guest device and is not safe for
// concurrent use. It becomes an Order only through Checkout.
package cart

import (
	"context"
	"fmt"

	"tablesync/internal/models"
)

// Catalog resolves menu items by id.
type Catalog interface {
	LookupMenuItem(id string) (models.MenuItem, bool)
}

// Placer turns a table id and a list of items into a placed order.
type Placer interface {
	PlaceOrder(ctx context.Context, tableID string, items []models.OrderItem) (models.Order, error)
}

// Cart is an ordered collection of order items keyed by menu item id.
type Cart struct {
	items []models.OrderItem
}

// New creates an empty cart
func New() *Cart {
	return &Cart{}
}

// Add puts one more of the menu item into the cart. A new entry captures the
// item's current price; an existing entry keeps its price and note.
func (c *Cart) Add(menuItemID string, catalog Catalog) error {
	item, ok := catalog.LookupMenuItem(menuItemID)
	if !ok {
		return fmt.Errorf("menu item %s: %w", menuItemID, models.ErrNotFound)
	}
	if !item.Available {
		return fmt.Errorf("menu item %s: %w", menuItemID, models.ErrItemUnavailable)
	}

	if i := c.index(menuItemID); i >= 0 {
		c.items[i].Quantity++
		return nil
	}

	c.items = append(c.items, models.OrderItem{
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   1,
		Price:      item.Price,
	})
	return nil
}

// SetQuantity adjusts the quantity by delta, never going below 1.
func (c *Cart) SetQuantity(menuItemID string, delta int) error {
	i := c.index(menuItemID)
	if i < 0 {
		return fmt.Errorf("cart entry %s: %w", menuItemID, models.ErrNotFound)
	}
	c.items[i].Quantity = max(1, c.items[i].Quantity+delta)
	return nil
}

// Remove deletes the entry. Removing an absent entry is a no-op.
func (c *Cart) Remove(menuItemID string) {
	if i := c.index(menuItemID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// SetNote overwrites the free-text note of an entry.
func (c *Cart) SetNote(menuItemID, text string) error {
	i := c.index(menuItemID)
	if i < 0 {
		return fmt.Errorf("cart entry %s: %w", menuItemID, models.ErrNotFound)
	}
	c.items[i].Note = text
	return nil
}

// Total sums price times quantity over the current entries.
func (c *Cart) Total() float64 {
	return models.SumItems(c.items)
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []models.OrderItem {
	return append([]models.OrderItem(nil), c.items...)
}

// Len returns the number of distinct entries.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Clear drops every entry.
func (c *Cart) Clear() {
	c.items = nil
}

// Checkout places the cart as an order for tableID. The cart is cleared only
// when the order was placed; on error it is left exactly as it was.
func (c *Cart) Checkout(ctx context.Context, placer Placer, tableID string) (models.Order, error) {
	if tableID == "" {
		return models.Order{}, models.ErrNoTableSelected
	}
	if c.IsEmpty() {
		return models.Order{}, models.ErrEmptyCart
	}

	order, err := placer.PlaceOrder(ctx, tableID, c.Items())
	if err != nil {
		return models.Order{}, err
	}
	c.Clear()
	return order, nil
}

func (c *Cart) index(menuItemID string) int {
	for i, item := range c.items {
		if item.MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}
