package models

import (
	"fmt"
	"time"
)

// MenuItem represents a dish on the menu
type MenuItem struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string        `json:"category" yaml:"category"`
	Price       float64       `json:"price" yaml:"price"`
	Available   bool          `json:"available" yaml:"available"`
	PrepTime    time.Duration `json:"prep_time,omitempty" yaml:"prep_time,omitempty"`
}

// MenuCategory represents the category of a menu item
type MenuCategory string

const (
	// Menu categories
	MenuCategoryStarter  MenuCategory = "starter"
	MenuCategoryMain     MenuCategory = "main"
	MenuCategoryBread    MenuCategory = "bread"
	MenuCategorySide     MenuCategory = "side"
	MenuCategoryDessert  MenuCategory = "dessert"
	MenuCategoryBeverage MenuCategory = "beverage"
)

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if item.ID == "" {
		return fmt.Errorf("menu item id is required")
	}
	if item.Name == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.Price < 0 {
		return fmt.Errorf("menu item price must not be negative")
	}
	return nil
}

// IsInCategory checks if the item belongs to a specific category
func (mi *MenuItem) IsInCategory(category MenuCategory) bool {
	return mi.Category == string(category)
}

// Menu is an ordered list of menu items.
type Menu []MenuItem

// LookupMenuItem finds an item by id.
func (m Menu) LookupMenuItem(id string) (MenuItem, bool) {
	for _, item := range m {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}

// ByCategory returns the items of one category in menu order.
func (m Menu) ByCategory(category MenuCategory) Menu {
	var out Menu
	for _, item := range m {
		if item.IsInCategory(category) {
			out = append(out, item)
		}
	}
	return out
}
