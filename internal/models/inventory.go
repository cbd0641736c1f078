package models

// InventoryItem represents an item in the restaurant's stock
type InventoryItem struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Category string          `json:"category" yaml:"category"`
	Quantity float64         `json:"quantity" yaml:"quantity"`
	Unit     string          `json:"unit" yaml:"unit"`
	MinLevel float64         `json:"min_level" yaml:"min_level"`
	Status   InventoryStatus `json:"status" yaml:"status"`
}

// InventoryStatus represents the status of an inventory item
type InventoryStatus string

const (
	// Inventory statuses
	StatusInStock    InventoryStatus = "in_stock"
	StatusLow        InventoryStatus = "low"
	StatusOutOfStock InventoryStatus = "out_of_stock"
)

// InventoryUnit represents the unit of measurement for an inventory item
type InventoryUnit string

const (
	UnitGram      InventoryUnit = "g"
	UnitKilogram  InventoryUnit = "kg"
	UnitLiter     InventoryUnit = "l"
	UnitPiece     InventoryUnit = "pc"
	UnitContainer InventoryUnit = "container"
)

// IsLow reports whether the quantity is at or below the minimum level.
func (i InventoryItem) IsLow() bool {
	return i.Quantity <= i.MinLevel
}

// DeriveStatus computes the status from quantity and minimum level.
func (i InventoryItem) DeriveStatus() InventoryStatus {
	switch {
	case i.Quantity <= 0:
		return StatusOutOfStock
	case i.IsLow():
		return StatusLow
	default:
		return StatusInStock
	}
}
