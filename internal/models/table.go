package models

// Table represents a seating table on the floor
type Table struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Capacity int         `json:"capacity" yaml:"capacity"`
	Status   TableStatus `json:"status" yaml:"status"`
	Zone     string      `json:"zone,omitempty" yaml:"zone,omitempty"`
}

// TableStatus represents the status of a table
type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusReserved  TableStatus = "reserved"
	TableStatusDirty     TableStatus = "dirty"
)

// Valid reports whether s is a known table status.
func (s TableStatus) Valid() bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved, TableStatusDirty:
		return true
	}
	return false
}
