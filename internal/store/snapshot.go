package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"tablesync/internal/models"
	"tablesync/internal/transport"
)

// Collection names a top-level collection of the snapshot. The name is also
// the key used on the wire.
type Collection string

const (
	CollectionTables       Collection = "tables"
	CollectionMenu         Collection = "menu"
	CollectionOrders       Collection = "orders"
	CollectionReservations Collection = "reservations"
	CollectionInventory    Collection = "inventory"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{
	CollectionTables,
	CollectionMenu,
	CollectionOrders,
	CollectionReservations,
	CollectionInventory,
}

// Snapshot holds every canonical collection. Inside the store a Snapshot is
// never modified after it is published; mutations build a new one and replace
// whole collections.
type Snapshot struct {
	Tables       []models.Table         `json:"tables" yaml:"tables"`
	Menu         models.Menu            `json:"menu" yaml:"menu"`
	Orders       []models.Order         `json:"orders" yaml:"orders"`
	Reservations []models.Reservation   `json:"reservations" yaml:"reservations"`
	Inventory    []models.InventoryItem `json:"inventory" yaml:"inventory"`
}

// Clone returns a deep copy that shares nothing with s.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		Tables:       append([]models.Table(nil), s.Tables...),
		Menu:         append(models.Menu(nil), s.Menu...),
		Reservations: append([]models.Reservation(nil), s.Reservations...),
		Inventory:    append([]models.InventoryItem(nil), s.Inventory...),
	}
	if s.Orders != nil {
		c.Orders = make([]models.Order, len(s.Orders))
		for i, o := range s.Orders {
			c.Orders[i] = o.Clone()
		}
	}
	return c
}

// Collection returns a copy of the named collection.
func (s Snapshot) Collection(name Collection) any {
	c := s.Clone()
	switch name {
	case CollectionTables:
		return c.Tables
	case CollectionMenu:
		return c.Menu
	case CollectionOrders:
		return c.Orders
	case CollectionReservations:
		return c.Reservations
	case CollectionInventory:
		return c.Inventory
	}
	return nil
}

// LookupMenuItem lets a Snapshot serve as a cart catalog.
func (s Snapshot) LookupMenuItem(id string) (models.MenuItem, bool) {
	return s.Menu.LookupMenuItem(id)
}

// Table finds a table by id.
func (s Snapshot) Table(id string) (models.Table, bool) {
	if i := s.tableIndex(id); i >= 0 {
		return s.Tables[i], true
	}
	return models.Table{}, false
}

// Order finds an order by id.
func (s Snapshot) Order(id string) (models.Order, bool) {
	if i := s.orderIndex(id); i >= 0 {
		return s.Orders[i].Clone(), true
	}
	return models.Order{}, false
}

// Validate checks id uniqueness per collection and the order and
// reservation foreign keys.
func (s Snapshot) Validate() error {
	var errs []error

	tables := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		if t.ID == "" || tables[t.ID] {
			errs = append(errs, fmt.Errorf("table %q: duplicate or empty id", t.ID))
		}
		tables[t.ID] = true
		if !t.Status.Valid() {
			errs = append(errs, fmt.Errorf("table %q: %w %q", t.ID, models.ErrInvalidStatus, t.Status))
		}
	}

	menu := make(map[string]bool, len(s.Menu))
	for i := range s.Menu {
		if err := models.ValidateMenuItem(&s.Menu[i]); err != nil {
			errs = append(errs, err)
		}
		if menu[s.Menu[i].ID] {
			errs = append(errs, fmt.Errorf("menu item %q: duplicate id", s.Menu[i].ID))
		}
		menu[s.Menu[i].ID] = true
	}

	orders := make(map[string]bool, len(s.Orders))
	for _, o := range s.Orders {
		if o.ID == "" || orders[o.ID] {
			errs = append(errs, fmt.Errorf("order %q: duplicate or empty id", o.ID))
		}
		orders[o.ID] = true
		if !tables[o.TableID] {
			errs = append(errs, fmt.Errorf("order %q: table %q: %w", o.ID, o.TableID, models.ErrNotFound))
		}
	}

	reservations := make(map[string]bool, len(s.Reservations))
	for _, r := range s.Reservations {
		if r.ID == "" || reservations[r.ID] {
			errs = append(errs, fmt.Errorf("reservation %q: duplicate or empty id", r.ID))
		}
		reservations[r.ID] = true
		if r.TableID != "" && !tables[r.TableID] {
			errs = append(errs, fmt.Errorf("reservation %q: table %q: %w", r.ID, r.TableID, models.ErrNotFound))
		}
	}

	inventory := make(map[string]bool, len(s.Inventory))
	for _, item := range s.Inventory {
		if item.ID == "" || inventory[item.ID] {
			errs = append(errs, fmt.Errorf("inventory item %q: duplicate or empty id", item.ID))
		}
		inventory[item.ID] = true
	}

	return errors.Join(errs...)
}

func (s *Snapshot) tableIndex(id string) int {
	for i := range s.Tables {
		if s.Tables[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) orderIndex(id string) int {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) reservationIndex(id string) int {
	for i := range s.Reservations {
		if s.Reservations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) menuIndex(id string) int {
	for i := range s.Menu {
		if s.Menu[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) inventoryIndex(id string) int {
	for i := range s.Inventory {
		if s.Inventory[i].ID == id {
			return i
		}
	}
	return -1
}

// hasActiveOrders reports whether any order other than exceptID on the table
// is not yet paid.
func (s *Snapshot) hasActiveOrders(tableID, exceptID string) bool {
	for _, o := range s.Orders {
		if o.TableID == tableID && o.ID != exceptID && o.IsActive() {
			return true
		}
	}
	return false
}

// encodeCollections marshals the named collections for an envelope.
func encodeCollections(s *Snapshot, names []Collection) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		var v any
		switch name {
		case CollectionTables:
			v = s.Tables
		case CollectionMenu:
			v = s.Menu
		case CollectionOrders:
			v = s.Orders
		case CollectionReservations:
			v = s.Reservations
		case CollectionInventory:
			v = s.Inventory
		default:
			return nil, fmt.Errorf("unknown collection %q", name)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		out[string(name)] = data
	}
	return out, nil
}

// mergeEnvelope shallow-merges env into cur: each collection present in the
// envelope replaces the local collection entirely. Unknown keys are skipped.
// Either every known collection decodes or nothing is merged.
func mergeEnvelope(cur *Snapshot, env transport.Envelope) (*Snapshot, []Collection, error) {
	next := *cur
	var changed []Collection

	for _, name := range Collections {
		raw, ok := env.Collections[string(name)]
		if !ok {
			continue
		}
		var err error
		switch name {
		case CollectionTables:
			var v []models.Table
			err = json.Unmarshal(raw, &v)
			next.Tables = v
		case CollectionMenu:
			var v models.Menu
			err = json.Unmarshal(raw, &v)
			next.Menu = v
		case CollectionOrders:
			var v []models.Order
			err = json.Unmarshal(raw, &v)
			next.Orders = v
		case CollectionReservations:
			var v []models.Reservation
			err = json.Unmarshal(raw, &v)
			next.Reservations = v
		case CollectionInventory:
			var v []models.InventoryItem
			err = json.Unmarshal(raw, &v)
			next.Inventory = v
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s from peer %s: %w", name, env.Peer, err)
		}
		changed = append(changed, name)
	}
	return &next, changed, nil
}
