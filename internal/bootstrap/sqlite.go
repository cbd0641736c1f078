package bootstrap

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tablesync/internal/models"
	"tablesync/internal/store"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ItemList stores order lines as a JSON text column.
type ItemList []models.OrderItem

// Value converts the list to a JSON string for storage
func (l ItemList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan converts the database value back to a list
func (l *ItemList) Scan(value interface{}) error {
	if value == nil {
		*l = ItemList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for ItemList")
	}
}

type tableRow struct {
	ID       string `gorm:"primary_key"`
	Position int
	Name     string
	Capacity int
	Status   string
	Zone     string
}

func (tableRow) TableName() string { return "tables" }

type menuRow struct {
	ID          string `gorm:"primary_key"`
	Position    int
	Name        string
	Description string
	Category    string
	Price       float64
	Available   bool
	PrepTime    int64
}

func (menuRow) TableName() string { return "menu_items" }

type orderRow struct {
	ID          string `gorm:"primary_key"`
	Position    int
	TableID     string   `gorm:"index"`
	Items       ItemList `gorm:"type:text"`
	Status      string
	TotalAmount float64
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (orderRow) TableName() string { return "orders" }

type reservationRow struct {
	ID           string `gorm:"primary_key"`
	Position     int
	CustomerName string
	Phone        string
	RequestedAt  time.Time
	PartySize    int
	Status       string
	TableID      string
}

func (reservationRow) TableName() string { return "reservations" }

type inventoryRow struct {
	ID       string `gorm:"primary_key"`
	Position int
	Name     string
	Category string
	Quantity float64
	Unit     string
	MinLevel float64
	Status   string
}

func (inventoryRow) TableName() string { return "inventory_items" }

var schema = []interface{}{
	&tableRow{},
	&menuRow{},
	&orderRow{},
	&reservationRow{},
	&inventoryRow{},
}

// SQLite loads the snapshot from a seed database.
type SQLite struct {
	Path string
}

func openDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.LogMode(false)
	if err := db.AutoMigrate(schema...).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Load reads every collection from the database.
func (s SQLite) Load(_ context.Context) (store.Snapshot, error) {
	db, err := openDB(s.Path)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer db.Close()

	var (
		tables       []tableRow
		menu         []menuRow
		orders       []orderRow
		reservations []reservationRow
		inventory    []inventoryRow
	)
	for _, q := range []struct {
		name string
		dest interface{}
	}{
		{"tables", &tables},
		{"menu", &menu},
		{"orders", &orders},
		{"reservations", &reservations},
		{"inventory", &inventory},
	} {
		if err := db.Order("position").Find(q.dest).Error; err != nil {
			return store.Snapshot{}, fmt.Errorf("failed to read %s: %w", q.name, err)
		}
	}

	var snap store.Snapshot
	for _, r := range tables {
		snap.Tables = append(snap.Tables, models.Table{
			ID:       r.ID,
			Name:     r.Name,
			Capacity: r.Capacity,
			Status:   models.TableStatus(r.Status),
			Zone:     r.Zone,
		})
	}
	for _, r := range menu {
		snap.Menu = append(snap.Menu, models.MenuItem{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Price:       r.Price,
			Available:   r.Available,
			PrepTime:    time.Duration(r.PrepTime),
		})
	}
	for _, r := range orders {
		snap.Orders = append(snap.Orders, models.Order{
			ID:          r.ID,
			TableID:     r.TableID,
			Items:       []models.OrderItem(r.Items),
			Status:      models.OrderStatus(r.Status),
			TotalAmount: r.TotalAmount,
			Notes:       r.Notes,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	for _, r := range reservations {
		snap.Reservations = append(snap.Reservations, models.Reservation{
			ID:           r.ID,
			CustomerName: r.CustomerName,
			Phone:        r.Phone,
			RequestedAt:  r.RequestedAt,
			PartySize:    r.PartySize,
			Status:       models.ReservationStatus(r.Status),
			TableID:      r.TableID,
		})
	}
	for _, r := range inventory {
		snap.Inventory = append(snap.Inventory, models.InventoryItem{
			ID:       r.ID,
			Name:     r.Name,
			Category: r.Category,
			Quantity: r.Quantity,
			Unit:     r.Unit,
			MinLevel: r.MinLevel,
			Status:   models.InventoryStatus(r.Status),
		})
	}
	return snap, nil
}

// Seed replaces the database contents with snap in one transaction.
func Seed(path string, snap store.Snapshot) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx := db.Begin()
	if err := seedRows(tx, snap); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}

func seedRows(tx *gorm.DB, snap store.Snapshot) error {
	for _, model := range schema {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", model, err)
		}
	}

	var rows []interface{}
	for i, t := range snap.Tables {
		rows = append(rows, &tableRow{ID: t.ID, Position: i, Name: t.Name, Capacity: t.Capacity, Status: string(t.Status), Zone: t.Zone})
	}
	for i, m := range snap.Menu {
		rows = append(rows, &menuRow{
			ID: m.ID, Position: i, Name: m.Name, Description: m.Description, Category: m.Category,
			Price: m.Price, Available: m.Available, PrepTime: int64(m.PrepTime),
		})
	}
	for i, o := range snap.Orders {
		rows = append(rows, &orderRow{
			ID: o.ID, Position: i, TableID: o.TableID, Items: ItemList(o.Items), Status: string(o.Status),
			TotalAmount: o.TotalAmount, Notes: o.Notes, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
		})
	}
	for i, r := range snap.Reservations {
		rows = append(rows, &reservationRow{
			ID: r.ID, Position: i, CustomerName: r.CustomerName, Phone: r.Phone, RequestedAt: r.RequestedAt,
			PartySize: r.PartySize, Status: string(r.Status), TableID: r.TableID,
		})
	}
	for i, item := range snap.Inventory {
		rows = append(rows, &inventoryRow{
			ID: item.ID, Position: i, Name: item.Name, Category: item.Category, Quantity: item.Quantity,
			Unit: item.Unit, MinLevel: item.MinLevel, Status: string(item.Status),
		})
	}

	for _, row := range rows {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert %T: %w", row, err)
		}
	}
	return nil
}
