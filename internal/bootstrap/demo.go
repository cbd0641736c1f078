package bootstrap

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"tablesync/internal/models"
	"tablesync/internal/store"

	"github.com/jaswdr/faker"
)

var demoDishes = []struct {
	name     string
	category models.MenuCategory
	min, max int
}{
	{"Paneer Tikka", models.MenuCategoryStarter, 180, 260},
	{"Chicken 65", models.MenuCategoryStarter, 200, 280},
	{"Veg Manchurian", models.MenuCategoryStarter, 150, 220},
	{"Butter Chicken", models.MenuCategoryMain, 320, 420},
	{"Dal Makhani", models.MenuCategoryMain, 220, 300},
	{"Palak Paneer", models.MenuCategoryMain, 240, 320},
	{"Hyderabadi Biryani", models.MenuCategoryMain, 300, 400},
	{"Butter Naan", models.MenuCategoryBread, 40, 70},
	{"Garlic Naan", models.MenuCategoryBread, 50, 80},
	{"Tandoori Roti", models.MenuCategoryBread, 25, 45},
	{"Jeera Rice", models.MenuCategorySide, 120, 180},
	{"Raita", models.MenuCategorySide, 60, 90},
	{"Gulab Jamun", models.MenuCategoryDessert, 80, 120},
	{"Rasmalai", models.MenuCategoryDessert, 100, 150},
	{"Masala Chai", models.MenuCategoryBeverage, 30, 60},
	{"Sweet Lassi", models.MenuCategoryBeverage, 70, 110},
}

var demoStock = []struct {
	name, category, unit string
}{
	{"Paneer", "dairy", string(models.UnitKilogram)},
	{"Chicken", "meat", string(models.UnitKilogram)},
	{"Basmati Rice", "grain", string(models.UnitKilogram)},
	{"Flour", "grain", string(models.UnitKilogram)},
	{"Butter", "dairy", string(models.UnitKilogram)},
	{"Milk", "dairy", string(models.UnitLiter)},
	{"Tomatoes", "produce", string(models.UnitKilogram)},
	{"Onions", "produce", string(models.UnitKilogram)},
}

// Demo generates a floor, a menu, stock and upcoming reservations. The same
// Seed always produces the same snapshot.
type Demo struct {
	Seed         int64
	Tables       int
	Reservations int
	Now          func() time.Time
}

// Load builds the demo snapshot.
func (d Demo) Load(_ context.Context) (store.Snapshot, error) {
	if d.Tables <= 0 {
		d.Tables = 12
	}
	if d.Reservations < 0 {
		d.Reservations = 0
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	fake := faker.NewWithSeed(rand.NewSource(d.Seed))

	var snap store.Snapshot
	zones := []string{"window", "hall", "patio"}
	for i := 1; i <= d.Tables; i++ {
		snap.Tables = append(snap.Tables, models.Table{
			ID:       fmt.Sprintf("t%d", i),
			Name:     fmt.Sprintf("Table %d", i),
			Capacity: 2 * fake.IntBetween(1, 4),
			Status:   models.TableStatusAvailable,
			Zone:     zones[(i-1)%len(zones)],
		})
	}

	for i, dish := range demoDishes {
		snap.Menu = append(snap.Menu, models.MenuItem{
			ID:          fmt.Sprintf("m%d", i+1),
			Name:        dish.name,
			Description: fake.Lorem().Sentence(6),
			Category:    string(dish.category),
			Price:       float64(fake.IntBetween(dish.min, dish.max)),
			Available:   fake.IntBetween(0, 9) > 0,
			PrepTime:    time.Duration(fake.IntBetween(5, 25)) * time.Minute,
		})
	}

	for i, stock := range demoStock {
		item := models.InventoryItem{
			ID:       fmt.Sprintf("i%d", i+1),
			Name:     stock.name,
			Category: stock.category,
			Quantity: fake.Float64(1, 0, 40),
			Unit:     stock.unit,
			MinLevel: 5,
		}
		item.Status = item.DeriveStatus()
		snap.Inventory = append(snap.Inventory, item)
	}

	for i := 1; i <= d.Reservations; i++ {
		table := snap.Tables[fake.IntBetween(0, len(snap.Tables)-1)]
		snap.Reservations = append(snap.Reservations, models.Reservation{
			ID:           fmt.Sprintf("r%d", i),
			CustomerName: fake.Person().Name(),
			Phone:        fake.Phone().Number(),
			RequestedAt:  now.Add(time.Duration(fake.IntBetween(1, 72)) * time.Hour).Truncate(time.Hour),
			PartySize:    fake.IntBetween(1, table.Capacity),
			Status:       models.ReservationStatusPending,
			TableID:      table.ID,
		})
	}
	return snap, nil
}
